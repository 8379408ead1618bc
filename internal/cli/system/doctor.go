package system

import (
	"fmt"
	"time"

	"github.com/julianstephens/tripkit/internal/backup"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/keyring"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/models"
)

type DoctorCmd struct{}

type check struct {
	name string
	// warnOnly checks print a warning instead of failing the run.
	warnOnly bool
	// needsStore checks are skipped when the store cannot be reached.
	needsStore bool
	fn         func(ctx *cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	checks := []check{
		{name: "Store reachable", fn: checkStoreReachable},
		{name: "Schema version", needsStore: true, fn: checkSchemaVersion},
		{name: "Backups present", warnOnly: true, fn: checkBackupsPresent},
		{name: "Plan data", needsStore: true, fn: checkPlanData},
		{name: "Timestamp integrity", needsStore: true, fn: checkTimestamps},
		{name: "Remote backend", warnOnly: true, fn: checkRemote},
		{name: "Language model", warnOnly: true, fn: checkLanguageModel},
		{name: "OS keyring", warnOnly: true, fn: checkKeyring},
		{name: "Clock/timezone", fn: checkClockTimezone},
	}

	hasError := false
	storeOK := true
	for _, ch := range checks {
		if ch.needsStore && !storeOK {
			fmt.Printf("⊘ %s: SKIPPED (store not reachable)\n", ch.name)
			continue
		}
		err := ch.fn(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", ch.name)
		case ch.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", ch.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", ch.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
			if ch.name == "Store reachable" {
				storeOK = false
			}
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.KV.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	if sqlite, ok := ctx.KV.(*localstore.SQLiteKV); ok {
		db := sqlite.DB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	if _, err := ctx.KV.Keys(); err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	sqlite, ok := ctx.KV.(*localstore.SQLiteKV)
	if !ok {
		return nil
	}
	st, err := sqlite.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if st.Current > st.Latest {
		return fmt.Errorf("database schema version (%d) is newer than supported (%d), upgrade tripkit", st.Current, st.Latest)
	}
	if st.Pending > 0 {
		return fmt.Errorf("%d pending migration(s), run 'tripkit init'", st.Pending)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !ctx.SupportsBackups() {
		return fmt.Errorf("%s stores are not backed up by tripkit", localstore.Backend(ctx.KV))
	}
	mgr := backup.NewManager(ctx.KV.Location())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s", mgr.Dir())
	}
	latest := backups[0].Timestamp
	if time.Since(latest) > 7*24*time.Hour {
		return fmt.Errorf("latest backup is from %s", latest.Format("2006-01-02"))
	}
	return nil
}

func checkPlanData(ctx *cli.Context) error {
	invalid := 0
	for _, p := range ctx.Local.Load() {
		if err := p.Validate(); err != nil {
			invalid++
			fmt.Printf("   plan %s: %v\n", p.ID, err)
			continue
		}
		for _, e := range p.Expenses {
			if err := e.Validate(); err != nil {
				invalid++
				fmt.Printf("   plan %s expense %s: %v\n", p.ID, e.ID, err)
			}
		}
	}
	if invalid > 0 {
		return fmt.Errorf("found %d invalid record(s)", invalid)
	}
	return nil
}

func checkTimestamps(ctx *cli.Context) error {
	bad := 0
	for _, p := range ctx.Local.Load() {
		if _, ok := models.ParseTimestamp(p.UpdatedAt); !ok {
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d plan(s) have an unparseable updated_at and will lose every sync conflict", bad)
	}
	return nil
}

func checkRemote(ctx *cli.Context) error {
	if !ctx.Remote.IsEnabled() {
		return fmt.Errorf("no remote configured, plans stay on this machine")
	}
	if ctx.Auth.UserID() == "" {
		return fmt.Errorf("%s remote configured but nobody is signed in", ctx.Remote.Name())
	}
	fmt.Printf("   using %s\n", ctx.Remote.Name())
	return nil
}

func checkLanguageModel(ctx *cli.Context) error {
	if !ctx.AI.HasKey() {
		return fmt.Errorf("openai_api_key not set, itineraries use the built-in sample")
	}
	return nil
}

func checkKeyring(_ *cli.Context) error {
	if !keyring.IsAvailable() {
		return fmt.Errorf("OS keyring not available, secrets are stored in the config file")
	}
	return nil
}

func checkClockTimezone(_ *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	if _, err := time.LoadLocation("Local"); err != nil {
		return fmt.Errorf("failed to load local timezone: %w", err)
	}
	return nil
}
