package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/planstore"
)

type SyncCmd struct {
	Status bool `help:"Only show the configured remote and the last sync outcome."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	if c.Status {
		st := ctx.Plans.Snapshot()
		fmt.Printf("Remote:  %s (enabled: %t)\n", ctx.Remote.Name(), ctx.Remote.IsEnabled())
		fmt.Printf("Status:  %s\n", st.SyncStatus)
		fmt.Printf("Plans:   %d\n", len(st.Plans))
		return nil
	}

	if !ctx.Remote.IsEnabled() {
		if err := ctx.Plans.SyncNow(ctx.Ctx); err != nil {
			return err
		}
		fmt.Println("No remote backend configured; local plans are unchanged.")
		fmt.Println("Set supabase_url, sync_api_base or postgres_url with 'tripkit config set'.")
		return nil
	}

	fmt.Printf("Syncing with %s...\n", ctx.Remote.Name())
	if err := ctx.Plans.SyncNow(ctx.Ctx); err != nil {
		if errors.Is(err, planstore.ErrNotSignedIn) {
			return fmt.Errorf("%w: run 'tripkit auth login'", err)
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	st := ctx.Plans.Snapshot()
	fmt.Printf("✓ Synced %d plan(s) at %s\n", len(st.Plans), st.LastSyncAt.Format("2006-01-02 15:04:05"))
	return nil
}
