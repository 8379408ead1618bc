package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/auth"
	"github.com/julianstephens/tripkit/internal/backup"
	"github.com/julianstephens/tripkit/internal/config"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/mirror"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/planstore"
	"github.com/julianstephens/tripkit/internal/remote"
)

// Context carries every service a command needs. It is built once in main.
type Context struct {
	Ctx       context.Context
	StorePath string
	ConfigDir string

	KV     localstore.KV
	Local  *localstore.Store
	Config *config.Manager
	API    models.APIConfig

	Auth   *auth.Manager
	Remote remote.Source
	Mirror *mirror.Queue
	AI     *ai.Client
	Plans  *planstore.Store
}

// Options configures NewContext.
type Options struct {
	Ctx        context.Context
	StorePath  string
	ConfigDir  string
	UseKeyring bool
	// KV overrides the backend picked from StorePath.
	KV localstore.KV
}

// NewContext wires the services together without touching storage. Call
// Open before running a command that reads data.
func NewContext(opts Options) (*Context, error) {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	kv := opts.KV
	if kv == nil {
		kv = localstore.NewKV(opts.StorePath)
	}

	cfgMgr := config.NewManager(opts.ConfigDir, opts.UseKeyring)
	apiCfg, err := cfgMgr.Load()
	if err != nil {
		return nil, err
	}

	local := localstore.New(kv)
	authMgr := auth.NewManager(local, auth.Options{UseKeyring: opts.UseKeyring})
	src := remote.Select(apiCfg)
	queue := mirror.New(mirror.Options{})
	client := ai.NewClient(apiCfg)

	return &Context{
		Ctx:       opts.Ctx,
		StorePath: opts.StorePath,
		ConfigDir: opts.ConfigDir,
		KV:        kv,
		Local:     local,
		Config:    cfgMgr,
		API:       apiCfg,
		Auth:      authMgr,
		Remote:    src,
		Mirror:    queue,
		AI:        client,
		Plans: planstore.New(planstore.Options{
			Local:     local,
			Remote:    src,
			Mirror:    queue,
			Session:   authMgr,
			Generator: client,
		}),
	}, nil
}

// Open loads the backend, seeds the demo account and loads plans.
func (c *Context) Open() error {
	if err := c.KV.Load(); err != nil {
		return err
	}
	if err := c.Auth.EnsureDemo(); err != nil {
		logger.Warn("Failed to seed demo account", "error", err)
	}
	c.Plans.LoadPlans(c.Ctx)
	return nil
}

// Close flushes pending remote writes and releases the backends.
func (c *Context) Close() {
	if c.Mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.Mirror.Close(ctx); err != nil {
			logger.Warn("Pending remote writes abandoned", "error", err, "pending", c.Mirror.Pending())
		}
		cancel()
	}
	if closer, ok := c.Remote.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close remote", "error", err)
		}
	}
	if c.KV != nil {
		if err := c.KV.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}
}

// PerformAutomaticBackup backs up a file-based store and silently handles errors.
func (c *Context) PerformAutomaticBackup() {
	if !c.SupportsBackups() {
		return
	}
	mgr := backup.NewManager(c.KV.Location())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// SupportsBackups reports whether the store is a local file that can be copied.
func (c *Context) SupportsBackups() bool {
	switch localstore.Backend(c.KV) {
	case "sqlite", "json":
		return true
	}
	return false
}

// ResolvePlan returns the plan with id, or the current plan when id is empty.
func (c *Context) ResolvePlan(id string) (models.TravelPlan, error) {
	if id == "" {
		p := c.Plans.CurrentPlan()
		if p == nil {
			return models.TravelPlan{}, fmt.Errorf("%w: pass a plan id or run 'tripkit plan use <id>'", planstore.ErrNoCurrentPlan)
		}
		return *p, nil
	}
	if p, ok := c.Plans.Plan(id); ok {
		return p, nil
	}
	if p := c.Plans.FetchPlanByID(c.Ctx, id); p != nil {
		return *p, nil
	}
	return models.TravelPlan{}, fmt.Errorf("plan %s not found", id)
}

// UseCurrent makes id the current plan when it is set, so the itinerary and
// expense operations target it.
func (c *Context) UseCurrent(id string) (models.TravelPlan, error) {
	p, err := c.ResolvePlan(id)
	if err != nil {
		return p, err
	}
	if err := c.Plans.SetCurrentPlan(p.ID); err != nil {
		return p, err
	}
	return p, nil
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FormatMoney renders an amount the way every command prints money.
func FormatMoney(v float64) string {
	return fmt.Sprintf("¥%.2f", v)
}
