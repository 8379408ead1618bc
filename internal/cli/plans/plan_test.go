package plans

import (
	"context"
	"testing"

	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/models"
)

func setupTestContext(t *testing.T, signIn bool) *cli.Context {
	t.Helper()
	t.Setenv("TRIPKIT_OPENAI_API_KEY", "")
	t.Setenv("TRIPKIT_SUPABASE_URL", "")
	t.Setenv("TRIPKIT_SYNC_API_BASE", "")
	t.Setenv("TRIPKIT_POSTGRES_URL", "")

	ctx, err := cli.NewContext(cli.Options{
		Ctx:       context.Background(),
		ConfigDir: t.TempDir(),
		KV:        localstore.NewMemoryKV(),
	})
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}
	if err := ctx.Open(); err != nil {
		t.Fatalf("failed to open context: %v", err)
	}
	t.Cleanup(ctx.Close)

	if signIn {
		if _, err := ctx.Auth.Login(constants.DemoEmail, constants.DemoPassword); err != nil {
			t.Fatalf("failed to sign in: %v", err)
		}
	}
	return ctx
}

func newTokyoCmd() *PlanNewCmd {
	return &PlanNewCmd{
		Destination: "Tokyo",
		Start:       "2026-05-01",
		End:         "2026-05-03",
		Budget:      10000,
		Travelers:   2,
		Preferences: "food, culture",
	}
}

func TestPlanNewSignedIn(t *testing.T) {
	ctx := setupTestContext(t, true)

	if err := newTokyoCmd().Run(ctx); err != nil {
		t.Fatalf("plan new failed: %v", err)
	}

	plans := ctx.Plans.Plans()
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}
	p := plans[0]
	if p.Title != "Tokyo trip" {
		t.Errorf("expected default title, got %q", p.Title)
	}
	if len(p.Preferences) != 2 || p.Preferences[0] != "food" {
		t.Errorf("unexpected preferences: %v", p.Preferences)
	}
	if len(p.Itinerary) == 0 {
		t.Error("expected a generated itinerary")
	}
	if p.UserID == "" {
		t.Error("expected the plan to be owned by the signed-in user")
	}
	if cur := ctx.Plans.CurrentPlan(); cur == nil || cur.ID != p.ID {
		t.Error("expected the new plan to be current")
	}
}

func TestPlanNewSignedOutKeepsDraft(t *testing.T) {
	ctx := setupTestContext(t, false)

	if err := newTokyoCmd().Run(ctx); err != nil {
		t.Fatalf("plan new failed: %v", err)
	}
	if n := len(ctx.Plans.Plans()); n != 0 {
		t.Fatalf("expected no saved plans, got %d", n)
	}
	if !ctx.Plans.HasDraft() {
		t.Fatal("expected a pending draft")
	}

	if _, err := ctx.Auth.Login(constants.DemoEmail, constants.DemoPassword); err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}
	id, err := ctx.Plans.RecoverDraft()
	if err != nil {
		t.Fatalf("RecoverDraft failed: %v", err)
	}
	if _, ok := ctx.Plans.Plan(id); !ok {
		t.Error("expected the draft to become a plan")
	}
	if ctx.Plans.HasDraft() {
		t.Error("expected the draft to be cleared")
	}
}

func TestPlanNewValidation(t *testing.T) {
	ctx := setupTestContext(t, true)

	tests := []struct {
		name   string
		modify func(*PlanNewCmd)
		want   error
	}{
		{name: "missing destination", modify: func(c *PlanNewCmd) { c.Destination = " " }, want: models.ErrMissingDestination},
		{name: "zero budget", modify: func(c *PlanNewCmd) { c.Budget = 0 }, want: models.ErrInvalidBudget},
		{name: "no travelers", modify: func(c *PlanNewCmd) { c.Travelers = 0 }, want: models.ErrInvalidTravelers},
		{name: "end before start", modify: func(c *PlanNewCmd) { c.End = "2026-04-30" }, want: models.ErrInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTokyoCmd()
			tt.modify(cmd)
			if err := cmd.Run(ctx); err != tt.want {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(ctx.Plans.Plans()); n != 0 {
		t.Errorf("expected no plans after validation failures, got %d", n)
	}
}

func TestPlanNewSingleDay(t *testing.T) {
	ctx := setupTestContext(t, true)

	cmd := newTokyoCmd()
	cmd.End = ""
	cmd.NoItinerary = true
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("plan new failed: %v", err)
	}
	p := ctx.Plans.Plans()[0]
	if p.EndDate != p.StartDate {
		t.Errorf("expected end date to default to start, got %s", p.EndDate)
	}
	if len(p.Itinerary) != 0 {
		t.Errorf("expected no itinerary, got %d items", len(p.Itinerary))
	}
}

func TestPlanNewFromSentence(t *testing.T) {
	ctx := setupTestContext(t, true)

	cmd := &PlanNewCmd{
		Say:         "I want to go to Beijing for 2 people, budget 5000",
		Start:       "2026-06-01",
		End:         "2026-06-02",
		Travelers:   1,
		NoItinerary: true,
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("plan new failed: %v", err)
	}
	p := ctx.Plans.Plans()[0]
	if p.Destination == "" {
		t.Error("expected a destination from the sentence")
	}
	if p.Budget != 5000 {
		t.Errorf("expected budget 5000, got %v", p.Budget)
	}
	if p.Travelers != 2 {
		t.Errorf("expected 2 travelers, got %d", p.Travelers)
	}
}

func TestPlanListShowUseDelete(t *testing.T) {
	ctx := setupTestContext(t, true)
	for i := 0; i < 2; i++ {
		if err := newTokyoCmd().Run(ctx); err != nil {
			t.Fatalf("plan new failed: %v", err)
		}
	}
	plans := ctx.Plans.Plans()
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	first := plans[0].ID

	if err := (&PlanListCmd{ShowIDs: true}).Run(ctx); err != nil {
		t.Errorf("plan list failed: %v", err)
	}
	if err := (&PlanUseCmd{ID: first}).Run(ctx); err != nil {
		t.Fatalf("plan use failed: %v", err)
	}
	if cur := ctx.Plans.CurrentPlan(); cur == nil || cur.ID != first {
		t.Fatalf("expected %s to be current", first)
	}
	if err := (&PlanShowCmd{}).Run(ctx); err != nil {
		t.Errorf("plan show failed: %v", err)
	}
	if err := (&PlanShowCmd{Tips: true}).Run(ctx); err != nil {
		t.Errorf("plan show --tips failed: %v", err)
	}
	if err := (&PlanShowCmd{ID: "missing"}).Run(ctx); err == nil {
		t.Error("expected error for unknown plan")
	}

	if err := (&PlanDeleteCmd{ID: first, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("plan delete failed: %v", err)
	}
	if _, ok := ctx.Plans.Plan(first); ok {
		t.Error("expected plan to be deleted")
	}
	if ctx.Plans.CurrentPlan() != nil {
		t.Error("expected no current plan after deleting it")
	}
	if err := (&PlanDeleteCmd{ID: first, Yes: true}).Run(ctx); err == nil {
		t.Error("expected error deleting a missing plan")
	}
}

func TestPlanRegenerate(t *testing.T) {
	ctx := setupTestContext(t, true)
	cmd := newTokyoCmd()
	cmd.NoItinerary = true
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("plan new failed: %v", err)
	}

	if err := (&PlanRegenerateCmd{Remarks: "more museums"}).Run(ctx); err != nil {
		t.Fatalf("plan regenerate failed: %v", err)
	}
	if p := ctx.Plans.CurrentPlan(); p == nil || len(p.Itinerary) == 0 {
		t.Error("expected a regenerated itinerary")
	}
}

func TestPlanAnalyzeNeedsKey(t *testing.T) {
	ctx := setupTestContext(t, true)
	if err := newTokyoCmd().Run(ctx); err != nil {
		t.Fatalf("plan new failed: %v", err)
	}
	if err := (&PlanAnalyzeCmd{}).Run(ctx); err == nil {
		t.Error("expected error without an API key")
	}
}
