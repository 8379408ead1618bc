package account

import (
	"context"
	"errors"
	"testing"

	"github.com/julianstephens/tripkit/internal/auth"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/models"
)

func setupTestContext(t *testing.T) *cli.Context {
	t.Helper()
	for _, k := range []string{"TRIPKIT_OPENAI_API_KEY", "TRIPKIT_SUPABASE_URL", "TRIPKIT_SYNC_API_BASE", "TRIPKIT_POSTGRES_URL"} {
		t.Setenv(k, "")
	}

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
	return ctx
}

func TestAuthLoginDemo(t *testing.T) {
	ctx := setupTestContext(t)

	cmd := &AuthLoginCmd{Email: constants.DemoEmail, Password: constants.DemoPassword}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	user, err := ctx.Auth.CurrentUser()
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.Email != constants.DemoEmail {
		t.Errorf("Email = %q", user.Email)
	}
}

func TestAuthLoginWrongPassword(t *testing.T) {
	ctx := setupTestContext(t)

	err := (&AuthLoginCmd{Email: constants.DemoEmail, Password: "wrong-password"}).Run(ctx)
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
	if ctx.Auth.UserID() != "" {
		t.Error("signed in after a failed login")
	}
}

func TestAuthRegisterRecoversDraft(t *testing.T) {
	ctx := setupTestContext(t)

	draft, err := ctx.Plans.NewDraft(ctx.Ctx, models.TravelPlan{
		Destination: "Chengdu",
		StartDate:   "2026-06-01",
		EndDate:     "2026-06-02",
		Budget:      3000,
		Travelers:   1,
	}, "")
	if err != nil {
		t.Fatalf("NewDraft() error = %v", err)
	}
	if err := ctx.Plans.SaveDraft(draft); err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}

	cmd := &AuthRegisterCmd{Email: "traveler@example.com", Password: "secret123"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := ctx.Auth.CurrentUser()
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.Name != "traveler" {
		t.Errorf("Name = %q, want the email local part", user.Name)
	}
	if ctx.Plans.HasDraft() {
		t.Error("draft still pending after sign-in")
	}
	plans := ctx.Plans.Plans()
	if len(plans) != 1 || plans[0].UserID != user.ID || plans[0].Destination != "Chengdu" {
		t.Errorf("plans = %+v", plans)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	ctx := setupTestContext(t)

	tests := []struct {
		name string
		cmd  AuthRegisterCmd
		want error
	}{
		{"bad email", AuthRegisterCmd{Email: "not-an-email", Password: "secret123"}, auth.ErrInvalidEmail},
		{"short password", AuthRegisterCmd{Email: "a@example.com", Password: "123"}, auth.ErrWeakPassword},
		{"taken", AuthRegisterCmd{Email: constants.DemoEmail, Password: "secret123"}, auth.ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthLogoutAndWhoami(t *testing.T) {
	ctx := setupTestContext(t)

	// Both are no-ops while signed out.
	if err := (&AuthWhoamiCmd{}).Run(ctx); err != nil {
		t.Errorf("whoami signed out: %v", err)
	}
	if err := (&AuthLogoutCmd{}).Run(ctx); err != nil {
		t.Errorf("logout signed out: %v", err)
	}

	if _, err := ctx.Auth.Login(constants.DemoEmail, constants.DemoPassword); err != nil {
		t.Fatal(err)
	}
	if err := (&AuthWhoamiCmd{}).Run(ctx); err != nil {
		t.Errorf("whoami: %v", err)
	}
	if err := (&AuthLogoutCmd{}).Run(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := ctx.Auth.CurrentUser(); !errors.Is(err, auth.ErrNotSignedIn) {
		t.Errorf("CurrentUser() after logout error = %v, want ErrNotSignedIn", err)
	}
}
