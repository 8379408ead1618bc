package account

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tripkit/internal/auth"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/models"
)

// promptPassword asks for a password without echoing it.
func promptPassword(title string, value *string) error {
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(value).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("cancelled")
	}
	return err
}

// afterSignIn pulls remote plans for the new session and saves any draft
// that was created while signed out.
func afterSignIn(ctx *cli.Context, user models.User) {
	fmt.Printf("✓ Signed in as %s <%s>\n", user.Name, user.Email)
	ctx.Plans.LoadPlans(ctx.Ctx)

	id, err := ctx.Plans.RecoverDraft()
	if err != nil {
		fmt.Printf("⚠ Could not save the pending draft: %v\n", err)
		return
	}
	if id != "" {
		if p, ok := ctx.Plans.Plan(id); ok {
			fmt.Printf("✓ Saved pending draft %q (ID: %s)\n", p.Title, id)
		}
	}
}

type AuthLoginCmd struct {
	Email    string `arg:"" help:"Account email."`
	Password string `short:"p" help:"Password. Prompted for when omitted." env:"TRIPKIT_PASSWORD"`
}

func (c *AuthLoginCmd) Run(ctx *cli.Context) error {
	if c.Password == "" {
		if err := promptPassword("Password", &c.Password); err != nil {
			return err
		}
	}
	user, err := ctx.Auth.Login(c.Email, c.Password)
	if err != nil {
		return err
	}
	afterSignIn(ctx, user)
	return nil
}

type AuthRegisterCmd struct {
	Email    string `arg:"" help:"Account email."`
	Name     string `short:"n" help:"Display name. Defaults to the part of the email before @."`
	Password string `short:"p" help:"Password (at least 6 characters). Prompted for when omitted." env:"TRIPKIT_PASSWORD"`
}

func (c *AuthRegisterCmd) Run(ctx *cli.Context) error {
	if c.Password == "" {
		var confirm string
		if err := promptPassword("Password", &c.Password); err != nil {
			return err
		}
		if err := promptPassword("Confirm password", &confirm); err != nil {
			return err
		}
		if c.Password != confirm {
			return errors.New("passwords do not match")
		}
	}
	user, err := ctx.Auth.Register(c.Email, c.Password, c.Name)
	if err != nil {
		return err
	}
	afterSignIn(ctx, user)
	return nil
}

type AuthLogoutCmd struct{}

func (c *AuthLogoutCmd) Run(ctx *cli.Context) error {
	user, err := ctx.Auth.CurrentUser()
	if errors.Is(err, auth.ErrNotSignedIn) {
		fmt.Println("Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}
	if err := ctx.Auth.Logout(); err != nil {
		return err
	}
	fmt.Printf("✓ Signed out %s\n", user.Email)
	return nil
}

type AuthWhoamiCmd struct{}

func (c *AuthWhoamiCmd) Run(ctx *cli.Context) error {
	user, err := ctx.Auth.CurrentUser()
	if errors.Is(err, auth.ErrNotSignedIn) {
		fmt.Println("Not signed in. Use 'tripkit auth login <email>'.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	fmt.Printf("  ID:      %s\n", user.ID)
	fmt.Printf("  Since:   %s\n", strings.SplitN(user.CreatedAt, "T", 2)[0])
	fmt.Printf("  Plans:   %d\n", len(ctx.Plans.Plans()))
	if ctx.Plans.HasDraft() {
		fmt.Println("  A pending draft is waiting to be saved.")
	}
	return nil
}
