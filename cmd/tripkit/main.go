package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/cli/account"
	"github.com/julianstephens/tripkit/internal/cli/backups"
	"github.com/julianstephens/tripkit/internal/cli/plans"
	"github.com/julianstephens/tripkit/internal/cli/services"
	"github.com/julianstephens/tripkit/internal/cli/settings"
	"github.com/julianstephens/tripkit/internal/cli/system"
	"github.com/julianstephens/tripkit/internal/config"
	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/errors"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/utils"
)

var CLI struct {
	Version   kong.VersionFlag
	Store     string `help:"Local store: a .db (SQLite) or .json file path, a redis:// URL, or :memory:." default:"${store}" env:"TRIPKIT_STORE"`
	ConfigDir string `help:"Directory holding config.json and logs." default:"${config_dir}" env:"TRIPKIT_CONFIG_DIR"`
	Debug     bool   `help:"Log debug output to stderr."`
	NoKeyring bool   `help:"Keep secrets and sessions in files instead of the OS keyring."`

	Init   system.InitCmd   `cmd:"" help:"Initialize tripkit storage."`
	Doctor system.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Tui    system.TuiCmd    `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Sync   system.SyncCmd   `cmd:"" help:"Reconcile plans with the remote backend."`
	Stats  system.StatsCmd  `cmd:"" help:"Show statistics across plans."`
	Plan   struct {
		New        plans.PlanNewCmd        `cmd:"" help:"Create a plan and generate its itinerary."`
		List       plans.PlanListCmd       `cmd:"" help:"List plans." default:"1"`
		Show       plans.PlanShowCmd       `cmd:"" help:"Show a plan and its itinerary."`
		Use        plans.PlanUseCmd        `cmd:"" help:"Select the current plan."`
		Delete     plans.PlanDeleteCmd     `cmd:"" help:"Delete a plan."`
		Regenerate plans.PlanRegenerateCmd `cmd:"" help:"Regenerate a plan's itinerary."`
		Analyze    plans.PlanAnalyzeCmd    `cmd:"" help:"Ask the language model for a budget analysis."`
	} `cmd:"" help:"Manage travel plans."`
	Item struct {
		Add    plans.ItemAddCmd    `cmd:"" help:"Add an itinerary item to the current plan."`
		Edit   plans.ItemEditCmd   `cmd:"" help:"Edit an itinerary item."`
		Remove plans.ItemRemoveCmd `cmd:"" help:"Remove an itinerary item."`
	} `cmd:"" help:"Manage itinerary items."`
	Expense struct {
		Add    plans.ExpenseAddCmd    `cmd:"" help:"Record an expense on the current plan."`
		Edit   plans.ExpenseEditCmd   `cmd:"" help:"Edit an expense."`
		Remove plans.ExpenseRemoveCmd `cmd:"" help:"Remove an expense."`
		List   plans.ExpenseListCmd   `cmd:"" help:"List a plan's expenses." default:"1"`
	} `cmd:"" help:"Track expenses."`
	Auth struct {
		Login    account.AuthLoginCmd    `cmd:"" help:"Sign in."`
		Register account.AuthRegisterCmd `cmd:"" help:"Create an account."`
		Logout   account.AuthLogoutCmd   `cmd:"" help:"Sign out."`
		Whoami   account.AuthWhoamiCmd   `cmd:"" help:"Show the signed-in user." default:"1"`
	} `cmd:"" help:"Manage the signed-in account."`
	Config struct {
		Show  settings.ConfigShowCmd  `cmd:"" help:"Show the effective configuration." default:"1"`
		Set   settings.ConfigSetCmd   `cmd:"" help:"Set a configuration value."`
		Unset settings.ConfigUnsetCmd `cmd:"" help:"Clear a configuration value."`
		Reset settings.ConfigResetCmd `cmd:"" help:"Delete the stored configuration."`
		Test  settings.ConfigTestCmd  `cmd:"" help:"Check every configured service."`
	} `cmd:"" help:"Manage API configuration."`
	Places struct {
		Search services.PlacesSearchCmd `cmd:"" help:"Search points of interest." default:"withargs"`
	} `cmd:"" help:"Search places with the map service."`
	Voice struct {
		Parse      services.VoiceParseCmd      `cmd:"" help:"Extract trip details from a sentence."`
		Transcribe services.VoiceTranscribeCmd `cmd:"" help:"Transcribe an audio file."`
	} `cmd:"" help:"Voice input."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage local store backups."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("tripkit"),
		kong.Description("Travel planner with generated itineraries, expense tracking and sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":    constants.Version,
			"store":      constants.DefaultStorePath,
			"config_dir": constants.DefaultConfigDir,
		},
	)

	configDir, err := utils.ExpandPath(CLI.ConfigDir)
	if err != nil {
		errors.Fatal(err)
	}
	storePath, err := utils.ExpandPath(CLI.Store)
	if err != nil {
		errors.Fatal(err)
	}

	command := kctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: configDir,
		Quiet:     command == "tui",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx, err := cli.NewContext(cli.Options{
		Ctx:        ctx,
		StorePath:  storePath,
		ConfigDir:  configDir,
		UseKeyring: !CLI.NoKeyring,
	})
	if err != nil {
		errors.Fatal(err)
	}

	// Init handles its own loading.
	if command != "init" {
		if err := appCtx.Open(); err != nil {
			appCtx.Close()
			errors.Fatal(err)
		}
	}

	err = kctx.Run(appCtx)
	appCtx.Close()
	if err != nil {
		errors.Fatal(err)
	}
}
