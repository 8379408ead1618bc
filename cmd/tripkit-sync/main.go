package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/errors"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/syncserver"
)

var CLI struct {
	Version kong.VersionFlag
	Env     string `help:"Environment file loaded before reading the environment." default:".env" type:"path"`
	Debug   bool   `help:"Log debug output."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("tripkit-sync"),
		kong.Description("Self-hosted sync service for tripkit plans.\n\nEnvironment:\n"+syncserver.Usage()),
		kong.UsageOnError(),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := syncserver.LoadConfig(CLI.Env)
	if err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: cfg.LogDir,
		Server:    true,
		Name:      "tripkit-sync",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := syncserver.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		errors.Fatal(err)
	}

	err = syncserver.New(cfg, repo).ListenAndServe(ctx)
	repo.Close()
	if err != nil {
		errors.Fatal(err)
	}
}
