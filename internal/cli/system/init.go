package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/localstore"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting the existing store before initialization."`
	Source string `help:"Another store (path or redis URL) to copy plans from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.KV.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized tripkit storage at: %s\n", ctx.KV.Location())

	if c.Source != "" {
		fmt.Printf("Copying plans from: %s\n", c.Source)
		n, err := c.copyPlans(ctx)
		if err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Printf("Copied %d plan(s).\n", n)
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	backend := localstore.Backend(ctx.KV)
	if backend != "sqlite" && backend != "json" {
		return fmt.Errorf("--force only applies to file stores, not %s", backend)
	}
	path := ctx.KV.Location()
	if c.Source != "" {
		absPath, err1 := filepath.Abs(path)
		absSource, err2 := filepath.Abs(c.Source)
		if err1 == nil && err2 == nil && absPath == absSource {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", path)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := ctx.KV.Close(); err != nil {
			return fmt.Errorf("failed to close existing store: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete existing store: %w", err)
		}
		fmt.Printf("Deleted existing store at: %s\n", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing store: %w", err)
	}
	return nil
}

func (c *InitCmd) copyPlans(ctx *cli.Context) (int, error) {
	src := localstore.NewKV(c.Source)
	if err := src.Load(); err != nil {
		if errors.Is(err, localstore.ErrNotInitialized) {
			return 0, fmt.Errorf("source store %s does not exist", c.Source)
		}
		return 0, err
	}
	defer src.Close()

	srcStore := localstore.New(src)
	plans := srcStore.Load()
	ctx.Local.Save(plans)
	if id := srcStore.LoadCurrentID(); id != "" {
		ctx.Local.SaveCurrentID(id)
	}
	return len(plans), nil
}
