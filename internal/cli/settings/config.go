package settings

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/config"
	"github.com/julianstephens/tripkit/internal/remote"
	"github.com/julianstephens/tripkit/internal/voice"
)

// mask hides all but the last four characters of a secret.
func mask(v string) string {
	if v == "" || v == config.KeyringMarker {
		return v
	}
	r := []rune(v)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

type ConfigShowCmd struct {
	Reveal bool `help:"Print secrets in full."`
	Stored bool `help:"Show only what the config file holds, without environment defaults."`
}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	cfg := ctx.API
	if c.Stored {
		stored, err := ctx.Config.Stored()
		if err != nil {
			return err
		}
		cfg = stored
	}

	fmt.Printf("Config file: %s\n\n", ctx.Config.Path())
	for _, f := range cfg.Fields() {
		value := *f.Value
		if f.Secret && !c.Reveal {
			value = mask(value)
		}
		if value == "" {
			value = "(not set)"
		}
		fmt.Printf("  %-26s %s\n", f.Name, value)
	}
	fmt.Printf("\nEnvironment variables use the %s prefix, e.g. %s.\n", config.EnvPrefix, config.EnvName("openai_api_key"))
	return nil
}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Config key, e.g. openai_api_key."`
	Value string `arg:"" help:"New value."`
}

func (c *ConfigSetCmd) Run(ctx *cli.Context) error {
	if err := ctx.Config.Set(c.Key, c.Value); err != nil {
		return err
	}
	fmt.Printf("✓ %s updated\n", c.Key)
	return nil
}

type ConfigUnsetCmd struct {
	Key string `arg:"" help:"Config key to clear."`
}

func (c *ConfigUnsetCmd) Run(ctx *cli.Context) error {
	if err := ctx.Config.Unset(c.Key); err != nil {
		return err
	}
	fmt.Printf("✓ %s cleared\n", c.Key)
	return nil
}

type ConfigResetCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *ConfigResetCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		fmt.Printf("Remove %s and every secret it keeps in the keyring? [y/N]: ", ctx.Config.Path())
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}
	if err := ctx.Config.Reset(); err != nil {
		return err
	}
	fmt.Println("✓ Configuration reset")
	return nil
}

type ConfigTestCmd struct{}

// Run reloads the config from disk so a key set a moment ago is tested.
func (c *ConfigTestCmd) Run(ctx *cli.Context) error {
	cfg, err := ctx.Config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Language model:")
	client := ai.NewClient(cfg)
	result := client.TestConnection(ctx.Ctx)
	status := "✗"
	if result.OK {
		status = "✓"
	}
	fmt.Printf("  %s %s (%s, model %s)\n", status, result.Message, cfg.OpenAIBaseURL, client.Model())
	if len(result.Models) > 0 {
		shown := result.Models
		if len(shown) > 5 {
			shown = shown[:5]
		}
		fmt.Printf("    %s\n", strings.Join(shown, ", "))
	}

	fmt.Println("Remote plans:")
	src := remote.Select(cfg)
	if closer, ok := src.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	if src.IsEnabled() {
		fmt.Printf("  ✓ %s\n", src.Name())
	} else {
		fmt.Println("  ✗ no remote configured, plans stay local")
	}

	fmt.Println("Places search:")
	if cfg.AmapKey == "" {
		fmt.Println("  ✗ amap_key not set")
	} else {
		fmt.Println("  ✓ amap_key set")
	}

	fmt.Println("Speech recognition:")
	if voice.NewClient(voice.Config{AppID: cfg.XunfeiAppID, APIKey: cfg.XunfeiAPIKey, APISecret: cfg.XunfeiAPISecret}).Configured() {
		fmt.Println("  ✓ xunfei credentials set")
	} else {
		fmt.Println("  ✗ xunfei_app_id, xunfei_api_key and xunfei_api_secret are required")
	}
	return nil
}
