package syncserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/julianstephens/tripkit/internal/config"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Addr            string        `env:"SYNC_ADDR" env-default:":8000" env-description:"listen address"`
	DatabaseURL     string        `env:"DATABASE_URL" env-required:"true" env-description:"PostgreSQL connection string"`
	APIKey          string        `env:"SYNC_API_KEY" env-description:"required X-API-KEY value, empty disables auth"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" env-default:"*" env-description:"comma-separated CORS origins"`
	AllowedIPs      []string      `env:"ALLOWED_IPS" env-description:"comma-separated client IP allow-list"`
	RateLimit       float64       `env:"SYNC_RATE_LIMIT" env-default:"10" env-description:"requests per second per client IP, 0 disables"`
	RateBurst       int           `env:"SYNC_RATE_BURST" env-default:"20" env-description:"burst size per client IP"`
	ShutdownTimeout time.Duration `env:"SYNC_SHUTDOWN_TIMEOUT" env-default:"10s" env-description:"graceful shutdown timeout"`
	LogDir          string        `env:"SYNC_LOG_DIR" env-default:"." env-description:"directory for the logs/ folder"`
}

// LoadConfig loads envFiles (missing ones are skipped) and reads Config
// from the environment.
func LoadConfig(envFiles ...string) (Config, error) {
	config.LoadDotEnv(envFiles...)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("sync config: %w", err)
	}
	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)
	cfg.AllowedIPs = cleanList(cfg.AllowedIPs)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return cfg, nil
}

// Usage describes every environment variable.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c Config) allOrigins() bool {
	return len(c.AllowedOrigins) == 1 && c.AllowedOrigins[0] == "*"
}
