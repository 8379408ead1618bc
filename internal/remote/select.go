package remote

import (
	"strings"

	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
)

// Select returns the first configured backend in the order Supabase, REST
// sync service, direct Postgres. With nothing configured it returns Disabled.
// The choice is made once; there is no fail-over between backends.
func Select(cfg models.APIConfig) Source {
	if s := NewSupabase(cfg.SupabaseURL, supabaseKey(cfg)); s.IsEnabled() {
		logger.Debug("Selected remote backend", "backend", s.Name())
		return s
	}
	if s := NewREST(cfg.SyncAPIBase, cfg.SyncAPIKey); s.IsEnabled() {
		logger.Debug("Selected remote backend", "backend", s.Name())
		return s
	}
	if strings.TrimSpace(cfg.PostgresURL) != "" {
		s, err := NewPostgres(cfg.PostgresURL)
		if err != nil {
			logger.Warn("Postgres remote not usable", "error", err)
		} else {
			logger.Debug("Selected remote backend", "backend", s.Name())
			return s
		}
	}
	return Disabled{}
}

func supabaseKey(cfg models.APIConfig) string {
	if cfg.SupabaseServiceRoleKey != "" {
		return cfg.SupabaseServiceRoleKey
	}
	return cfg.SupabaseAnonKey
}
