// Package syncserver is the self-hosted sync service behind the "rest"
// remote backend. It stores travel plans and expenses in PostgreSQL.
package syncserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/julianstephens/tripkit/internal/logger"
)

type Server struct {
	cfg      Config
	repo     Repository
	registry *prometheus.Registry
	metrics  *metrics
	limiter  *ipLimiter
}

func New(cfg Config, repo Repository) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		repo:     repo,
		registry: reg,
		metrics:  newMetrics(reg),
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// Handler returns the full HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Use(s.allowIPs)
		r.Use(s.rateLimit)

		r.Route("/travel_plans", func(r chi.Router) {
			r.Get("/", s.listPlans)
			r.Post("/", s.upsertPlan)
			r.Get("/{id}", s.getPlan)
			r.Patch("/{id}", s.patchPlan)
			r.Delete("/{id}", s.deletePlan)
		})
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.listExpenses)
			r.Post("/", s.upsertExpense)
			r.Patch("/{id}", s.patchExpense)
			r.Delete("/{id}", s.deleteExpense)
		})
	})

	return s.cors().Handler(r)
}

func (s *Server) cors() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: !s.cfg.allOrigins(),
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Sync service listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down sync service")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// serverError logs err and answers with an opaque 500.
func serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.Error("Request failed", "op", op, "id", middleware.GetReqID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "server_error")
}
