package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdul-hamid-achik/tinymask/internal/middleware"
)

// Dependencies holds everything the exporter routes need.
type Dependencies struct {
	Store          Pinger
	Backend        string
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter creates the exporter router: /health, /ready and /metrics.
func NewRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Metrics())
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	health := NewHealthHandler(deps.Store, deps.Backend, deps.RequestTimeout)
	r.Get("/health", health.Liveness)
	r.Get("/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
