// Package http assembles the public router: middleware chain, CORS policy,
// feature routes, and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"didreg/internal/platform/middleware"
	regHandler "didreg/internal/registrar/handler"
	"didreg/internal/transport/http/shared"
)

// HealthCheck names one dependency probe run by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter wires all public endpoints. The CORS policy is deliberately
// permissive: the registrar is a development-facing service consumed from
// browser consoles on arbitrary origins.
func NewRouter(registrar *regHandler.Handler, logger *slog.Logger, checks ...HealthCheck) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(middleware.AllowOptions)

	r.NotFound(shared.NotFound)
	r.MethodNotAllowed(shared.MethodNotAllowed)

	registrar.Register(r)

	r.Get("/healthz", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func handleHealth(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for _, check := range checks {
			if err := check.Check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[check.Name] = err.Error()
				continue
			}
			body[check.Name] = "ok"
		}
		shared.WriteJSON(w, status, body)
	}
}
