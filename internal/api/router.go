package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in GET /api/health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/heating", func(r chi.Router) {
			r.Get("/", s.handleListHeatingSystems)
			r.Get("/telemetry/ws", s.handleTelemetryWebSocket)
			r.Get("/{id}", s.handleGetHeatingSystem)
			r.Get("/{id}/current-temperature", s.handleGetCurrentTemperature)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Post("/", s.handleProvisionHeatingSystem)
				r.Put("/{id}", s.handleUpdateHeatingSystem)
				r.Delete("/{id}", s.handleRemoveHeatingSystem)
				r.Post("/{id}/turn-on", s.handleTurnOn)
				r.Post("/{id}/turn-off", s.handleTurnOff)
				r.Post("/{id}/set-temperature", s.handleSetTemperature)
				r.Post("/{id}/commands", s.handleSubmitCommand)
			})
		})
	})

	return r
}

// handleHealth reports the server and each registered component.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, checker := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"ws_clients": s.hub.ClientCount(),
	})
}
