// Package http exposes the gateway's REST surface.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/metrics"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

func NewRouter(handler *Handler, limiter ports.RateLimiter, m *metrics.Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(metricsMiddleware(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ready") })
	r.Get("/health", handler.health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(limiter))
		r.Post("/predict", handler.submitPrediction)
	})
	r.Get("/predict/{request_id}", handler.getPrediction)

	return r
}
