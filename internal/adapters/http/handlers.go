package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/application"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/domain"
)

type Handler struct {
	gateway *application.Gateway
	service string
	version string
	kafkaOK func() bool
}

// NewHandler wires the API handlers. kafkaOK feeds the health payload's
// kafka_connected flag; nil means "assume connected".
func NewHandler(gateway *application.Gateway, service, version string, kafkaOK func() bool) *Handler {
	if kafkaOK == nil {
		kafkaOK = func() bool { return true }
	}
	return &Handler{gateway: gateway, service: service, version: version, kafkaOK: kafkaOK}
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (h *Handler) submitPrediction(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	requestID, err := h.gateway.Submit(r.Context(), req.Text)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		RequestID: requestID,
		Status:    string(domain.TaskStatusPending),
		Message:   "Request enqueued for processing",
	})
}

type pendingResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

func (h *Handler) getPrediction(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	entry, err := h.gateway.Status(r.Context(), requestID)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	if !entry.Status.Terminal() {
		writeJSON(w, http.StatusAccepted, pendingResponse{
			RequestID: requestID,
			Status:    string(domain.TaskStatusPending),
		})
		return
	}
	writeJSON(w, http.StatusOK, entry.Result)
}

type healthResponse struct {
	Service        string `json:"service"`
	Status         string `json:"status"`
	Version        string `json:"version"`
	KafkaConnected bool   `json:"kafka_connected"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	connected := h.kafkaOK()
	status := "healthy"
	if !connected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Service:        h.service,
		Status:         status,
		Version:        h.version,
		KafkaConnected: connected,
	})
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "request id unknown or evicted"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", err.Error()
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "failed to enqueue request"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
