package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/inam-1906/datock-website/internal/email"
)

// readyTimeout bounds the provider probe run by Ready
const readyTimeout = 5 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}

// Health returns the health status of the service
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
		Services: map[string]string{
			"email": h.sender.Name(),
		},
	})
}

// Ready reports whether inquiries can be delivered. Providers that support
// it are probed; the rest are assumed ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{}
	status := "ready"
	code := http.StatusOK

	if checker, ok := h.sender.(email.Checker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := checker.Check(ctx); err != nil {
			h.log.Warn().Err(err).Str("provider", h.sender.Name()).Msg("Email provider not ready")
			services[h.sender.Name()] = "unavailable"
			status = "not ready"
			code = http.StatusServiceUnavailable
		} else {
			services[h.sender.Name()] = "available"
		}
	} else {
		services[h.sender.Name()] = "unchecked"
	}

	writeJSON(w, code, HealthResponse{
		Status:   status,
		Version:  Version,
		Services: services,
	})
}
