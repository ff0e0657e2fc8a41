package handlers

import (
	"context"
	"net/http"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// Pinger is the readiness dependency, satisfied by the store layer.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pinger Pinger
	logger logging.Logger
}

func NewHealthHandler(pinger Pinger, logger logging.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// Liveness reports that the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports whether the stores answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Warn("Readiness ping failed", logging.Err(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
