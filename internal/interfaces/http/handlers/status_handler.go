package handlers

import (
	"net/http"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// StatusHandler reports service metadata and store key counts.
type StatusHandler struct {
	store  redis.Store
	cfg    *config.Config
	logger logging.Logger
}

func NewStatusHandler(store redis.Store, cfg *config.Config, logger logging.Logger) *StatusHandler {
	return &StatusHandler{store: store, cfg: cfg, logger: logger}
}

// StatusResponse is the GET /status body.
type StatusResponse struct {
	Service      string           `json:"service"`
	Version      string           `json:"version"`
	BabelVersion string           `json:"babel_version,omitempty"`
	BatchSize    int              `json:"batch_size"`
	KeyCounts    map[string]int64 `json:"key_counts"`
}

// Get handles GET /status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int64, len(config.StoreNames))
	for _, name := range config.StoreNames {
		n, err := h.store.DBSize(r.Context(), name)
		if err != nil {
			h.logger.Error("Key count failed",
				logging.String("store", name), logging.Err(err))
			writeAppError(w, err)
			return
		}
		counts[name] = n
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Service:      "nodenorm",
		Version:      h.cfg.Version,
		BabelVersion: h.cfg.BabelVersion,
		BatchSize:    h.cfg.Stores.BatchSize,
		KeyCounts:    counts,
	})
}
