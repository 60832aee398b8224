package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/port"
)

// DebugHandler handles debug endpoint requests
type DebugHandler struct {
	stats  port.StatsRepository
	logger *zap.Logger
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(stats port.StatsRepository, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{
		stats:  stats,
		logger: logger,
	}
}

// HandleStats handles debug statistics requests
func (h *DebugHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.stats.GetShareStats()
	if err != nil {
		h.logger.Error("failed to get share stats", zap.Error(err))
		http.Error(w, "Failed to get share stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
