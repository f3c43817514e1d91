package handler

import (
	"net/http"

	"github.com/alanyoungcy/polymarketbot/internal/latency"
)

// LatencyHandler serves the rolling latency percentile snapshot.
type LatencyHandler struct {
	tracker *latency.Tracker
}

// NewLatencyHandler creates a LatencyHandler.
func NewLatencyHandler(tracker *latency.Tracker) *LatencyHandler {
	return &LatencyHandler{tracker: tracker}
}

// GetLatency responds with the rolling P50/P95/P99 percentiles plus the last
// 5 completed-trade samples (spec.md §6 "/latency").
// GET /latency
func (h *LatencyHandler) GetLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         h.tracker.Status(),
		"recent_samples": h.tracker.RecentSamples(5),
	})
}
