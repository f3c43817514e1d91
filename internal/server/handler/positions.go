package handler

import (
	"net/http"

	"github.com/alanyoungcy/polymarketbot/internal/position"
)

// PositionsHandler serves the open-position ledger.
type PositionsHandler struct {
	tracker *position.Tracker
}

// NewPositionsHandler creates a PositionsHandler.
func NewPositionsHandler(tracker *position.Tracker) *PositionsHandler {
	return &PositionsHandler{tracker: tracker}
}

// GetPositions responds with the open positions ledger and total open
// exposure (spec.md §6 "/positions").
// GET /positions
func (h *PositionsHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"positions":      h.tracker.OpenPositions(),
		"arbitrage_pairs": h.tracker.OpenArbitragePairs(),
		"total_exposure": h.tracker.OpenExposure(),
	})
}
