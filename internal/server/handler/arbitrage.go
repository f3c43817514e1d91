package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/feed"
)

// ArbitrageHandler serves the latest combined snapshot and detector output.
type ArbitrageHandler struct {
	feeds *feed.Manager
}

// NewArbitrageHandler creates an ArbitrageHandler.
func NewArbitrageHandler(feeds *feed.Manager) *ArbitrageHandler {
	return &ArbitrageHandler{feeds: feeds}
}

// GetArbitrage responds with the current Polymarket/Kalshi snapshots plus
// every neighborhood check and the subset that clears the arbitrage
// threshold (spec.md §6 "/arbitrage").
// GET /arbitrage
func (h *ArbitrageHandler) GetArbitrage(w http.ResponseWriter, r *http.Request) {
	poly, kalshiSnap := h.feeds.Snapshots()
	checks, opportunities := h.feeds.DetectNow()
	status := h.feeds.Status()

	var errs []string
	if status.KalshiErrors > 0 {
		errs = append(errs, fmt.Sprintf("kalshi: %d poll errors", status.KalshiErrors))
	}
	if status.PolyErrors > 0 {
		errs = append(errs, fmt.Sprintf("polymarket: %d feed errors", status.PolyErrors))
	}
	if !status.RefPriceConnected {
		errs = append(errs, "reference price feed disconnected")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"polymarket":    poly,
		"kalshi":        kalshiSnap,
		"checks":        checks,
		"opportunities": opportunities,
		"errors":        errs,
	})
}
