package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/killswitch"
	"github.com/alanyoungcy/polymarketbot/internal/risk"
)

// StatusHandler serves the composite operator status endpoint: risk-manager
// status, breaker status, kill-switch status, and persistence stats
// (spec.md §6 "/status").
type StatusHandler struct {
	logger     *slog.Logger
	risk       *risk.Manager
	breaker    *breaker.Breaker
	killSwitch *killswitch.Switch
	store      domain.AggregateStore
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(logger *slog.Logger, riskMgr *risk.Manager, brk *breaker.Breaker, sw *killswitch.Switch, store domain.AggregateStore) *StatusHandler {
	return &StatusHandler{logger: logger, risk: riskMgr, breaker: brk, killSwitch: sw, store: store}
}

// GetStatus responds with the combined risk/breaker/kill-switch/persistence
// snapshot. A persistence read failure is logged and reported as a null
// field rather than failing the whole response, since the in-memory
// components remain authoritative and available.
// GET /status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	dailyPnL, err := h.store.DailyPnL(r.Context())
	var persistence map[string]any
	if err != nil {
		h.logger.Error("status: daily pnl query failed", slog.String("error", err.Error()))
		persistence = map[string]any{"daily_pnl": nil, "error": "unavailable"}
	} else {
		persistence = map[string]any{"daily_pnl": dailyPnL}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"risk":        h.risk.Status(),
		"breaker":     h.breaker.Status(),
		"kill_switch": h.killSwitch.Status(),
		"persistence": persistence,
	})
}
