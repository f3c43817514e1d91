package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/killswitch"
	"github.com/alanyoungcy/polymarketbot/internal/risk"
)

// KillSwitchHandler serves the two authenticated kill-switch endpoints. Both
// failure modes return the same generic body so a caller cannot distinguish
// a missing token from an invalid one beyond the status code (spec.md §7
// "fail-closed indistinguishability").
type KillSwitchHandler struct {
	sw      *killswitch.Switch
	risk    *risk.Manager
	breaker *breaker.Breaker
	events  domain.EventStore
	logger  *slog.Logger
}

// NewKillSwitchHandler creates a KillSwitchHandler.
func NewKillSwitchHandler(sw *killswitch.Switch, riskMgr *risk.Manager, brk *breaker.Breaker, events domain.EventStore, logger *slog.Logger) *KillSwitchHandler {
	return &KillSwitchHandler{sw: sw, risk: riskMgr, breaker: brk, events: events, logger: logger}
}

type killSwitchRequest struct {
	Reason string `json:"reason"`
}

// Activate trips the kill switch, halts the risk manager, and trips the
// breaker, then persists a critical event (spec.md §6 "/kill-switch").
// POST /kill-switch
func (h *KillSwitchHandler) Activate(w http.ResponseWriter, r *http.Request) {
	token, ok := extractBearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.sw.ValidateToken(token) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req killSwitchRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	reason := req.Reason
	if reason == "" {
		reason = "activated via /kill-switch"
	}

	if err := h.sw.Activate(reason); err != nil {
		h.logger.Error("kill switch: sentinel write failed", slog.String("error", err.Error()))
	}
	h.risk.Halt(reason)
	h.breaker.Trip(reason)

	if err := h.events.LogEvent(r.Context(), "kill_switch_activated", domain.SeverityCritical, map[string]any{"reason": reason}); err != nil {
		h.logger.Error("kill switch: event log failed", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": h.sw.Status()})
}

// Deactivate reverses Activate's effects: clears the switch and resumes the
// risk manager. The breaker is left untouched; it recovers on its own
// cooldown/staleness timeline rather than being force-closed (spec.md §4.7).
// POST /kill-switch/deactivate
func (h *KillSwitchHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	token, ok := extractBearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.sw.ValidateToken(token) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.sw.Deactivate(); err != nil {
		h.logger.Error("kill switch: sentinel removal failed", slog.String("error", err.Error()))
	}
	h.risk.Resume()

	if err := h.events.LogEvent(r.Context(), "kill_switch_deactivated", domain.SeverityWarning, nil); err != nil {
		h.logger.Error("kill switch: event log failed", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": h.sw.Status()})
}
