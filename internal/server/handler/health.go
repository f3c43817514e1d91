package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// Version is the build version reported by /health. There is no build-time
// injection mechanism wired up yet, so this is a static fallback.
const Version = "0.1.0"

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	logger *slog.Logger
	dryRun bool
}

// NewHealthHandler creates a HealthHandler with the provided logger and the
// deployment's dry-run flag (spec.md §6).
func NewHealthHandler(logger *slog.Logger, dryRun bool) *HealthHandler {
	return &HealthHandler{logger: logger, dryRun: dryRun}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"dry_run":   h.dryRun,
	})
}
