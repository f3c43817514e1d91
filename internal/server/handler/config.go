package handler

import (
	"net/http"

	"github.com/alanyoungcy/polymarketbot/internal/config"
)

// ConfigHandler serves the non-secret configuration snapshot.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GetConfig responds with the running configuration, recursively scrubbed of
// any field whose key looks like a secret (spec.md §6 "/config").
// GET /config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	redacted, err := config.Redacted(h.cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, redacted)
}
