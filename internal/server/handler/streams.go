package handler

import (
	"net/http"

	"github.com/alanyoungcy/polymarketbot/internal/feed"
	"github.com/alanyoungcy/polymarketbot/internal/streamhub"
)

// StreamsHandler serves the feed-by-feed status block.
type StreamsHandler struct {
	feeds *feed.Manager
	hub   *streamhub.Hub
}

// NewStreamsHandler creates a StreamsHandler.
func NewStreamsHandler(feeds *feed.Manager, hub *streamhub.Hub) *StreamsHandler {
	return &StreamsHandler{feeds: feeds, hub: hub}
}

// GetStreams responds with per-feed connectivity/error counters plus the
// stream hub's subscriber/event counters (spec.md §6 "/streams").
// GET /streams
func (h *StreamsHandler) GetStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"feeds": h.feeds.Status(),
		"hub":   h.hub.Status(),
	})
}
