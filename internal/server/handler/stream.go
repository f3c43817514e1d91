package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/streamhub"
)

// pingInterval is how long the stream waits without a hub event before
// sending a keepalive ping (spec.md §6 "/stream").
const pingInterval = 30 * time.Second

// StreamHandler serves the hub's events as a server-sent event stream,
// translating the teacher's ws/hub.go ping-on-idle keepalive into SSE
// framing since the operator surface here is one-way push, not a duplex
// WebSocket.
type StreamHandler struct {
	hub    *streamhub.Hub
	logger *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(hub *streamhub.Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: logger}
}

// Stream upgrades the request to an SSE response and relays every hub event
// as a `data:` frame. When idle for pingInterval, it emits a `ping` event
// with an empty object payload.
// GET /stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if !writeSSE(w, "message", event) {
				return
			}
			flusher.Flush()
			ticker.Reset(pingInterval)
		case <-ticker.C:
			if !writeSSE(w, "ping", map[string]any{}) {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err == nil
}
