package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/events"
)

// defaultPingInterval keeps idle proxies from closing the stream.
const defaultPingInterval = 25 * time.Second

// EventsHandler streams the caller's change feed as server-sent events.
type EventsHandler struct {
	hub          *events.Hub
	logger       *slog.Logger
	pingInterval time.Duration
}

func NewEventsHandler(hub *events.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger, pingInterval: defaultPingInterval}
}

// HandleEvents
//
// HTTP: GET /api/events
//
// The stream opens with "event: ready", then carries one event per note
// change:
//
//	event: note.updated
//	data: {"type":"note.updated","noteId":"...","at":"..."}
//
// plus a ": ping" comment every pingInterval. Clients re-fetch on any event.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	userID := actorID(r)
	if userID == "" {
		writeError(w, apperror.Unauthenticated())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The server's WriteTimeout would cut the stream; lift it for this
	// response only. Recorders in tests do not support deadlines.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", slog.String("error", err.Error()))
	}

	feed, cancel := h.hub.Subscribe(userID)
	defer cancel()

	fmt.Fprint(w, "event: ready\ndata: ok\n\n")
	flusher.Flush()
	h.logger.Debug("event stream opened", slog.String("user", userID))

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("event stream closed", slog.String("user", userID))
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to encode event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
