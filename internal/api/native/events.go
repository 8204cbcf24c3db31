package nativeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"torrentstream/internal/domain"
)

const keepAliveInterval = 20 * time.Second

// handleEvents streams the event bus as Server-Sent Events, resuming from
// Last-Event-ID when present. One goroutine per connection, torn down the
// moment the client disconnects (ctx.Done cancels the bus subscription).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var since domain.EventID
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if n, err := strconv.ParseUint(last, 10, 64); err == nil {
			since = domain.EventID(n)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sub := s.bus.Subscribe(ctx, since)
	if sub.Gap {
		// since predates everything still resident in the ring: the
		// client missed events it can never recover from this stream
		// alone and should fall back to a full GET /torrents resync.
		if _, err := fmt.Fprint(w, ":gap\n\n"); err != nil {
			return
		}
		flusher.Flush()
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case envelope, open := <-sub.Events:
			if !open {
				return
			}
			if err := writeSSEEvent(w, envelope); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ":keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, envelope domain.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", envelope.ID, envelope.Event.Kind, payload)
	return err
}
