package nativeapi

import (
	"net/http"
	"strconv"
	"time"

	"torrentstream/internal/domain"

	"github.com/gorilla/websocket"
)

// wsUpgrader leaves origin checking to the CORS middleware wrapping the
// whole mux rather than re-litigating it here.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEventsWS is the convenience mirror of handleEvents for subscribers
// that prefer a socket over SSE: same resume-from-Last-Event-ID semantics,
// carried as an "?since=" query param instead of a header since a WS upgrade
// request has no field for it, same gap/keep-alive framing as distinct
// message types instead of SSE comment lines.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	var since domain.EventID
	if raw := r.URL.Query().Get("since"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			since = domain.EventID(n)
		}
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sub := s.bus.Subscribe(ctx, since)
	if sub.Gap {
		if err := conn.WriteJSON(wsFrame{Type: "gap"}); err != nil {
			return
		}
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
			if err := conn.WriteJSON(wsFrame{Type: "event", Event: &envelope}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// wsFrame is the envelope written onto the socket: "gap" carries no Event,
// "event" always does.
type wsFrame struct {
	Type  string                `json:"type"`
	Event *domain.EventEnvelope `json:"event,omitempty"`
}
