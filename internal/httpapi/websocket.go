package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is CORS-open; the stream carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and pushes live simulated ticks for
// the currently displayed instrument until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.simulator == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation disabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, ticks := s.simulator.Subscribe(64)
	defer s.simulator.Unsubscribe(subID)

	s.log.Info("stream client connected", "subID", subID)

	// Read pump: discard inbound frames, detect disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current live values immediately so the client does not wait a
	// full tick interval for its first update.
	if tick, ok := s.simulator.Current(); ok {
		if err := conn.WriteJSON(tick); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			s.log.Info("stream client disconnected", "subID", subID)
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			if err := conn.WriteJSON(tick); err != nil {
				return
			}
		}
	}
}
