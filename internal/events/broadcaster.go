package events

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader intentionally skips origin checking: this is an internal
// observability feed, not a public client surface.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 25 * time.Second
)

// ServeWS upgrades the request to a websocket and streams hub events to
// it until the client disconnects, with a ping/pong keepalive loop.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[EVENTS] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.Subscribe(32)
	defer unsubscribe()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// Drain and discard anything the client sends; this feed is
	// one-directional. Reading also lets us notice disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
