package http

import (
	"log"
	"net/http"

	"quizforge-service/internal/domain"
)

type outboundMessage struct {
	Type    string              `json:"type"`
	Payload domain.AttemptEvent `json:"payload"`
}

// serveAttemptFeed upgrades the request to a websocket and streams the
// caller's newly recorded attempts until the client disconnects.
func (h *Handler) serveAttemptFeed(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.service.SubscribeAttempts(ownerID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Drain the connection so client close frames are noticed.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "attempt", Payload: event}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
