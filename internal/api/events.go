package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/practicehub/sheet-engine/internal/hierarchy"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventHub fans store change events out to websocket subscribers. A
// slow subscriber drops events instead of blocking the mutation path.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan hierarchy.Event]struct{}
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[chan hierarchy.Event]struct{}),
	}
}

// Publish delivers an event to every subscriber. It satisfies
// hierarchy.Observer and never blocks.
func (h *EventHub) Publish(e hierarchy.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Subscriber buffer full; the event is dropped.
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func must
// be called when the subscriber goes away.
func (h *EventHub) Subscribe() (<-chan hierarchy.Event, func()) {
	ch := make(chan hierarchy.Event, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// handleEvents streams one JSON event per committed mutation over a
// websocket, so the rendering layer can refresh without polling.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.events.Subscribe()
	defer cancel()

	slog.Info("events websocket connected", "remote_addr", r.RemoteAddr)

	// Drain the read side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			slog.Info("events websocket disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("failed to send event", "error", err)
				return
			}
		}
	}
}
