package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/search"
)

const (
	writeWait      = 5 * time.Second
	subscriberSend = 64
)

// Hub fans live snapshots out to websocket subscribers. It is a
// search.Observer; Observe never blocks on a slow client, whose oldest
// pending frames are dropped instead.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	last        []byte

	upgrader websocket.Upgrader
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Observe encodes s once and queues it for every subscriber.
func (h *Hub) Observe(s search.Snapshot) {
	data, err := json.Marshal(s)
	if err != nil {
		monitoring.Logf("hub: failed to marshal snapshot %d: %v", s.Seq, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			// Drop the oldest frame to make room.
			select {
			case <-sub.send:
			default:
			}
			select {
			case sub.send <- data:
			default:
			}
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) add(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn, send: make(chan []byte, subscriberSend)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
	if h.last != nil {
		sub.send <- h.last
	}
	return sub
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()
	if ok {
		close(sub.send)
	}
}

// ServeHTTP upgrades the request to a websocket and streams snapshots
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("hub: upgrade failed: %v", err)
		return
	}
	sub := h.add(conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range sub.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"),
			time.Now().Add(writeWait))
	}()

	// Clients only listen; reading surfaces disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(sub)
	conn.Close()
	<-done
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		h.remove(sub)
	}
}
