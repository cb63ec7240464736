package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/metrics"
)

// Event types sent on /api/events.
const (
	EventActionResult = "action_result"
)

// Event is one websocket message.
type Event struct {
	Type    string              `json:"type"`
	UserID  string              `json:"userId"`
	At      time.Time           `json:"at"`
	Payload domain.ActionResult `json:"payload"`
}

type subscriber struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string // empty: every user
}

func (c *subscriber) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans committed action results out to websocket subscribers.
// Slow subscribers are disconnected rather than allowed to block a broadcast.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*subscriber]bool
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHub creates a hub accepting upgrades from the given origins.
func NewHub(origins []string, log zerolog.Logger) *Hub {
	h := &Hub{
		clients: make(map[*subscriber]bool),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin(origins, origin) != ""
		},
	}
	return h
}

// HandleEvents upgrades the request and subscribes it.
// ?user=<id> limits the feed to one user.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := h.add(conn, r.URL.Query().Get("user"))
	h.log.Debug().Str("remote", r.RemoteAddr).Str("user", c.userID).Msg("event subscriber connected")

	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(conn *websocket.Conn, userID string) *subscriber {
	c := &subscriber{conn: conn, send: make(chan []byte, 64), userID: userID}
	go c.writePump()

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.EventSubscribers.Set(float64(n))
	return c
}

func (h *Hub) remove(c *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.EventSubscribers.Set(float64(n))
}

// Broadcast sends an action result to every matching subscriber.
func (h *Hub) Broadcast(res domain.ActionResult) {
	data, err := json.Marshal(Event{
		Type:    EventActionResult,
		UserID:  res.UserID,
		At:      time.Now().UTC(),
		Payload: res,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("encode event")
		return
	}

	// Sends happen under the read lock so remove cannot close a channel mid-send.
	var slow []*subscriber
	h.mu.RLock()
	for c := range h.clients {
		if c.userID != "" && c.userID != res.UserID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("user", c.userID).Msg("event subscriber too slow, disconnecting")
		h.remove(c)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	metrics.EventSubscribers.Set(0)
}
