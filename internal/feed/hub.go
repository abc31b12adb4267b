// Package feed streams moderation events to connected admins over
// WebSocket.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"

	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/metrics"
)

// Message types sent to feed clients.
const (
	TypeJoined = "feed_joined"
	TypeEvent  = "moderation_event"
)

// Config holds feed tuning parameters.
type Config struct {
	MaxConnections int
	PingInterval   time.Duration // how often to ping
	PingTimeout    time.Duration // extra time allowed for a reply
	WriteTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 256,
		PingInterval:   30 * time.Second,
		PingTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// NewMessage encodes payload with the message type injected under "type".
func NewMessage(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("feed: marshal payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("feed: payload is not an object: %w", err)
	}
	m["type"] = msgType
	return json.Marshal(m)
}

type joinedMsg struct {
	ConnectionID string `json:"connection_id"`
}

type eventMsg struct {
	Event messaging.Event `json:"event"`
}

// Hub tracks feed connections and fans events out to them.
type Hub struct {
	config Config

	mu    sync.RWMutex
	conns map[string]*Connection

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a Hub and starts its heartbeat.
func NewHub(config Config) *Hub {
	h := &Hub{
		config: config,
		conns:  make(map[string]*Connection),
		done:   make(chan struct{}),
	}
	go h.heartbeat()
	return h
}

// ServeWS upgrades the request and registers the connection for userID. The
// caller is responsible for authorizing the user. It returns once the
// connection is registered; reading happens on a separate goroutine.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	if h.Count() >= h.config.MaxConnections {
		http.Error(w, "too many feed connections", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("[feed] upgrade failed: %v", err)
		return
	}
	// The HTTP server's timeouts still apply to the hijacked connection.
	conn.SetDeadline(time.Time{})

	c := &Connection{
		ID:           uuid.NewString(),
		UserID:       userID,
		Conn:         conn,
		CreatedAt:    time.Now(),
		writeTimeout: h.config.WriteTimeout,
	}
	c.touch()
	h.add(c)

	if msg, err := NewMessage(TypeJoined, joinedMsg{ConnectionID: c.ID}); err == nil {
		if err := c.WriteMessage(msg); err != nil {
			log.Printf("[feed] welcome to %s failed: %v", c.ID, err)
		}
	}
	log.Printf("[feed] admin %s connected conn=%s (total=%d)", userID, c.ID, h.Count())

	go func() {
		err := c.readLoop()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("[feed] read conn=%s: %v", c.ID, err)
		}
		h.remove(c.ID)
	}()
}

// Broadcast sends ev to every connected admin. Connections that fail the
// write are dropped.
func (h *Hub) Broadcast(ev messaging.Event) {
	msg, err := NewMessage(TypeEvent, eventMsg{Event: ev})
	if err != nil {
		log.Printf("[feed] encode event %s: %v", ev.ID, err)
		return
	}
	for _, c := range h.snapshot() {
		if err := c.WriteMessage(msg); err != nil {
			log.Printf("[feed] send to conn=%s failed: %v", c.ID, err)
			h.remove(c.ID)
		}
	}
}

// Count returns the number of connected admins.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close stops the heartbeat and closes every connection.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.done) })
	for _, c := range h.snapshot() {
		h.remove(c.ID)
	}
}

func (h *Hub) add(c *Connection) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
	metrics.FeedConnections.Inc()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		c.Close()
		metrics.FeedConnections.Dec()
	}
}

func (h *Hub) snapshot() []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// heartbeat pings every connection each PingInterval and drops those that
// have been silent for longer than PingInterval + PingTimeout.
func (h *Hub) heartbeat() {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.checkConnections(time.Now())
		}
	}
}

func (h *Hub) checkConnections(now time.Time) {
	deadline := h.config.PingInterval + h.config.PingTimeout
	for _, c := range h.snapshot() {
		if idle := now.Sub(c.LastSeen()); idle > deadline {
			log.Printf("[feed] heartbeat timeout conn=%s idle=%s", c.ID, idle.Round(time.Second))
			h.remove(c.ID)
			continue
		}
		if err := c.WritePing(); err != nil {
			log.Printf("[feed] ping conn=%s failed: %v", c.ID, err)
			h.remove(c.ID)
		}
	}
}
