package http

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan outboundMessage
}

// Hub implements app.Gateway over gorilla websockets: it assigns connection
// IDs, tracks group membership by session code, and funnels every write
// through a single writer goroutine per connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	groups  map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Register adopts a connection and returns its ID. The write pump runs
// until Unregister closes the send channel.
func (h *Hub) Register(conn *websocket.Conn) string {
	connID := uuid.NewString()
	c := &client{conn: conn, send: make(chan outboundMessage, 16)}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()

	go func() {
		for msg := range c.send {
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return connID
}

// Unregister drops the connection from all groups and stops its writer.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for code, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}

	c.mu.Lock()
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

func (h *Hub) JoinGroup(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.groups[code]
	if !ok {
		members = make(map[string]struct{})
		h.groups[code] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) SendTo(connID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.enqueue(outboundMessage{Type: event, Payload: payload})
}

func (h *Hub) SendToGroup(code, event string, payload any) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.groups[code]))
	for connID := range h.groups[code] {
		if c, ok := h.clients[connID]; ok {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	msg := outboundMessage{Type: event, Payload: payload}
	for _, c := range members {
		c.enqueue(msg)
	}
}

// enqueue never blocks the engine: a slow client loses its oldest queued
// event instead. Sends after Unregister are dropped.
func (c *client) enqueue(msg outboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}
