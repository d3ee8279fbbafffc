// Package hub fans messages out to websocket clients over channels.
// One goroutine owns the client set; slow clients are dropped rather
// than allowed to stall the broadcaster.
package hub

import (
	"sync"

	"github.com/pocketpet/gotchi/internal/log"
)

// Kind selects the websocket frame type.
type Kind int

const (
	// Text is a UTF-8 payload, typically a log line or JSON.
	Text Kind = iota
	// Binary is raw bytes, used for rendered frames.
	Binary
)

// Message is one broadcast payload.
type Message struct {
	Kind Kind
	Data []byte
}

// Hub owns a set of connected clients and broadcasts to all of them.
type Hub struct {
	name string

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// New creates a hub. Run must be started for it to do anything.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
	}
}

// Run owns the client set until ctx-free shutdown; call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug("hub: client connected", "hub", h.name, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Too slow to keep up; cut it loose.
					delete(h.clients, c)
					close(c.send)
					log.Debug("hub: dropped slow client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every client, dropping it if the hub itself
// is backed up.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

// BroadcastText broadcasts a text payload.
func (h *Hub) BroadcastText(line string) {
	h.Broadcast(Message{Kind: Text, Data: []byte(line)})
}

// BroadcastBinary broadcasts raw bytes.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Message{Kind: Binary, Data: data})
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
