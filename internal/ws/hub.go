// Package ws pushes match-found and match-state events to connected wallets.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Msg is a message pushed to clients.
type Msg struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub manages per-wallet WebSocket sessions. A client announces its wallet
// address after connecting; events are then routed by address.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*conn]bool // lowercased wallet address -> conns
	allConn map[*conn]bool
}

type conn struct {
	ws      *websocket.Conn
	send    chan []byte
	hub     *Hub
	address string
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*conn]bool),
		allConn: make(map[*conn]bool),
	}
}

// Send pushes a message to every connection authenticated as the address.
// Reports whether at least one connection took it.
func (h *Hub) Send(address, msgType string, data any) bool {
	b, err := json.Marshal(Msg{Type: msgType, Data: data})
	if err != nil {
		return false
	}
	// Lock held across the loop: authenticate/logout mutate the room map
	// concurrently, and sends are non-blocking so nothing can stall here.
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for c := range h.rooms[strings.ToLower(address)] {
		select {
		case c.send <- b:
			delivered = true
		default:
			// slow client, drop
		}
	}
	return delivered
}

// Broadcast pushes a message to every connected client.
func (h *Hub) Broadcast(msgType string, data any) {
	b, err := json.Marshal(Msg{Type: msgType, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.allConn {
		select {
		case c.send <- b:
		default:
		}
	}
}

// HandleWS is the HTTP handler for WebSocket connections.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}
	c := &conn{
		ws:   wsConn,
		send: make(chan []byte, 64),
		hub:  h,
	}
	h.mu.Lock()
	h.allConn[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		c.hub.removeConn(c)
		c.ws.Close()
	}()
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			break
		}
		// Client messages: {"action":"authenticate","address":"0x..."}
		var req struct {
			Action  string `json:"action"`
			Address string `json:"address"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		switch req.Action {
		case "authenticate":
			c.hub.authenticate(c, req.Address)
		case "logout":
			c.hub.logout(c)
		}
	}
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

func (h *Hub) authenticate(c *conn, address string) {
	address = strings.ToLower(address)
	if address == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c)
	c.address = address
	room, ok := h.rooms[address]
	if !ok {
		room = make(map[*conn]bool)
		h.rooms[address] = room
	}
	room[c] = true
}

func (h *Hub) logout(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c)
}

func (h *Hub) leaveRoomLocked(c *conn) {
	if c.address == "" {
		return
	}
	if room, ok := h.rooms[c.address]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.address)
		}
	}
	c.address = ""
}

func (h *Hub) removeConn(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.allConn, c)
	h.leaveRoomLocked(c)
	close(c.send)
}
