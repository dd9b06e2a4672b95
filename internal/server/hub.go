// internal/server/hub.go
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// upgrader is used to upgrade HTTP connections to WebSocket connections.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dev server only listens for the author's own browser.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON payload sent to live-reload clients.
type Message struct {
	Command string `json:"command"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	logger *log.Logger

	// Mutex to protect concurrent access to clients map.
	mu      sync.Mutex
	clients map[*websocket.Conn]string
}

// newHub creates a new Hub.
func newHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]string),
	}
}

// register adds a new client to the hub.
func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	h.clients[conn] = id
	h.logger.Debug("Live-reload client connected", "client", id, "clients", len(h.clients))
}

// unregister removes a client from the hub.
func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.logger.Debug("Live-reload client disconnected", "client", id, "clients", len(h.clients))
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Reload tells clients that path was rebuilt.
func (h *Hub) Reload(path string) {
	h.broadcast(Message{Command: "reload", Path: path})
}

// Error shows a rebuild failure in connected clients.
func (h *Hub) Error(err error) {
	h.broadcast(Message{Command: "error", Message: err.Error()})
}

// broadcast sends a message to all registered clients.
func (h *Hub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Could not encode live-reload message", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client, id := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("Error writing to client", "client", id, "err", err)
			// On error, assume the client disconnected and remove them.
			client.Close()
			delete(h.clients, client)
		}
	}
}

// serveWs handles WebSocket requests from the peer.
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade error", "err", err)
		return
	}
	h.register(conn)

	// The client never sends anything; reading only detects the close.
	defer h.unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
