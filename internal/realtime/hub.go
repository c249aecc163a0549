// Package realtime pushes record change notifications to dashboard pages
// over websockets so open charts can refresh themselves.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lifedash/internal/core"
)

const (
	EventRecordsChanged = "records_changed"

	writeWait       = 5 * time.Second
	broadcastBuffer = 16
)

// Event is the JSON message sent to every connected client.
type Event struct {
	Type      string          `json:"type"`
	Kind      core.RecordKind `json:"kind"`
	Operation string          `json:"operation,omitempty"`
}

// Hub tracks websocket clients and fans broadcasts out to them. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}

	mu    sync.Mutex
	count int
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			client.Close()
		}
		h.setCount(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			slog.Debug("Websocket client connected", "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.setCount(len(h.clients))
			slog.Debug("Websocket client disconnected", "clients", len(h.clients))
		case message := <-h.broadcast:
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					slog.Warn("Error sending message to websocket client", "error", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// NotifyRecordsChanged broadcasts a records_changed event. It never blocks:
// when the hub is saturated or stopped the event is dropped.
func (h *Hub) NotifyRecordsChanged(kind core.RecordKind, operation string) {
	data, err := json.Marshal(Event{Type: EventRecordsChanged, Kind: kind, Operation: operation})
	if err != nil {
		slog.Error("Failed to marshal realtime event", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		slog.Warn("Realtime broadcast buffer full, dropping event", "kind", kind)
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Client messages are read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}
