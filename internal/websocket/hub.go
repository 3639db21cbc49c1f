package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"datrascli/internal/infrastructure"
)

// Message type constants
const (
	TypeConnection   = "connection"
	TypeProgress     = "fetch:progress"
	TypeComplete     = "fetch:complete"
	TypeError        = "fetch:error"
	TypeStatus       = "status"

	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for all clients
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "websocket.hub")

	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop in a goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister and broadcast events until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client connected",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("active_clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client disconnected",
				slog.String("client_id", client.id),
				slog.Int("active_clients", count))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
					h.mu.Unlock()
					h.logger.Warn("Dropped slow WebSocket client",
						slog.String("client_id", client.id))
				}
			}

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.running = false
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts down the hub and disconnects all clients
func (h *Hub) Stop() {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		close(h.quit)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastJSON marshals and queues a message for all clients
func (h *Hub) broadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	h.broadcast <- jsonData

	h.mu.Lock()
	h.messagesSent++
	h.mu.Unlock()
}

// BroadcastFetchProgress sends a per-combination progress update for a
// running dataset download
func (h *Hub) BroadcastFetchProgress(dataset string, done, total int, combination string, failed bool) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}
	h.broadcastJSON(map[string]interface{}{
		"type": TypeProgress,
		"data": map[string]interface{}{
			"dataset":     dataset,
			"done":        done,
			"total":       total,
			"percentage":  percentage,
			"combination": combination,
			"failed":      failed,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastFetchComplete announces that a dataset download finished
func (h *Hub) BroadcastFetchComplete(dataset string, requested, downloaded, rows int) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeComplete,
		"data": map[string]interface{}{
			"dataset":    dataset,
			"requested":  requested,
			"downloaded": downloaded,
			"rows":       rows,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastError sends an error event to all clients
func (h *Hub) BroadcastError(dataset, message string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeError,
		"data": map[string]interface{}{
			"dataset": dataset,
			"message": message,
			"level":   LevelError,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastStatus sends a general status message
func (h *Hub) BroadcastStatus(status, message string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeStatus,
		"data": map[string]interface{}{
			"status":  status,
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
