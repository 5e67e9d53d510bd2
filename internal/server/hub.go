package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/textra-dev/textra/constants"
	"github.com/textra-dev/textra/internal/jobs"
)

// Hub fans job updates out to connected websocket clients. Broadcasts are
// fire-and-forget: a slow or dead client is dropped, never waited on.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	logger     *slog.Logger

	startOnce sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Start launches the hub loop. Safe to call more than once.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		go h.loop()
	})
}

func (h *Hub) loop() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			h.logger.Debug("ws.client.connected", "clients", len(h.clients))
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				_ = conn.Close()
			}
			h.logger.Debug("ws.client.disconnected", "clients", len(h.clients))
		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.logger.Warn("ws.write_failed", "error", err)
					_ = conn.Close()
					delete(h.clients, conn)
				}
			}
		}
	}
}

// BroadcastJob pushes a job snapshot to every client. Dropped when the
// buffer is full so extraction never stalls on the presentation layer.
func (h *Hub) BroadcastJob(j jobs.Job) {
	update := map[string]any{
		"type":     "job_update",
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == constants.JobStatusError && j.ErrorMessage != "" {
		update["error_code"] = j.ErrorCode
		update["error"] = j.ErrorMessage
	}
	msg, err := json.Marshal(update)
	if err != nil {
		h.logger.Warn("ws.marshal_failed", "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws.broadcast_dropped", "job_id", j.ID)
	}
}

// RegisterClient adds a connection to the hub.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	h.register <- conn
}

// UnregisterClient removes a connection from the hub.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.unregister <- conn
}
