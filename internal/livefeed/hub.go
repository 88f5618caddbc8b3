// Package livefeed broadcasts pipeline stage events to WebSocket clients.
// Delivery is advisory: events are dropped rather than slowing a query down.
package livefeed

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/observability/metrics"
)

const (
	bufferSize   = 256
	writeTimeout = 2 * time.Second
)

// Hub manages WebSocket connections.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	broadcast  chan models.StageEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan models.StageEvent, bufferSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			// The feed is a local debug dashboard.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("livefeed"),
	}
}

// Run owns the client set until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.metrics.RecordLiveClients(0)
			return

		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			h.metrics.RecordLiveClients(len(h.clients))
			h.log.Debug().Int("clients", len(h.clients)).Msg("Client connected")

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.metrics.RecordLiveClients(len(h.clients))
			h.log.Debug().Int("clients", len(h.clients)).Msg("Client disconnected")

		case event := <-h.broadcast:
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(event); err != nil {
					h.log.Debug().Err(err).Msg("Write failed, dropping client")
					conn.Close()
					delete(h.clients, conn)
					h.metrics.RecordLiveClients(len(h.clients))
				}
			}
		}
	}
}

// Report queues an event for broadcast. It never blocks; events are dropped
// when the buffer is full or the hub has stopped.
func (h *Hub) Report(event models.StageEvent) {
	select {
	case <-h.done:
	case h.broadcast <- event:
	default:
		h.log.Debug().Str("stage", event.Stage).Msg("Live feed buffer full, dropping event")
	}
}

// ServeHTTP upgrades the request to a WebSocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Clients never send; reading detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()
}
