package api

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/metrics"
)

// wsHub fans events out to connected WebSocket clients. Clients are
// read-only listeners; anything they send is ignored except close.
type wsHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	logger  *zap.Logger
}

func newWSHub(logger *zap.Logger) *wsHub {
	return &wsHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	metrics.Default().IncrementWSConnections()
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	metrics.Default().DecrementWSConnections()
}

func (h *wsHub) broadcast(v interface{}) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(v); err != nil {
			h.logger.Warn("WebSocket write failed, dropping client", zap.Error(err))
			h.remove(c)
			c.Close()
		}
	}
}

func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.hub.add(c)
	defer func() {
		s.hub.remove(c)
		c.Close()
	}()

	// Drain incoming frames until the client disconnects.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
