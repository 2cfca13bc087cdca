package devserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// hub fans frames out to every connected board.
type hub struct {
	logger  logrus.FieldLogger
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub(logger logrus.FieldLogger) *hub {
	return &hub{logger: logger, clients: make(map[*client]struct{})}
}

func (h *hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) broadcast(data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.logger.WithError(err).Debug("dropping dead board connection")
			h.remove(c)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	targets := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range targets {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
}
