package notification

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// client serializes writes; a websocket connection allows one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub tracks live connections per user. A user may hold several (tabs, devices).
type Hub struct {
	connections map[int64]map[*client]struct{}
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]map[*client]struct{}),
	}
}

func (h *Hub) register(userID int64, conn *websocket.Conn) *client {
	cl := &client{conn: conn}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*client]struct{})
	}
	h.connections[userID][cl] = struct{}{}
	return cl
}

func (h *Hub) unregister(userID int64, cl *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	conns, ok := h.connections[userID]
	if !ok {
		return
	}
	if _, ok := conns[cl]; ok {
		_ = cl.conn.Close()
		delete(conns, cl)
	}
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
}

// SendToUser pushes message to every live connection of the user and
// reports how many accepted it. Broken connections are dropped.
func (h *Hub) SendToUser(userID int64, message interface{}) int {
	h.mutex.RLock()
	targets := make([]*client, 0, len(h.connections[userID]))
	for cl := range h.connections[userID] {
		targets = append(targets, cl)
	}
	h.mutex.RUnlock()

	sent := 0
	for _, cl := range targets {
		if err := cl.writeJSON(message); err != nil {
			h.unregister(userID, cl)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections[userID]) > 0
}

func (h *Hub) GetOnlineCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, conns := range h.connections {
		for cl := range conns {
			_ = cl.conn.Close()
		}
		delete(h.connections, userID)
	}
}
