package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"FinGenius/internal/domain/models"
	applogger "FinGenius/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 16
)

// ErrNotConnected is returned when the user has no open in-app session.
var ErrNotConnected = errors.New("user has no open in-app session")

// Hub pushes in-app notifications to the websocket sessions of each user.
type Hub struct {
	upgrader websocket.Upgrader
	l        *applogger.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewHub(l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the API is token-authenticated, so any origin may connect
			CheckOrigin: func(*http.Request) bool { return true },
		},
		l:       l.With(applogger.String("component", "ws_hub")),
		clients: make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) Channel() models.Channel { return models.ChannelInApp }

// Send queues ev for every session of u. A session whose buffer is full is
// skipped rather than blocking the sender.
func (h *Hub) Send(_ context.Context, u *models.User, ev models.NotificationEvent) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sessions := h.clients[u.ID]
	if len(sessions) == 0 {
		return ErrNotConnected
	}
	for c := range sessions {
		select {
		case c.send <- payload:
		default:
			h.l.Warn("in-app session backlogged, dropping message", applogger.UserID(u.ID))
		}
	}
	return nil
}

// Connections returns the number of open sessions for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS upgrades the request and serves the session until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.l.Debug("in-app session opened", applogger.UserID(userID))

	go h.writeLoop(c)
	h.readLoop(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

// readLoop discards client frames; it exists to process pongs and notice closes.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.l.Debug("in-app session closed", applogger.UserID(c.userID))
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close ends every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, uid)
	}
}
