// Package ws streams refresh snapshots to dashboard clients and accepts
// home-vessel selection and alert acknowledgements back.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Controller is the engine surface the dashboard can drive.
type Controller interface {
	SelectHome(id string) bool
	Acknowledge(otherID string) bool
	Latest() (model.Snapshot, bool)
}

// Message is the envelope for both directions.
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data *model.Snapshot `json:"data,omitempty"`
	OK   *bool           `json:"ok,omitempty"`
}

const (
	TypeSnapshot   = "snapshot"
	TypeSelectHome = "select_home"
	TypeAck        = "ack"
	TypeResult     = "result"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of connected dashboards. It implements
// scheduler.Subscriber and http.Handler.
type Hub struct {
	ctrl   Controller
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(ctrl Controller, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		ctrl:    ctrl,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Publish fans the snapshot out to every client. Slow clients drop frames
// rather than stall the refresh loop.
func (h *Hub) Publish(_ context.Context, snap model.Snapshot) error {
	msg, err := json.Marshal(Message{Type: TypeSnapshot, Data: &snap})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("dropping snapshot for slow client", zap.Stringer("remote", c.conn.RemoteAddr()))
		}
	}
	return nil
}

func (h *Hub) Name() string {
	return "websocket"
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if snap, ok := h.ctrl.Latest(); ok {
		if msg, err := json.Marshal(Message{Type: TypeSnapshot, Data: &snap}); err == nil {
			c.send <- msg
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("dashboard connected", zap.Stringer("remote", conn.RemoteAddr()))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Info("dashboard disconnected", zap.Stringer("remote", c.conn.RemoteAddr()))
	}()

	for {
		var in Message
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var ok bool
		switch in.Type {
		case TypeSelectHome:
			ok = h.ctrl.SelectHome(in.ID)
		case TypeAck:
			ok = h.ctrl.Acknowledge(in.ID)
		default:
			h.logger.Debug("ignoring websocket message", zap.String("type", in.Type))
			continue
		}

		reply, _ := json.Marshal(Message{Type: TypeResult, ID: in.ID, OK: &ok})
		h.mu.RLock()
		select {
		case c.send <- reply:
		default:
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("websocket write error", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
