package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one relay connection. send is closed by the hub when the client is dropped.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(h *Hub, conn *websocket.Conn, buf int) *Client {
	return &Client{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, buf)}
}

func (c *Client) ID() string { return c.id }

// ServeHTTP upgrades the request and runs the connection until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("relay: upgrade failed", zap.Error(err))
		return
	}
	c := newClient(h, conn, sendBuffer)
	if !h.Register(c) {
		_ = conn.Close()
		return
	}
	h.log.Debug("relay: connected", zap.String("conn", c.id), zap.String("remote", r.RemoteAddr))
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.hub.log.Debug("relay: disconnected", zap.String("conn", c.id))
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg []byte) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		c.hub.log.Debug("relay: bad frame", zap.String("conn", c.id), zap.Error(err))
		return
	}
	switch f.Event {
	case EventJoin, EventLeave:
		var room string
		if err := json.Unmarshal(f.Data, &room); err != nil || room == "" {
			return
		}
		if f.Event == EventJoin {
			c.hub.Join(c, room)
		} else {
			c.hub.Leave(c, room)
		}
	case EventUpdate:
		c.hub.Broadcast(f.Data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
		case <-c.hub.Done():
			return
		}
	}
}
