package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

const maxRequestBytes = 64 << 10

// Client wraps one WebSocket connection. writePump is the only writer
// on the connection; everything destined for the client, broadcasts
// and request replies alike, goes through the buffered send channel.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	router *Router
	obs    ports.Observability
	pol    ports.Policy

	send chan []byte

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, router *Router, obs ports.Observability, pol ports.Policy) *Client {
	buf := pol.SendBuffer
	if buf <= 0 {
		buf = 64
	}
	return &Client{
		hub:    hub,
		conn:   conn,
		router: router,
		obs:    obs,
		pol:    pol,
		send:   make(chan []byte, buf),
	}
}

// trySend queues a frame without blocking. A full buffer means the
// client is not keeping up and the caller treats the send as failed.
func (c *Client) trySend(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close shuts the underlying connection, which unblocks both pumps.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump consumes inbound request frames until the connection dies,
// then unregisters the client. Each request yields exactly one reply,
// delivered through the send channel so writes stay on writePump.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxRequestBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pol.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pol.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.obs.LogWarn("client read failed", ports.Field{Key: "error", Value: err.Error()})
			}
			return
		}

		reply := c.router.Handle(ctx, raw)
		if reply == nil {
			continue
		}
		if !c.trySend(reply) {
			c.obs.LogWarn("client reply buffer full, disconnecting",
				ports.Field{Key: "addr", Value: c.conn.RemoteAddr().String()})
			return
		}
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pol.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.pol.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.pol.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
