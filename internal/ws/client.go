package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the timeout for one outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long we wait for a pong before the connection is
	// considered dead.
	pongWait = 60 * time.Second

	// pingInterval must be shorter than pongWait.
	pingInterval = 30 * time.Second

	maxMessageSize = 8192

	// sendBuffer is the per-client outbound queue. A full queue drops
	// the client rather than blocking the sender.
	sendBuffer = 256
)

// ErrSendBufferFull is returned when a client's outbound queue is full.
var ErrSendBufferFull = errors.New("client send buffer full")

// ErrClientClosed is returned when the client has already disconnected.
var ErrClientClosed = errors.New("client connection closed")

// Client is one live websocket connection. It satisfies presence.Conn so
// the fan-out dispatcher can deliver directed events to it.
type Client struct {
	id      string
	partyID string // set by the register message, empty until then
	conn    *websocket.Conn
	hub     *Hub

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// Send enqueues a message for delivery. It never blocks: a slow consumer
// gets the message dropped instead of stalling the fan-out. The dispatcher
// may still hold this connection after the client disconnected, so a send
// after close must fail with an error rather than panic.
func (c *Client) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// closeSend marks the client closed and releases writePump. Safe to call
// more than once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// inbound is the envelope clients send to the server.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// readPump consumes client messages until the connection drops, then
// tears the client down.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error: client=%s err=%v", c.id, err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("ws bad message: client=%s err=%v", c.id, err)
			continue
		}

		if err := c.hub.handleMessage(c, msg.Type, msg.Data, raw); err != nil {
			log.Printf("ws handle %s: client=%s err=%v", msg.Type, c.id, err)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
