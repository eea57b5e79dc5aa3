// internal/hub/client.go
//
// One viewer connection: a thin wrapper around a websocket with a buffered
// outbound queue and dedicated read/write pumps. The hub owns the client for
// its whole lifetime; nothing else holds a reference.

package hub

import (
	"sync"
	"time"
)

const (
	sendQueueSize = 64
	writeWait     = 5 * time.Second
	maxReadBytes  = 1 << 20
)

// Conn is the subset of *websocket.Conn the hub needs. Narrowed to an
// interface so tests can drive the pumps without a network socket.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing the package here.
const textMessage = 1

// Client is a single viewer connection.
type Client struct {
	conn Conn

	mu     sync.Mutex // guards send/closed against enqueue-after-close
	send   chan []byte
	closed bool
}

// NewClient wraps an upgraded connection. The caller must start the pumps
// (WritePump/ReadPump) after registering the client with the hub.
func NewClient(conn Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
}

// enqueue queues b for delivery without blocking. A closed or backed-up
// viewer is not ready to receive; the message is dropped for that viewer
// only.
func (c *Client) enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// close shuts the send queue, which ends the write pump. Idempotent.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WritePump drains the send queue onto the socket. Exits on the first write
// error or when the queue is closed, then unregisters the client.
func (c *Client) WritePump(h *Hub) {
	defer func() {
		_ = c.conn.Close()
		h.Unregister(c)
	}()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(textMessage, msg); err != nil {
			return
		}
	}
}

// ReadPump drains and discards inbound frames. The channel is push-only
// from the server's point of view, but reading is required to process
// control frames and to notice disconnects. Exits on any read error and
// unregisters the client. No read deadline: idle viewers stay connected.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		_ = c.conn.Close()
		h.Unregister(c)
	}()
	c.conn.SetReadLimit(maxReadBytes)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
