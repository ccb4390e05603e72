package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketchat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Client is one authenticated websocket connection. Outbound delivery goes
// through the buffered Send channel so broadcasts never block on a slow peer.
type Client struct {
	UserID string

	conn *websocket.Conn
	Send chan []byte

	// mu orders Deliver against CloseSend. Broadcasts snapshot their targets
	// before delivering, so a delivery can race the target's eviction; the
	// closed flag turns that into a rejected delivery instead of a send on a
	// closed channel.
	mu     sync.Mutex
	closed bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		Send:   make(chan []byte, 256),
	}
}

// ReadPump reads inbound frames and hands them to onMessage. It returns when
// the connection drops or the peer closes.
func (c *Client) ReadPump(onMessage func([]byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("Websocket read error for user %s: %v", c.UserID, err)
			}
			return
		}

		onMessage(data)
	}
}

// WritePump drains the Send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("Websocket write error for user %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver queues a payload without ever blocking the caller. It reports false
// when the client is already closed or its buffer is full, in which case the
// connection is too far behind to keep.
func (c *Client) Deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// CloseSend closes the Send channel exactly once, letting WritePump finish.
// Deliveries after this point are rejected.
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
