package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

// Client is one websocket connection of one user. A user may hold several at
// once (phone plus laptop); the hub tracks them all.
type Client struct {
	ID     string
	UserID string

	conn *websocket.Conn
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	// onEvent receives raw inbound frames; onClose fires exactly once after
	// the read pump exits.
	onEvent func(c *Client, raw []byte)
	onClose func(c *Client)
}

func newClient(id, userID string, conn *websocket.Conn, onEvent func(*Client, []byte), onClose func(*Client)) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:      id,
		UserID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		onEvent: onEvent,
		onClose: onClose,
	}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Enqueue hands a pre-marshaled frame to the write pump. A full buffer means
// a slow consumer; the frame is dropped and the connection torn down rather
// than blocking the broadcaster.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	case <-c.ctx.Done():
		return false
	default:
		log.Warn().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: slow consumer, closing connection")
		c.Close()
		return false
	}
}

// Close tears the connection down. Safe to call from any goroutine, any
// number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

func (c *Client) IsActive() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
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
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("clientID", c.ID).Msg("ws: read error")
			}
			return
		}
		if c.onEvent != nil {
			c.onEvent(c, raw)
		}
	}
}
