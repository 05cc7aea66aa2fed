package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avoron/tinychat/internal/common"
)

const (
	// maximum time to finish a single websocket write
	writeWait = 10 * time.Second

	// read deadline, refreshed on every pong
	pongWait = 60 * time.Second

	// ping interval; must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10

	// handshake frames are tiny
	maxFrameSize = 2048

	sendBufferSize = 64
)

// client wraps one websocket connection. All writes go through the send
// channel and a single write pump, since gorilla connections allow only
// one concurrent writer.
type client struct {
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	sendTimeout time.Duration
}

func newClient(conn *websocket.Conn, sendTimeout time.Duration) *client {
	return &client{
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
	}
}

// Deliver queues a payload for the write pump. It gives up after the
// configured timeout so one stalled peer cannot stall a whole fan-out.
func (c *client) Deliver(payload []byte) error {
	t := time.NewTimer(c.sendTimeout)
	defer t.Stop()

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return common.ErrorConnClosed
	case <-t.C:
		return fmt.Errorf("delivery timed out: %w", common.ErrorConnClosed)
	}
}

// Close shuts the client down. Safe to call more than once.
func (c *client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// writePump serializes all writes to the connection and keeps the peer
// alive with periodic pings. It exits when the client is closed or a
// write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
