package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kylasweb/soulseer-session-server/internal/config"
)

// Client is one authenticated websocket connection.
type Client struct {
	ID     string
	UserID string

	conn      *websocket.Conn
	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan Event, config.WSSendBufferSize),
		done:   make(chan struct{}),
	}
}

// Done is closed when the connection is torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) trySend(event Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Send queues an event for the write pump, dropping it if the buffer is
// full. Used for direct acknowledgments to this connection.
func (c *Client) Send(event Event) bool {
	return c.trySend(event)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadJSON blocks for the next frame from the peer.
func (c *Client) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

// WritePump drains the send buffer onto the socket and keeps the
// connection alive with pings. Runs on its own goroutine; returns when
// the connection dies or the client is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(config.WSWriteTimeout))
			return

		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				log.Debug().
					Err(err).
					Str("connId", c.ID).
					Str("userId", c.UserID).
					Msg("ws write failed, closing connection")
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// Setup applies read limits and the pong deadline handshake.
func (c *Client) Setup() {
	c.conn.SetReadLimit(config.WSMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.WSPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.WSPongTimeout))
	})
}
