package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	id string

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. It is never closed, done signals the end of the connection.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	logger hclog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.New().String()
	return &Client{
		hub:    hub,
		id:     id,
		conn:   conn,
		send:   make(chan []byte, hub.Cfg.ClientConfig.SendBuffer),
		done:   make(chan struct{}),
		logger: hub.logger.Named("client").With("conn", id),
	}
}

func (c *Client) Id() string {
	return c.id
}

// Send queues message without blocking. If the queue is full the message is dropped and the connection is closed.
func (c *Client) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn("send queue full, closing connection")
		c.Close()
		return false
	}
}

// Close ends the connection without waiting for the peer. Safe to call more than once and from any goroutine,
// including with a room lock held.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadLoop pumps messages from the websocket connection to the hub.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine. When the loop ends the client leaves its room.
func (c *Client) ReadLoop() {
	defer func() {
		c.hub.Unregister(c.id)
		c.Close()
	}()
	c.conn.SetReadLimit(c.hub.Cfg.ClientConfig.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Info("ws closed unexpectedly", "error", err)
			} else {
				c.logger.Debug("read loop done", "error", err)
			}
			return
		}
		err = c.hub.HandleMessage(c.id, raw)
		if err != nil {
			c.logger.Warn("message dropped", "error", err)
		}
	}
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.logger.Debug("could not write to ws connection, exiting write loop", "error", err)
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("could not send ping message, exiting write loop")
				return
			}

		case <-c.done:
			return
		}
	}
}
