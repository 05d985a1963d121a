// Package transport is the outer surface: the REST API and the websocket
// session that carries live chat traffic.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairchat/domain/event"
	"pairchat/errors"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 50 * time.Second // under pongTimeout so pings keep the deadline fed
	maxFrameSize = 16 * 1024
)

// Conn adapts one websocket session to the live-connection contract.
// Pushes land in a buffered channel consumed by a single writer goroutine;
// the websocket is never written from two goroutines.
type Conn struct {
	id     string
	userID string
	socket *websocket.Conn
	send   chan event.Outbound
	log    *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(log *slog.Logger, socket *websocket.Conn, userID string, sendBuffer int) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		userID: userID,
		socket: socket,
		send:   make(chan event.Outbound, sendBuffer),
		log:    log,
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

// Push queues one event for the writer goroutine. It fails fast on a closed
// connection and reports saturation if the buffer stays full past ctx.
func (c *Conn) Push(ctx context.Context, e event.Outbound) error {
	select {
	case <-c.closed:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- e:
		return nil
	case <-c.closed:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errors.ErrConnectionSaturated, ctx.Err())
	}
}

// Close shuts the session down; safe to call from any goroutine and more
// than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.socket.Close()
	})
}

// WritePump drains the send channel onto the socket and keeps the session
// alive with pings. Runs until the connection closes; the read loop owns
// deregistration.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-c.closed:
			return
		case e := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.socket.WriteJSON(encodeOutbound(e)); err != nil {
				c.log.Debug("websocket write failed, closing",
					"connection_id", c.id, "user_id", c.userID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// configureRead arms the frame limit and the pong-fed read deadline.
func (c *Conn) configureRead() {
	c.socket.SetReadLimit(maxFrameSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongTimeout))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongTimeout))
	})
}
