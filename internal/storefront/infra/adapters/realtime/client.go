package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

type client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	identity domain.Identity

	// send is never closed; done signals the end of the connection.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// enqueue never blocks. Messages for a full buffer are dropped.
func (c *client) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.hub.logger.Debug("dropping message for slow client", slog.String("client_id", c.id))
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) readPump() {
	defer c.hub.pumps.Done()
	defer c.hub.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", slog.String("client_id", c.id), slog.Any("error", err))
			}
			return
		}
		c.handle(raw)
	}
}

func (c *client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.logger.Debug("malformed websocket message", slog.String("client_id", c.id), slog.Any("error", err))
		return
	}

	switch msg.Event {
	case ports.EventJoin:
		var room string
		if err := json.Unmarshal(msg.Data, &room); err != nil {
			return
		}
		if !c.hub.join(c, room) {
			c.hub.logger.Warn("join refused",
				slog.String("client_id", c.id),
				slog.String("user_id", c.identity.UserID),
				slog.String("room", room),
			)
		}
	default:
		c.hub.logger.Debug("ignoring websocket event", slog.String("event", msg.Event))
	}
}

// writePump is the only writer on the connection and the one that closes it.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.pumps.Done()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
