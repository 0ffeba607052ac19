package websocket

import (
	"context"
	"time"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/research/status"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client pushes status updates to one websocket connection.
type Client struct {
	Conn    *websocket.Conn
	Key     string
	Updates <-chan status.Update
	logger  logger.ILogger
}

// readPump only watches for the peer going away; clients never send data.
func (c *Client) readPump(cancel context.CancelFunc) {
	defer cancel()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{"key": c.Key, "error": err.Error()})
			}
			return
		}
	}
}

// writePump forwards updates until the subscription closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case u, ok := <-c.Updates:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(u); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
