package websocket

import (
	"context"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/research/status"

	"github.com/gofiber/websocket/v2"
)

// Subscribe opens a status subscription that ends with ctx.
type Subscribe func(ctx context.Context, key string) (<-chan status.Update, error)

// ServeStatus streams status updates for key to the connection. It blocks
// until the peer disconnects.
func ServeStatus(conn *websocket.Conn, key string, subscribe Subscribe, log logger.ILogger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	updates, err := subscribe(ctx, key)
	if err != nil {
		log.Error("WS", "Status subscription failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}

	client := &Client{Conn: conn, Key: key, Updates: updates, logger: log}
	log.Info("WS", "Status stream opened", map[string]interface{}{"key": key})

	// The subscription closes when readPump cancels ctx, which ends writePump.
	go client.readPump(cancel)
	client.writePump()

	log.Info("WS", "Status stream closed", map[string]interface{}{"key": key})
}
