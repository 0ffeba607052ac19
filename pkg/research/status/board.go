package status

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"research-assistant-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	Topic = "research.status"

	// GlobalKey collects updates that are not tied to a session.
	GlobalKey = "global"

	// ActivityKey carries domain events replayed from the event bus.
	ActivityKey = "activity"
)

type Update struct {
	Key     string    `json:"key"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Board fans progress messages out to subscribers and remembers the latest
// message per key.
type Board struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger

	mu   sync.RWMutex
	last map[string]Update
}

func NewBoard(pubSub *gochannel.GoChannel, log logger.ILogger) *Board {
	return &Board{
		pubSub: pubSub,
		logger: log,
		last:   make(map[string]Update),
	}
}

// Publish never blocks on subscribers.
func (b *Board) Publish(key, msg string) {
	if key == "" {
		key = GlobalKey
	}
	u := Update{Key: key, Message: msg, At: time.Now().UTC()}

	b.mu.Lock()
	b.last[key] = u
	b.mu.Unlock()

	payload, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := b.pubSub.Publish(Topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		b.logger.Warn("STATUS", "Failed to publish status update", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Last returns the most recent update for key.
func (b *Board) Last(key string) (Update, bool) {
	if key == "" {
		key = GlobalKey
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.last[key]
	return u, ok
}

// Subscribe streams updates published after the call. An empty key
// receives every update. The channel closes when ctx is done.
func (b *Board) Subscribe(ctx context.Context, key string) (<-chan Update, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Update, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var u Update
			if err := json.Unmarshal(msg.Payload, &u); err != nil {
				msg.Ack()
				continue
			}
			if key != "" && u.Key != key {
				msg.Ack()
				continue
			}
			select {
			case out <- u:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()
	return out, nil
}
