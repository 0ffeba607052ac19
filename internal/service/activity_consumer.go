package service

import (
	"context"
	"fmt"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/events"
	"research-assistant-be/pkg/research/status"

	pktNats "research-assistant-be/pkg/nats"
)

const activityDurable = "research-activity"

// EventSource delivers bus events to a handler until ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

type IActivityConsumer interface {
	Consume(ctx context.Context) error
}

// activityConsumer mirrors domain events onto the status board so that
// dashboards can follow what every instance is doing.
type activityConsumer struct {
	source EventSource
	board  *status.Board
	logger logger.ILogger
}

func NewActivityConsumer(source EventSource, board *status.Board, log logger.ILogger) IActivityConsumer {
	return &activityConsumer{source: source, board: board, logger: log}
}

// Consume starts the subscription in the background and returns at once.
func (c *activityConsumer) Consume(ctx context.Context) error {
	go func() {
		err := c.source.Subscribe(ctx, pktNats.SubjectPrefix+".>", activityDurable, c.handle)
		if err != nil {
			c.logger.Error("ACTIVITY", "Event subscription ended", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

func (c *activityConsumer) handle(_ context.Context, ev events.Event) error {
	c.board.Publish(status.ActivityKey, DescribeEvent(ev))
	return nil
}

// DescribeEvent renders a domain event as a one-line status message.
func DescribeEvent(ev events.Event) string {
	data := ev.Payload()
	switch ev.EventType() {
	case events.SessionStarted:
		return fmt.Sprintf("Chat %v started in %v mode.", data["session_id"], data["mode"])
	case events.SearchCompleted:
		return fmt.Sprintf("Search %q returned %v papers.", fmt.Sprint(data["query"]), data["paper_count"])
	case events.SynthesisGenerated:
		return fmt.Sprintf("Generated %v from %v papers.", data["kind"], data["paper_count"])
	default:
		return ev.EventType()
	}
}
