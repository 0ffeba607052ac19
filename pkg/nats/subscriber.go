package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber listens for research events.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe consumes events matching subject until ctx is done. An empty
// durable name creates an ephemeral consumer that only sees new events.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	cfg := jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durableName == "" {
		cfg.DeliverPolicy = jetstream.DeliverNewPolicy
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			s.logger.Error("NATS", "Failed to decode event", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			// Undecodable payloads would be redelivered forever.
			_ = msg.Term()
			return
		}

		event := events.BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}
		if err := handler(ctx, event); err != nil {
			s.logger.Warn("NATS", "Handler failed", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	<-ctx.Done()
	cc.Stop()
	return nil
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
