package eventbus

import (
	"context"
	"log/slog"
)

// Envelope is one message handed to a broker.
type Envelope struct {
	RoutingKey    string
	MessageID     string
	CorrelationID string
	Payload       []byte
}

// Publisher defines the interface for publishing events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// NoopPublisher drops messages after logging them. Used in development
// when no broker is configured.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, env Envelope) error {
	p.logger.Debug("noop publish",
		"routing_key", env.RoutingKey,
		"message_id", env.MessageID,
		"size", len(env.Payload),
	)
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
