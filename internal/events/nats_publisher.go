package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsPublisher forwards events to NATS, one subject per topic under a common prefix.
type NatsPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNatsPublisher connects to natsURL.
func NewNatsPublisher(natsURL, subject string, logger *zap.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("weeklyworks-api"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NatsPublisher{conn: nc, subject: subject, logger: logger}, nil
}

func subjectFor(prefix string, topic Topic) string {
	if prefix == "" {
		return string(topic)
	}
	return prefix + "." + string(topic)
}

// Publish sends evt as JSON.
func (p *NatsPublisher) Publish(_ context.Context, evt Event) error {
	payload, err := evt.Encode()
	if err != nil {
		return err
	}

	subject := subjectFor(p.subject, evt.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to nats %s: %w", subject, err)
	}
	p.logger.Debug("published event to nats", zap.String("subject", subject))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
