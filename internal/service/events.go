package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event subjects, relative to the configured prefix.
const (
	SubjectAuthState  = "auth.state"
	SubjectAdminAudit = "admin.audit"
)

// EventBus fans domain events out to other API nodes.
type EventBus interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

type natsEventBus struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSEventBus publishes events on NATS under prefix. A nil connection yields a no-op bus.
func NewNATSEventBus(conn *nats.Conn, prefix string, logger zerolog.Logger) EventBus {
	if conn == nil {
		return NopEventBus{}
	}
	return &natsEventBus{
		conn:   conn,
		prefix: strings.Trim(prefix, "."),
		logger: logger.With().Str("component", "event_bus").Logger(),
	}
}

func (b *natsEventBus) Publish(ctx context.Context, subject string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	if err := b.conn.Publish(b.subject(subject), data); err != nil {
		return fmt.Errorf("publish %s event: %w", subject, err)
	}
	return nil
}

func (b *natsEventBus) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	sub, err := b.conn.Subscribe(b.subject(subject), func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return func() {}, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn().Err(err).Str("subject", subject).Msg("failed to unsubscribe")
		}
	}, nil
}

func (b *natsEventBus) subject(subject string) string {
	if b.prefix == "" {
		return subject
	}
	return b.prefix + "." + subject
}

// NopEventBus drops every event.
type NopEventBus struct{}

func (NopEventBus) Publish(ctx context.Context, subject string, payload interface{}) error {
	return nil
}

func (NopEventBus) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	return func() {}, nil
}
