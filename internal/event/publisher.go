package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher records structured events. It is append-only and uses the store
// for persistence so tests can swap sinks easily. When an inbox channel is
// configured, every event is additionally forwarded to it for asynchronous
// fan-out (the Kafka worker); a full inbox drops the forward rather than
// blocking the emitting operation.
type Publisher struct {
	store  Store
	inbox  chan<- Event
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithInbox forwards emitted events to the given channel.
func WithInbox(inbox chan<- Event) Option {
	return func(p *Publisher) {
		p.inbox = inbox
	}
}

// WithLogger sets a logger for forward-drop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Emit persists the event and forwards it to the inbox when configured.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, base); err != nil {
		return err
	}
	if p.inbox != nil {
		select {
		case p.inbox <- base:
		default:
			p.logger.WarnContext(ctx, "event inbox full, dropping forward",
				"event_id", base.ID,
				"type", string(base.Type),
			)
		}
	}
	return nil
}

// List returns all recorded events.
func (p *Publisher) List(ctx context.Context) ([]Event, error) {
	return p.store.ListAll(ctx)
}
