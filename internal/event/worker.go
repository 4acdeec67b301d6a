package event

import (
	"context"
	"log/slog"
)

// Sink receives events drained from the worker inbox.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Worker consumes events from a channel and forwards them to a sink. Sink
// failures are logged and dropped: event delivery is best-effort and must
// never stall or fail domain operations.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-w.inbox:
			if err := w.sink.Publish(ctx, e); err != nil {
				w.logger.WarnContext(ctx, "event sink publish failed",
					"event_id", e.ID,
					"type", string(e.Type),
					"error", err.Error(),
				)
			}
		}
	}
}
