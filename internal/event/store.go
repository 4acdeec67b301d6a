package event

import "context"

// Store is an append-only sink for emitted events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByToken(ctx context.Context, token string) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
}
