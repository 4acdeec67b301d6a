package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Handlers and services
// take *slog.Logger so tests can swap in a discard handler.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewDiscard returns a logger that drops everything; for tests.
func NewDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
