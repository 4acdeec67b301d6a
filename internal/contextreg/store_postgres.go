package contextreg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/sentinel"
	"tokenctx/pkg/platform/tx"
)

// PostgresStore persists Context records in PostgreSQL. Records are never
// deleted; deprecation flips active to false.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed context store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const contextsSchema = `
CREATE TABLE IF NOT EXISTS contexts (
	ctx_hash TEXT PRIMARY KEY,
	controller TEXT NOT NULL,
	detaching_duration_seconds BIGINT NOT NULL,
	active BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the backing table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, contextsSchema); err != nil {
		return fmt.Errorf("ensure contexts schema: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runner joins the caller's transaction when one is carried in ctx.
func (s *PostgresStore) runner(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, hash id.CtxHash, record Context) error {
	_, err := s.runner(ctx).ExecContext(ctx,
		`INSERT INTO contexts (ctx_hash, controller, detaching_duration_seconds, active)
		 VALUES ($1, $2, $3, $4)`,
		hash.String(), record.Controller.String(),
		int64(record.DetachingDuration/time.Second), record.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create context: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, hash id.CtxHash) (*Context, error) {
	var (
		controller string
		seconds    int64
		active     bool
	)
	err := s.runner(ctx).QueryRowContext(ctx,
		`SELECT controller, detaching_duration_seconds, active FROM contexts WHERE ctx_hash = $1`,
		hash.String(),
	).Scan(&controller, &seconds, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get context: %w", err)
	}
	return &Context{
		Controller:        id.Identity(controller),
		DetachingDuration: time.Duration(seconds) * time.Second,
		Active:            active,
	}, nil
}

func (s *PostgresStore) Update(ctx context.Context, hash id.CtxHash, record Context) error {
	res, err := s.runner(ctx).ExecContext(ctx,
		`UPDATE contexts
		 SET controller = $2, detaching_duration_seconds = $3, active = $4, updated_at = now()
		 WHERE ctx_hash = $1`,
		hash.String(), record.Controller.String(),
		int64(record.DetachingDuration/time.Second), record.Active,
	)
	if err != nil {
		return fmt.Errorf("update context: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update context rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
