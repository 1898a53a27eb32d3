package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-trade-journal/internal/database"
)

// DocumentRepository persists whole JSON documents in the documents table.
// Every save replaces the full document body — a plain read-modify-write with
// no lock and no compare-and-swap. Two contexts racing on the same document
// keep only the last writer's version; the NOTIFY signal lets the losers
// recompute their derived views, it does not merge data.
type DocumentRepository struct {
	pool   *pgxpool.Pool
	origin string
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool, origin: uuid.NewString()}
}

// Origin identifies this execution context in change notifications.
func (r *DocumentRepository) Origin() string {
	return r.origin
}

// Load returns the raw document body, or nil when the document does not exist
// yet so callers can initialize defaults.
func (r *DocumentRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := r.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE key = $1`, key).Scan(&body)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", key, err)
	}
	return body, nil
}

// Save upserts the full document body and notifies the change channel with
// this context's origin id.
func (r *DocumentRepository) Save(ctx context.Context, key string, body []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (key, body, origin, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE
		 SET body = EXCLUDED.body, origin = EXCLUDED.origin, updated_at = now()`,
		key, body, r.origin)
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}

	if _, err := r.pool.Exec(ctx,
		`SELECT pg_notify($1, $2)`, database.ChannelTrashChanged, r.origin); err != nil {
		return fmt.Errorf("notify document change: %w", err)
	}

	return nil
}

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
