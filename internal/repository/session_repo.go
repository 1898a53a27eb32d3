package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-trade-journal/internal/model"
)

// SessionRepository stores archived trading sessions. The full session is kept
// as a JSON body; the indexed columns exist for ordering and reporting.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.TradingSession, error) {
	var body []byte
	err := r.pool.QueryRow(ctx,
		`SELECT body FROM archived_sessions WHERE id = $1`, id).Scan(&body)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find archived session: %w", err)
	}

	var session model.TradingSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode archived session %q: %w", id, err)
	}
	return &session, nil
}

func (r *SessionRepository) Upsert(ctx context.Context, session *model.TradingSession) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode archived session %q: %w", session.ID, err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO archived_sessions (id, started_at, start_capital, result, body, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (id) DO UPDATE
		 SET started_at = EXCLUDED.started_at,
		     start_capital = EXCLUDED.start_capital,
		     result = EXCLUDED.result,
		     body = EXCLUDED.body,
		     updated_at = now()`,
		session.ID, session.StartedAt, session.StartCapital.String(), session.Result.String(), body)
	if err != nil {
		return fmt.Errorf("upsert archived session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM archived_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete archived session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context) ([]model.TradingSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT body FROM archived_sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list archived sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.TradingSession, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan archived session: %w", err)
		}

		var session model.TradingSession
		if err := json.Unmarshal(body, &session); err != nil {
			return nil, fmt.Errorf("decode archived session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
