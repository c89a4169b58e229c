package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const outboxColumns = `id, seq, division_id, event_type, payload, created_at, sent_at`

// PostgresStore reads and acknowledges rows of draft_outbox.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FetchUnsent returns up to limit unsent rows in insertion order.
func (s *PostgresStore) FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY seq
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unsent outbox events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) FetchByID(ctx context.Context, id uuid.UUID) (OutboxEvent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+outboxColumns+` FROM draft_outbox WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return OutboxEvent{}, ErrEventNotFound
	}
	return ev, err
}

func (s *PostgresStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `UPDATE draft_outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`, id); err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM draft_outbox WHERE sent_at IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return count, nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanEvent(row pgx.Row) (OutboxEvent, error) {
	var ev OutboxEvent
	err := row.Scan(&ev.ID, &ev.Seq, &ev.DivisionID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OutboxEvent{}, err
		}
		return OutboxEvent{}, fmt.Errorf("failed to scan outbox event: %w", err)
	}
	return ev, nil
}
