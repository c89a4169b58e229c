package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/models"
	"github.com/mcdev12/fpldraft/go/internal/sqlutil"
)

//go:embed schema.sql
var schemaSQL string

const playerConstraint = "draft_picks_player_key"

// PostgresRepository stores draft state in Postgres. The conditional update on
// current_pick is the compare-and-set that serializes competing picks.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	outbox bool
}

// PostgresOption configures a PostgresRepository.
type PostgresOption func(*PostgresRepository)

// WithOutbox makes AppendPick persist request events to draft_outbox in the pick transaction.
func WithOutbox() PostgresOption {
	return func(r *PostgresRepository) { r.outbox = true }
}

// NewPostgresRepository wraps a pool.
func NewPostgresRepository(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresRepository {
	r := &PostgresRepository{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Migrate applies the embedded schema. It is idempotent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply draft schema: %w", err)
	}
	log.Info().Msg("draft schema applied")
	return nil
}

func (r *PostgresRepository) ReadState(ctx context.Context, divisionID string) (*models.DraftState, error) {
	return readState(ctx, r.pool, divisionID)
}

func (r *PostgresRepository) ReadPicks(ctx context.Context, divisionID string) ([]models.DraftPick, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT division_id, pick_number, user_id, player_id, player_name, picked_at
		FROM draft_picks
		WHERE division_id = $1
		ORDER BY pick_number`, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query draft picks: %w", err)
	}

	picks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DraftPick, error) {
		var p models.DraftPick
		err := row.Scan(&p.DivisionID, &p.PickNumber, &p.UserID, &p.PlayerID, &p.PlayerName, &p.Timestamp)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan draft picks: %w", err)
	}
	if picks == nil {
		picks = []models.DraftPick{}
	}
	return picks, nil
}

// AppendPick runs a single transaction: advance the state conditionally, insert
// the pick and, when the outbox is enabled, insert the events.
func (r *PostgresRepository) AppendPick(ctx context.Context, req AppendRequest) (*models.DraftState, error) {
	if err := validateAppend(req); err != nil {
		return nil, fmt.Errorf("invalid append request: %w", err)
	}

	next := req.Next
	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE draft_states
			SET current_pick = $3, is_active = $4, updated_at = $5
			WHERE division_id = $1 AND current_pick = $2 AND is_active`,
			req.Pick.DivisionID, req.ExpectedPick, next.CurrentPick, next.IsActive, next.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to advance draft state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := readState(ctx, tx, req.Pick.DivisionID); err != nil {
				return err
			}
			return ErrConflict
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO draft_picks (division_id, pick_number, user_id, player_id, player_name, picked_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			req.Pick.DivisionID, req.Pick.PickNumber, req.Pick.UserID, req.Pick.PlayerID, req.Pick.PlayerName, req.Pick.Timestamp)
		if err != nil {
			if constraint, ok := sqlutil.UniqueViolation(err); ok {
				if constraint == playerConstraint {
					return ErrPlayerTaken
				}
				return ErrConflict
			}
			return fmt.Errorf("failed to insert draft pick: %w", err)
		}

		if !r.outbox {
			return nil
		}
		for _, env := range req.Events {
			payload, err := env.Marshal()
			if err != nil {
				return fmt.Errorf("failed to marshal outbox event: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO draft_outbox (id, division_id, event_type, payload)
				VALUES ($1, $2, $3, $4)`,
				env.ID, env.DivisionID, string(env.Type), payload)
			if err != nil {
				return fmt.Errorf("failed to insert outbox event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *PostgresRepository) CreateState(ctx context.Context, state models.DraftState) error {
	if err := validateState(state); err != nil {
		return fmt.Errorf("invalid draft state: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO draft_states (division_id, current_pick, is_active, turn_order, rounds_total, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (division_id) DO NOTHING`,
		state.DivisionID, state.CurrentPick, state.IsActive, state.TurnOrder, state.RoundsTotal, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create draft state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func readState(ctx context.Context, q querier, divisionID string) (*models.DraftState, error) {
	var s models.DraftState
	err := q.QueryRow(ctx, `
		SELECT division_id, current_pick, is_active, turn_order, rounds_total, updated_at
		FROM draft_states
		WHERE division_id = $1`, divisionID).
		Scan(&s.DivisionID, &s.CurrentPick, &s.IsActive, &s.TurnOrder, &s.RoundsTotal, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read draft state: %w", err)
	}
	return &s, nil
}
