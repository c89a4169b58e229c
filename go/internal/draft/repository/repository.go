package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

var (
	// ErrNotFound is returned when a division has no draft state.
	ErrNotFound = errors.New("draft state not found")
	// ErrConflict is returned when the stored current pick no longer matches the expected one.
	ErrConflict = errors.New("draft state changed concurrently")
	// ErrPlayerTaken is returned when the player already belongs to a pick in the division.
	ErrPlayerTaken = errors.New("player already drafted in division")
	// ErrAlreadyExists is returned when initializing a division that already has a draft.
	ErrAlreadyExists = errors.New("draft state already exists")
)

// AppendRequest carries everything a pick commits atomically.
type AppendRequest struct {
	Pick         models.DraftPick
	ExpectedPick int
	Next         models.DraftState
	// Events are persisted alongside the pick by stores that run an outbox.
	Events []events.Envelope
}

// Repository is the only writer of draft state and picks.
type Repository interface {
	ReadState(ctx context.Context, divisionID string) (*models.DraftState, error)
	ReadPicks(ctx context.Context, divisionID string) ([]models.DraftPick, error)
	// AppendPick inserts the pick and advances the state in one atomic step,
	// provided the stored current pick equals ExpectedPick and the draft is active.
	AppendPick(ctx context.Context, req AppendRequest) (*models.DraftState, error)
	CreateState(ctx context.Context, state models.DraftState) error
}

// Consistent returns the uncached repository behind a read cache, or repo itself.
func Consistent(repo Repository) Repository {
	if c, ok := repo.(interface{ Consistent() Repository }); ok {
		return c.Consistent()
	}
	return repo
}

// ReadDraft reads the state and the picks of a division as one consistent
// pair, through a snapshot when repo caches them.
func ReadDraft(ctx context.Context, repo Repository, divisionID string) (*models.DraftState, []models.DraftPick, error) {
	if r, ok := repo.(interface {
		ReadDraft(ctx context.Context, divisionID string) (*models.DraftState, []models.DraftPick, error)
	}); ok {
		return r.ReadDraft(ctx, divisionID)
	}
	return readPair(ctx, repo, divisionID)
}

// readPairAttempts bounds the re-reads when a pick commits between the two reads.
const readPairAttempts = 3

func readPair(ctx context.Context, repo Repository, divisionID string) (*models.DraftState, []models.DraftPick, error) {
	var (
		state *models.DraftState
		picks []models.DraftPick
		err   error
	)
	for attempt := 0; attempt < readPairAttempts; attempt++ {
		state, err = repo.ReadState(ctx, divisionID)
		if err != nil {
			return nil, nil, err
		}
		picks, err = repo.ReadPicks(ctx, divisionID)
		if err != nil {
			return nil, nil, err
		}
		if consistentPair(state, picks) {
			break
		}
	}
	return state, picks, nil
}

// consistentPair reports whether picks are exactly the picks made before
// state.CurrentPick. Pick numbers are dense, so the count is enough.
func consistentPair(state *models.DraftState, picks []models.DraftPick) bool {
	return len(picks) == state.CurrentPick-1
}

func validateAppend(req AppendRequest) error {
	switch {
	case req.Pick.DivisionID == "":
		return errors.New("pick has no division id")
	case req.Next.DivisionID != req.Pick.DivisionID:
		return fmt.Errorf("next state division %q does not match pick division %q", req.Next.DivisionID, req.Pick.DivisionID)
	case req.Pick.PickNumber != req.ExpectedPick:
		return fmt.Errorf("pick number %d does not match expected pick %d", req.Pick.PickNumber, req.ExpectedPick)
	case req.Next.CurrentPick != req.ExpectedPick+1:
		return fmt.Errorf("next current pick %d does not follow expected pick %d", req.Next.CurrentPick, req.ExpectedPick)
	}
	return nil
}

func validateState(state models.DraftState) error {
	switch {
	case state.DivisionID == "":
		return errors.New("draft state has no division id")
	case len(state.TurnOrder) == 0:
		return errors.New("draft state has an empty turn order")
	case state.RoundsTotal < 1:
		return errors.New("draft state needs at least one round")
	case state.CurrentPick < 1:
		return errors.New("draft state current pick must be 1-based")
	}
	return nil
}
