package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

type memoryDivision struct {
	state   models.DraftState
	picks   []models.DraftPick
	drafted map[int]struct{}
}

// MemoryRepository keeps draft state in process. A single mutex serializes writers.
type MemoryRepository struct {
	mu        sync.RWMutex
	divisions map[string]*memoryDivision
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{divisions: make(map[string]*memoryDivision)}
}

func (r *MemoryRepository) ReadState(_ context.Context, divisionID string) (*models.DraftState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.divisions[divisionID]
	if !ok {
		return nil, ErrNotFound
	}
	state := cloneState(d.state)
	return &state, nil
}

func (r *MemoryRepository) ReadPicks(_ context.Context, divisionID string) ([]models.DraftPick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.divisions[divisionID]
	if !ok {
		return []models.DraftPick{}, nil
	}
	return append([]models.DraftPick(nil), d.picks...), nil
}

func (r *MemoryRepository) AppendPick(_ context.Context, req AppendRequest) (*models.DraftState, error) {
	if err := validateAppend(req); err != nil {
		return nil, fmt.Errorf("invalid append request: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.divisions[req.Pick.DivisionID]
	if !ok {
		return nil, ErrNotFound
	}
	if !d.state.IsActive || d.state.CurrentPick != req.ExpectedPick {
		return nil, ErrConflict
	}
	if _, taken := d.drafted[req.Pick.PlayerID]; taken {
		return nil, ErrPlayerTaken
	}

	d.picks = append(d.picks, req.Pick)
	d.drafted[req.Pick.PlayerID] = struct{}{}
	d.state = cloneState(req.Next)

	state := cloneState(d.state)
	return &state, nil
}

func (r *MemoryRepository) CreateState(_ context.Context, state models.DraftState) error {
	if err := validateState(state); err != nil {
		return fmt.Errorf("invalid draft state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.divisions[state.DivisionID]; ok {
		return ErrAlreadyExists
	}
	r.divisions[state.DivisionID] = &memoryDivision{
		state:   cloneState(state),
		drafted: make(map[int]struct{}),
	}
	return nil
}

func cloneState(s models.DraftState) models.DraftState {
	s.TurnOrder = append([]string(nil), s.TurnOrder...)
	return s
}
