package divisions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/fpldraft/go/internal/draft/repository"
	"github.com/mcdev12/fpldraft/go/internal/models"
	"github.com/mcdev12/fpldraft/go/internal/player"
)

// ErrDivisionNotFound is returned for a division id missing from the league file
var ErrDivisionNotFound = errors.New("division not found")

// StateCreator is what Initialize needs from the draft store
type StateCreator interface {
	CreateState(ctx context.Context, state models.DraftState) error
}

// App serves the divisions of a loaded league.
type App struct {
	league League
	byID   map[string]Division
}

// NewApp validates the league and indexes its divisions
func NewApp(league League) (*App, error) {
	if err := validateLeague(league); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	byID := make(map[string]Division, len(league.Divisions))
	for _, d := range league.Divisions {
		byID[d.ID] = d
	}
	return &App{league: league, byID: byID}, nil
}

// LoadFile reads a YAML league file
func LoadFile(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read league file: %w", err)
	}
	var league League
	if err := yaml.Unmarshal(data, &league); err != nil {
		return nil, fmt.Errorf("failed to parse league file %s: %w", path, err)
	}
	return NewApp(league)
}

// Division returns a division by id
func (a *App) Division(divisionID string) (Division, error) {
	d, ok := a.byID[divisionID]
	if !ok {
		return Division{}, fmt.Errorf("%w: %s", ErrDivisionNotFound, divisionID)
	}
	return d, nil
}

// Divisions returns every division in file order
func (a *App) Divisions() []Division {
	return append([]Division(nil), a.league.Divisions...)
}

// Users returns the league members
func (a *App) Users() []models.User {
	return append([]models.User(nil), a.league.Users...)
}

// Rules returns the eligibility rules of a division
func (a *App) Rules(divisionID string) (player.Rules, error) {
	d, err := a.Division(divisionID)
	if err != nil {
		return player.Rules{}, err
	}
	return d.Rules, nil
}

// Initialize creates the draft state of every division that has none yet.
// Existing drafts are left untouched so restarts never reset progress.
func (a *App) Initialize(ctx context.Context, store StateCreator, now time.Time) error {
	for _, d := range a.league.Divisions {
		state := models.DraftState{
			DivisionID:  d.ID,
			CurrentPick: 1,
			IsActive:    d.Start,
			TurnOrder:   append([]string(nil), d.TurnOrder...),
			RoundsTotal: d.RoundsTotal,
			UpdatedAt:   now,
		}
		err := store.CreateState(ctx, state)
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Debug().Str("division_id", d.ID).Msg("draft already initialized")
		case err != nil:
			return fmt.Errorf("failed to initialize division %s: %w", d.ID, err)
		default:
			log.Info().Str("division_id", d.ID).Int("participants", len(d.TurnOrder)).Int("rounds", d.RoundsTotal).Msg("initialized draft")
		}
	}
	return nil
}

func validateLeague(league League) error {
	members := make(map[string]struct{}, len(league.Users))
	for _, u := range league.Users {
		if u.ID == "" {
			return errors.New("user id is required")
		}
		members[u.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(league.Divisions))
	for _, d := range league.Divisions {
		if d.ID == "" {
			return errors.New("division id is required")
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate division %s", d.ID)
		}
		seen[d.ID] = struct{}{}

		if d.RoundsTotal < 1 {
			return fmt.Errorf("division %s needs at least one round", d.ID)
		}
		if len(d.TurnOrder) == 0 {
			return fmt.Errorf("division %s has an empty turn order", d.ID)
		}
		inOrder := make(map[string]struct{}, len(d.TurnOrder))
		for _, uid := range d.TurnOrder {
			if _, dup := inOrder[uid]; dup {
				return fmt.Errorf("division %s lists %s twice", d.ID, uid)
			}
			inOrder[uid] = struct{}{}
			if len(members) > 0 {
				if _, ok := members[uid]; !ok {
					return fmt.Errorf("division %s references unknown user %s", d.ID, uid)
				}
			}
		}
	}
	return nil
}
