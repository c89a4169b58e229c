package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
	"github.com/mcdev12/fpldraft/go/internal/draft/pick"
	"github.com/mcdev12/fpldraft/go/internal/draft/repository"
	"github.com/mcdev12/fpldraft/go/internal/models"
	"github.com/mcdev12/fpldraft/go/internal/player"
)

// ErrDraftNotFound is returned when the division has no draft.
var ErrDraftNotFound = errors.New("draft not found")

// DraftEndedMessage is the text carried by draft_ended.
const DraftEndedMessage = "The draft is complete"

// Catalog is what the coordinator needs from the player catalog
type Catalog interface {
	Lookup(ctx context.Context, playerID int) (models.Player, error)
	Available(ctx context.Context, divisionID string, drafted map[int]struct{}) ([]models.Player, error)
	Ruleset(ctx context.Context, divisionID string) (pick.Ruleset, error)
}

// UserDirectory resolves display names for pick_made
type UserDirectory interface {
	DisplayName(userID string) string
}

// Publisher hands committed events to the fan-out.
type Publisher interface {
	Publish(ctx context.Context, divisionID string, envs ...events.Envelope) error
}

// Archiver stores the final record of a finished draft.
type Archiver interface {
	Archive(ctx context.Context, state models.DraftState, picks []models.DraftPick) error
}

// Recorder receives coordinator metrics
type Recorder interface {
	RecordPick(outcome string, duration time.Duration)
	RecordEventPublished(eventType string, err error)
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithPublisher sets where committed events go. Without one, events are only
// persisted (outbox mode) or dropped.
func WithPublisher(p Publisher) Option { return func(c *Coordinator) { c.publisher = p } }

func WithArchiver(a Archiver) Option { return func(c *Coordinator) { c.archiver = a } }

func WithRecorder(r Recorder) Option { return func(c *Coordinator) { c.metrics = r } }

func WithClock(clock clockwork.Clock) Option { return func(c *Coordinator) { c.clock = clock } }

// Coordinator serializes picks per division. It holds no draft state of its
// own; the store's compare-and-set on currentPick is the only arbiter.
type Coordinator struct {
	repo      repository.Repository
	catalog   Catalog
	users     UserDirectory
	publisher Publisher
	archiver  Archiver
	metrics   Recorder
	clock     clockwork.Clock
}

// New creates a Coordinator. repo may be a cached repository; writes and the
// reads that feed them always go to the uncached store behind it.
func New(repo repository.Repository, catalog Catalog, users UserDirectory, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:    repo,
		catalog: catalog,
		users:   users,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitPick validates and commits one pick. Rejections are results, not
// errors; the error return is reserved for storage and catalog faults.
func (c *Coordinator) SubmitPick(ctx context.Context, divisionID, userID string, playerID int) (*SubmitPickResult, error) {
	start := c.clock.Now()
	res, err := c.submitPick(ctx, divisionID, userID, playerID)
	if c.metrics != nil {
		switch {
		case err != nil:
			c.metrics.RecordPick("error", c.clock.Since(start))
		case res.Accepted:
			c.metrics.RecordPick("accepted", c.clock.Since(start))
		default:
			c.metrics.RecordPick(string(res.Reason), c.clock.Since(start))
		}
	}
	return res, err
}

func (c *Coordinator) submitPick(ctx context.Context, divisionID, userID string, playerID int) (*SubmitPickResult, error) {
	store := repository.Consistent(c.repo)

	state, err := store.ReadState(ctx, divisionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, divisionID)
		}
		return nil, fmt.Errorf("failed to read draft state: %w", err)
	}
	picks, err := store.ReadPicks(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft picks: %w", err)
	}
	rules, err := c.catalog.Ruleset(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ruleset: %w", err)
	}

	decision := pick.Validate(pick.Proposed{UserID: userID, PlayerID: playerID}, *state, models.DraftedPlayerIDs(picks), rules)
	if !decision.Accepted {
		log.Debug().
			Str("division_id", divisionID).
			Str("user_id", userID).
			Int("player_id", playerID).
			Str("reason", string(decision.Reason)).
			Msg("pick rejected")
		return rejected(decision.Reason), nil
	}

	playerName := ""
	if p, err := c.catalog.Lookup(ctx, playerID); err == nil {
		playerName = p.Name
	} else if !errors.Is(err, player.ErrPlayerNotFound) {
		return nil, fmt.Errorf("failed to look up player: %w", err)
	}

	now := c.clock.Now().UTC()
	candidate := models.DraftPick{
		DivisionID: divisionID,
		PickNumber: state.CurrentPick,
		UserID:     userID,
		PlayerID:   playerID,
		PlayerName: playerName,
		Timestamp:  now,
	}
	next := state.Advance(now)

	envs, err := c.buildEvents(candidate, next, now)
	if err != nil {
		return nil, err
	}

	committed, err := store.AppendPick(ctx, repository.AppendRequest{
		Pick:         candidate,
		ExpectedPick: state.CurrentPick,
		Next:         next,
		Events:       envs,
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		log.Info().
			Str("division_id", divisionID).
			Str("user_id", userID).
			Int("pick_number", candidate.PickNumber).
			Msg("lost pick race")
		return rejected(pick.ReasonTurnAlreadyTaken), nil
	case errors.Is(err, repository.ErrPlayerTaken):
		return rejected(pick.ReasonPlayerAlreadyDrafted), nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, divisionID)
	case err != nil:
		return nil, fmt.Errorf("failed to append pick: %w", err)
	}

	log.Info().
		Str("division_id", divisionID).
		Str("user_id", userID).
		Int("player_id", playerID).
		Int("pick_number", candidate.PickNumber).
		Bool("draft_ended", !committed.IsActive).
		Msg("pick committed")

	c.publish(ctx, divisionID, envs)
	if committed.Exhausted() {
		c.archive(ctx, *committed, append(picks, candidate))
	}

	return accepted(candidate, *committed), nil
}

func (c *Coordinator) buildEvents(p models.DraftPick, next models.DraftState, now time.Time) ([]events.Envelope, error) {
	evs := []events.Event{events.PickMade{
		UserID:      p.UserID,
		UserName:    c.displayName(p.UserID),
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		CurrentPick: p.PickNumber,
	}}
	if next.Exhausted() {
		evs = append(evs, events.DraftEnded{Message: DraftEndedMessage})
	} else {
		evs = append(evs, events.TurnChange{CurrentUserID: next.CurrentUserID(), CurrentPick: next.CurrentPick})
	}

	envs := make([]events.Envelope, 0, len(evs))
	for _, ev := range evs {
		env, err := events.Wrap(p.DivisionID, ev, now)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (c *Coordinator) displayName(userID string) string {
	if c.users == nil {
		return userID
	}
	return c.users.DisplayName(userID)
}

func (c *Coordinator) publish(ctx context.Context, divisionID string, envs []events.Envelope) {
	if c.publisher == nil {
		return
	}
	err := c.publisher.Publish(ctx, divisionID, envs...)
	if err != nil {
		log.Error().Err(err).Str("division_id", divisionID).Msg("failed to publish draft events")
	}
	if c.metrics != nil {
		for _, env := range envs {
			c.metrics.RecordEventPublished(string(env.Type), err)
		}
	}
}

func (c *Coordinator) archive(ctx context.Context, state models.DraftState, picks []models.DraftPick) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.Archive(ctx, state, picks); err != nil {
		log.Error().Err(err).Str("division_id", state.DivisionID).Msg("failed to archive finished draft")
		return
	}
	log.Info().Str("division_id", state.DivisionID).Int("picks", len(picks)).Msg("archived finished draft")
}

// LoadDraftData returns the state, the confirmed picks and the players still
// available to the division.
func (c *Coordinator) LoadDraftData(ctx context.Context, divisionID string) (*DraftData, error) {
	state, picks, err := c.read(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	available, err := c.catalog.Available(ctx, divisionID, models.DraftedPlayerIDs(picks))
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	return &DraftData{DraftState: *state, DraftPicks: picks, AvailablePlayers: available}, nil
}

// Poll answers a client that knows lastKnownPickCount picks. It reads through
// the cache and always derives CurrentUserID from the state it returns.
func (c *Coordinator) Poll(ctx context.Context, divisionID string, lastKnownPickCount int) (*PollResult, error) {
	state, picks, err := c.read(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	res := &PollResult{
		HasUpdates:    len(picks) != lastKnownPickCount,
		PickCount:     len(picks),
		CurrentPick:   state.CurrentPick,
		CurrentUserID: state.CurrentUserID(),
		IsActive:      state.IsActive,
	}
	if res.HasUpdates {
		from := lastKnownPickCount
		if from < 0 || from > len(picks) {
			from = 0
		}
		res.Picks = picks[from:]
	}
	return res, nil
}

// read returns state and picks as one pair so Poll's counts and current user
// always describe the same point of the draft.
func (c *Coordinator) read(ctx context.Context, divisionID string) (*models.DraftState, []models.DraftPick, error) {
	state, picks, err := repository.ReadDraft(ctx, c.repo, divisionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrDraftNotFound, divisionID)
		}
		return nil, nil, fmt.Errorf("failed to read draft: %w", err)
	}
	return state, picks, nil
}
