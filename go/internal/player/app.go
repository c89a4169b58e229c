package player

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/clients"
	"github.com/mcdev12/fpldraft/go/internal/draft/pick"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

// DefaultCatalogTTL is how long a fetched catalog is served before refreshing.
const DefaultCatalogTTL = 15 * time.Minute

// RulesLookup resolves the eligibility rules of a division
type RulesLookup interface {
	Rules(divisionID string) (Rules, error)
}

// App owns the player catalog. Documents from every source are merged by
// player id, the higher priority source winning.
type App struct {
	sources []Source
	rules   RulesLookup
	clock   clockwork.Clock
	ttl     time.Duration

	mu        sync.RWMutex
	players   map[int]models.Player
	fetchedAt time.Time
}

// NewApp creates a new player App
func NewApp(rules RulesLookup, clock clockwork.Clock, ttl time.Duration, sources ...Source) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &App{
		sources: sources,
		rules:   rules,
		clock:   clock,
		ttl:     ttl,
	}
}

// Refresh rebuilds the catalog from every source. A source that fails is
// skipped; Refresh only fails when no source produced anything.
func (a *App) Refresh(ctx context.Context) error {
	merged := make(map[int]models.Player)
	var errs []error
	for _, src := range a.sources {
		docs, err := src.Documents(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", src.Name()).Msg("player source failed")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		for _, doc := range docs {
			p, err := ToPlayer(doc)
			if err != nil {
				log.Debug().Err(err).Str("source", src.Name()).Msg("skipping catalog document")
				continue
			}
			if prev, ok := merged[p.ID]; ok && clients.SourcePriority(prev.Source) > clients.SourcePriority(p.Source) {
				continue
			}
			merged[p.ID] = p
		}
	}
	if len(merged) == 0 && len(errs) > 0 {
		return fmt.Errorf("failed to load player catalog: %w", errors.Join(errs...))
	}

	a.mu.Lock()
	a.players = merged
	a.fetchedAt = a.clock.Now()
	a.mu.Unlock()

	log.Info().Int("players", len(merged)).Int("sources", len(a.sources)).Msg("player catalog refreshed")
	return nil
}

func (a *App) snapshot(ctx context.Context) (map[int]models.Player, error) {
	a.mu.RLock()
	players, fetchedAt := a.players, a.fetchedAt
	a.mu.RUnlock()

	if players != nil && a.clock.Since(fetchedAt) < a.ttl {
		return players, nil
	}
	if err := a.Refresh(ctx); err != nil {
		if players != nil {
			log.Warn().Err(err).Msg("serving stale player catalog")
			return players, nil
		}
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.players, nil
}

// Players returns the whole catalog ordered by id.
func (a *App) Players(ctx context.Context) ([]models.Player, error) {
	players, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sortedPlayers(players, func(models.Player) bool { return true }), nil
}

// Lookup returns a single catalog player.
func (a *App) Lookup(ctx context.Context, playerID int) (models.Player, error) {
	players, err := a.snapshot(ctx)
	if err != nil {
		return models.Player{}, err
	}
	p, ok := players[playerID]
	if !ok {
		return models.Player{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, playerID)
	}
	return p, nil
}

// Available lists the players a division can still draft: not yet drafted
// and allowed by the division rules.
func (a *App) Available(ctx context.Context, divisionID string, drafted map[int]struct{}) ([]models.Player, error) {
	players, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := a.divisionRules(divisionID)
	if err != nil {
		return nil, err
	}
	return sortedPlayers(players, func(p models.Player) bool {
		if _, taken := drafted[p.ID]; taken {
			return false
		}
		return rules.Allows(p)
	}), nil
}

// Ruleset returns the eligibility predicate for a division.
func (a *App) Ruleset(ctx context.Context, divisionID string) (pick.Ruleset, error) {
	players, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := a.divisionRules(divisionID)
	if err != nil {
		return nil, err
	}
	return Eligibility{players: players, rules: rules}, nil
}

func (a *App) divisionRules(divisionID string) (Rules, error) {
	if a.rules == nil {
		return Rules{}, nil
	}
	return a.rules.Rules(divisionID)
}

func sortedPlayers(players map[int]models.Player, keep func(models.Player) bool) []models.Player {
	out := make([]models.Player, 0, len(players))
	for _, p := range players {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
