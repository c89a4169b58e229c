package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/cache"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

// DefaultReadTTL bounds how stale a cached read can be.
const DefaultReadTTL = 1500 * time.Millisecond

// CacheObserver is told about read-path cache hits and misses.
type CacheObserver interface {
	CacheLookup(kind string, hit bool)
}

// CachedRepository serves ReadState and ReadPicks from a short-lived cache and
// retires the division's entries after every successful write.
type CachedRepository struct {
	inner    Repository
	cache    cache.Cache
	ttl      time.Duration
	observer CacheObserver
}

// NewCachedRepository decorates inner with a read cache.
func NewCachedRepository(inner Repository, c cache.Cache, ttl time.Duration, observer CacheObserver) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultReadTTL
	}
	return &CachedRepository{inner: inner, cache: c, ttl: ttl, observer: observer}
}

// Consistent returns a view that reads straight from the inner store while
// its writes still invalidate the cache.
func (r *CachedRepository) Consistent() Repository {
	return consistentView{r}
}

type consistentView struct {
	*CachedRepository
}

func (v consistentView) ReadState(ctx context.Context, divisionID string) (*models.DraftState, error) {
	return v.inner.ReadState(ctx, divisionID)
}

func (v consistentView) ReadPicks(ctx context.Context, divisionID string) ([]models.DraftPick, error) {
	return v.inner.ReadPicks(ctx, divisionID)
}

func (v consistentView) ReadDraft(ctx context.Context, divisionID string) (*models.DraftState, []models.DraftPick, error) {
	return readPair(ctx, v.inner, divisionID)
}

// generationTTL outlives any snapshot; an expired generation reads as "0".
const generationTTL = 24 * time.Hour

// snapshot is the cached pair for one division. State and picks are stored
// together so a hit can never mix two different points of the draft.
type snapshot struct {
	State models.DraftState  `json:"state"`
	Picks []models.DraftPick `json:"picks"`
}

func generationKey(divisionID string) string { return "draft:gen:" + divisionID }
func snapshotKey(divisionID, gen string) string {
	return "draft:snapshot:" + divisionID + ":" + gen
}

func (r *CachedRepository) ReadState(ctx context.Context, divisionID string) (*models.DraftState, error) {
	state, _, err := r.ReadDraft(ctx, divisionID)
	return state, err
}

func (r *CachedRepository) ReadPicks(ctx context.Context, divisionID string) ([]models.DraftPick, error) {
	_, picks, err := r.ReadDraft(ctx, divisionID)
	return picks, err
}

// ReadDraft returns the state and picks of a division from one snapshot.
// Snapshots are keyed by the division's generation, which every write
// replaces; a read that raced a write stores its result under the old
// generation, where no later read looks.
func (r *CachedRepository) ReadDraft(ctx context.Context, divisionID string) (*models.DraftState, []models.DraftPick, error) {
	gen, ok := r.generation(ctx, divisionID)
	if !ok {
		return readPair(ctx, r.inner, divisionID)
	}

	key := snapshotKey(divisionID, gen)
	var snap snapshot
	if r.lookup(ctx, "draft", key, &snap) {
		return &snap.State, snap.Picks, nil
	}

	state, picks, err := readPair(ctx, r.inner, divisionID)
	if err != nil {
		return nil, nil, err
	}
	if consistentPair(state, picks) {
		r.store(ctx, key, snapshot{State: *state, Picks: picks})
	}
	return state, picks, nil
}

func (r *CachedRepository) AppendPick(ctx context.Context, req AppendRequest) (*models.DraftState, error) {
	next, err := r.inner.AppendPick(ctx, req)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, req.Pick.DivisionID)
	return next, nil
}

func (r *CachedRepository) CreateState(ctx context.Context, state models.DraftState) error {
	if err := r.inner.CreateState(ctx, state); err != nil {
		return err
	}
	r.invalidate(ctx, state.DivisionID)
	return nil
}

// Invalidate drops cached reads for a division.
func (r *CachedRepository) Invalidate(ctx context.Context, divisionID string) {
	r.invalidate(ctx, divisionID)
}

func (r *CachedRepository) lookup(ctx context.Context, kind, key string, dst any) bool {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("key", key).Msg("read cache lookup failed")
		}
		r.observe(kind, false)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		r.observe(kind, false)
		return false
	}
	r.observe(kind, true)
	return true
}

func (r *CachedRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to populate read cache")
	}
}

// generation returns the division's current generation. ok is false when the
// cache cannot be read, and the caller then bypasses it.
func (r *CachedRepository) generation(ctx context.Context, divisionID string) (string, bool) {
	data, err := r.cache.Get(ctx, generationKey(divisionID))
	switch {
	case errors.Is(err, cache.ErrMiss):
		return "0", true
	case err != nil:
		log.Warn().Err(err).Str("division_id", divisionID).Msg("read cache generation lookup failed")
		return "", false
	}
	return string(data), true
}

func (r *CachedRepository) invalidate(ctx context.Context, divisionID string) {
	if err := r.cache.Set(ctx, generationKey(divisionID), []byte(uuid.NewString()), generationTTL); err != nil {
		log.Error().Err(err).Str("division_id", divisionID).Msg("failed to invalidate read cache")
	}
}

func (r *CachedRepository) observe(kind string, hit bool) {
	if r.observer != nil {
		r.observer.CacheLookup(kind, hit)
	}
}
