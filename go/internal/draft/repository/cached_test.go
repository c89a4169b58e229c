package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/fpldraft/go/internal/cache"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

type countingRepository struct {
	Repository
	mu         sync.Mutex
	stateReads int
	pickReads  int
}

func (c *countingRepository) ReadState(ctx context.Context, id string) (*models.DraftState, error) {
	c.mu.Lock()
	c.stateReads++
	c.mu.Unlock()
	return c.Repository.ReadState(ctx, id)
}

func (c *countingRepository) ReadPicks(ctx context.Context, id string) ([]models.DraftPick, error) {
	c.mu.Lock()
	c.pickReads++
	c.mu.Unlock()
	return c.Repository.ReadPicks(ctx, id)
}

type lookupRecorder struct {
	hits, misses int
}

func (l *lookupRecorder) CacheLookup(_ string, hit bool) {
	if hit {
		l.hits++
	} else {
		l.misses++
	}
}

func TestCachedRepositoryContract(t *testing.T) {
	runContract(t, func(t *testing.T) Repository {
		return NewCachedRepository(NewMemoryRepository(), cache.NewMemory(clockwork.NewFakeClock()), time.Second, nil)
	})
}

func TestCachedRepositoryServesWithinTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	inner := &countingRepository{Repository: NewMemoryRepository()}
	rec := &lookupRecorder{}
	repo := NewCachedRepository(inner, cache.NewMemory(clock), DefaultReadTTL, rec)
	mustCreate(t, repo, newState("D1", 2))

	for i := 0; i < 3; i++ {
		if _, err := repo.ReadState(ctx, "D1"); err != nil {
			t.Fatalf("ReadState: %v", err)
		}
	}
	if inner.stateReads != 1 {
		t.Fatalf("inner state reads = %d, want 1", inner.stateReads)
	}
	if rec.hits != 2 || rec.misses != 1 {
		t.Fatalf("hits=%d misses=%d", rec.hits, rec.misses)
	}

	clock.Advance(DefaultReadTTL)
	if _, err := repo.ReadState(ctx, "D1"); err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if inner.stateReads != 2 {
		t.Fatalf("entry served past its ttl")
	}
}

func TestCachedRepositoryInvalidatesOnAppend(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	inner := &countingRepository{Repository: NewMemoryRepository()}
	repo := NewCachedRepository(inner, cache.NewMemory(clock), time.Minute, nil)
	state := newState("D1", 2)
	mustCreate(t, repo, state)

	if _, err := repo.ReadState(ctx, "D1"); err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if _, err := repo.ReadPicks(ctx, "D1"); err != nil {
		t.Fatalf("ReadPicks: %v", err)
	}

	if _, err := repo.AppendPick(ctx, appendFor(state, "alice", 7)); err != nil {
		t.Fatalf("AppendPick: %v", err)
	}

	s, _ := repo.ReadState(ctx, "D1")
	picks, _ := repo.ReadPicks(ctx, "D1")
	if s.CurrentPick != 2 || len(picks) != 1 {
		t.Fatalf("stale read after write: state=%+v picks=%d", s, len(picks))
	}
	if inner.stateReads != 2 || inner.pickReads != 2 {
		t.Fatalf("reads after invalidation: state=%d picks=%d", inner.stateReads, inner.pickReads)
	}
}

func TestConsistentBypassesCacheForReads(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	inner := &countingRepository{Repository: NewMemoryRepository()}
	cached := NewCachedRepository(inner, cache.NewMemory(clock), time.Minute, nil)
	initial := newState("D1", 2)
	mustCreate(t, cached, initial)

	if _, err := cached.ReadState(ctx, "D1"); err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	consistent := Consistent(cached)
	for i := 0; i < 2; i++ {
		if _, err := consistent.ReadState(ctx, "D1"); err != nil {
			t.Fatalf("consistent ReadState: %v", err)
		}
	}
	if inner.stateReads != 3 {
		t.Fatalf("inner state reads = %d, want 3", inner.stateReads)
	}

	// Writes through the consistent view still drop cached entries.
	if _, err := consistent.AppendPick(ctx, appendFor(initial, "alice", 7)); err != nil {
		t.Fatalf("AppendPick: %v", err)
	}
	s, err := cached.ReadState(ctx, "D1")
	if err != nil || s.CurrentPick != 2 {
		t.Fatalf("cached read after consistent write = %+v, %v", s, err)
	}

	if Consistent(inner) != Repository(inner) {
		t.Fatalf("Consistent changed an uncached repository")
	}
}

// hookedRepository runs a hook once, right after the named inner read returns.
type hookedRepository struct {
	Repository
	afterState func()
	afterPicks func()
}

func (h *hookedRepository) ReadState(ctx context.Context, id string) (*models.DraftState, error) {
	s, err := h.Repository.ReadState(ctx, id)
	if hook := h.afterState; hook != nil {
		h.afterState = nil
		hook()
	}
	return s, err
}

func (h *hookedRepository) ReadPicks(ctx context.Context, id string) ([]models.DraftPick, error) {
	p, err := h.Repository.ReadPicks(ctx, id)
	if hook := h.afterPicks; hook != nil {
		h.afterPicks = nil
		hook()
	}
	return p, err
}

func TestCachedRepositoryDiscardsReadRacingAWrite(t *testing.T) {
	ctx := context.Background()
	inner := &hookedRepository{Repository: NewMemoryRepository()}
	repo := NewCachedRepository(inner, cache.NewMemory(clockwork.NewFakeClock()), time.Minute, nil)
	state := newState("D1", 2)
	mustCreate(t, repo, state)

	// The pick commits after the in-flight read has already loaded its data.
	inner.afterPicks = func() {
		if _, err := repo.AppendPick(ctx, appendFor(state, "alice", 7)); err != nil {
			t.Errorf("AppendPick: %v", err)
		}
	}
	if _, _, err := repo.ReadDraft(ctx, "D1"); err != nil {
		t.Fatalf("ReadDraft: %v", err)
	}

	s, picks, err := repo.ReadDraft(ctx, "D1")
	if err != nil {
		t.Fatalf("ReadDraft: %v", err)
	}
	if s.CurrentPick != 2 || len(picks) != 1 {
		t.Fatalf("read after the write returned the raced snapshot: state=%+v picks=%d", s, len(picks))
	}
}

func TestReadDraftRereadsAcrossACommit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepository()
	state := newState("D1", 2)
	mustCreate(t, mem, state)

	tests := []struct {
		name string
		repo func(inner Repository) Repository
	}{
		{"uncached", func(inner Repository) Repository { return inner }},
		{"cached", func(inner Repository) Repository {
			return NewCachedRepository(inner, cache.NewMemory(clockwork.NewFakeClock()), time.Minute, nil)
		}},
	}
	player := 7
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, err := mem.ReadState(ctx, "D1")
			if err != nil {
				t.Fatal(err)
			}
			// A pick lands between the state read and the picks read.
			inner := &hookedRepository{Repository: mem}
			inner.afterState = func() {
				if _, err := mem.AppendPick(ctx, appendFor(*current, current.CurrentUserID(), player)); err != nil {
					t.Errorf("AppendPick: %v", err)
				}
			}
			player++

			s, picks, err := ReadDraft(ctx, tt.repo(inner), "D1")
			if err != nil {
				t.Fatalf("ReadDraft: %v", err)
			}
			if len(picks) != s.CurrentPick-1 {
				t.Fatalf("mixed snapshot: currentPick=%d with %d picks", s.CurrentPick, len(picks))
			}
		})
	}
}
