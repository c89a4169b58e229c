package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

// runContract exercises the behaviour every Repository implementation must share.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("read missing state", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.ReadState(context.Background(), uniqueDivision(t)); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ReadState error = %v, want ErrNotFound", err)
		}
	})

	t.Run("create twice", func(t *testing.T) {
		repo := newRepo(t)
		state := newState(uniqueDivision(t), 1)
		if err := repo.CreateState(context.Background(), state); err != nil {
			t.Fatalf("CreateState: %v", err)
		}
		if err := repo.CreateState(context.Background(), state); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("second CreateState error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("append advances state and records pick", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		state := newState(uniqueDivision(t), 1)
		mustCreate(t, repo, state)

		next, err := repo.AppendPick(ctx, appendFor(state, "alice", 7))
		if err != nil {
			t.Fatalf("AppendPick: %v", err)
		}
		if next.CurrentPick != 2 || next.CurrentUserID() != "bob" {
			t.Fatalf("next state = %+v", next)
		}

		stored, err := repo.ReadState(ctx, state.DivisionID)
		if err != nil {
			t.Fatalf("ReadState: %v", err)
		}
		if stored.CurrentPick != 2 {
			t.Fatalf("stored current pick = %d, want 2", stored.CurrentPick)
		}
		picks, err := repo.ReadPicks(ctx, state.DivisionID)
		if err != nil {
			t.Fatalf("ReadPicks: %v", err)
		}
		if len(picks) != 1 || picks[0].PickNumber != 1 || picks[0].PlayerID != 7 {
			t.Fatalf("picks = %+v", picks)
		}
	})

	t.Run("stale expected pick conflicts", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		state := newState(uniqueDivision(t), 1)
		mustCreate(t, repo, state)

		if _, err := repo.AppendPick(ctx, appendFor(state, "alice", 7)); err != nil {
			t.Fatalf("first AppendPick: %v", err)
		}
		if _, err := repo.AppendPick(ctx, appendFor(state, "alice", 8)); !errors.Is(err, ErrConflict) {
			t.Fatalf("stale AppendPick error = %v, want ErrConflict", err)
		}
		picks, _ := repo.ReadPicks(ctx, state.DivisionID)
		if len(picks) != 1 {
			t.Fatalf("conflicting append left %d picks", len(picks))
		}
	})

	t.Run("duplicate player rejected without advancing", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		state := newState(uniqueDivision(t), 1)
		mustCreate(t, repo, state)

		next, err := repo.AppendPick(ctx, appendFor(state, "alice", 7))
		if err != nil {
			t.Fatalf("AppendPick: %v", err)
		}
		if _, err := repo.AppendPick(ctx, appendFor(*next, "bob", 7)); !errors.Is(err, ErrPlayerTaken) {
			t.Fatalf("duplicate AppendPick error = %v, want ErrPlayerTaken", err)
		}
		stored, _ := repo.ReadState(ctx, state.DivisionID)
		if stored.CurrentPick != 2 {
			t.Fatalf("failed append moved current pick to %d", stored.CurrentPick)
		}
	})

	t.Run("inactive draft conflicts", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		state := newState(uniqueDivision(t), 1)
		state.IsActive = false
		mustCreate(t, repo, state)

		req := appendFor(state, "alice", 7)
		if _, err := repo.AppendPick(ctx, req); !errors.Is(err, ErrConflict) {
			t.Fatalf("AppendPick on inactive draft error = %v, want ErrConflict", err)
		}
	})

	t.Run("concurrent appends have one winner", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		state := newState(uniqueDivision(t), 2)
		mustCreate(t, repo, state)

		const contenders = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(playerID int) {
				defer wg.Done()
				_, err := repo.AppendPick(ctx, appendFor(state, "alice", playerID))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected AppendPick error: %v", err)
				}
			}(100 + i)
		}
		wg.Wait()

		if wins != 1 || conflicts != contenders-1 {
			t.Fatalf("wins=%d conflicts=%d, want 1 and %d", wins, conflicts, contenders-1)
		}
		picks, _ := repo.ReadPicks(ctx, state.DivisionID)
		if len(picks) != 1 || picks[0].PickNumber != 1 {
			t.Fatalf("picks after contention = %+v", picks)
		}
	})
}

var divisionSeq struct {
	sync.Mutex
	n int
}

func uniqueDivision(t *testing.T) string {
	divisionSeq.Lock()
	defer divisionSeq.Unlock()
	divisionSeq.n++
	return fmt.Sprintf("T%d-%d", time.Now().UnixNano(), divisionSeq.n)
}

func newState(divisionID string, rounds int) models.DraftState {
	return models.DraftState{
		DivisionID:  divisionID,
		CurrentPick: 1,
		IsActive:    true,
		TurnOrder:   []string{"alice", "bob"},
		RoundsTotal: rounds,
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func mustCreate(t *testing.T, repo Repository, state models.DraftState) {
	t.Helper()
	if err := repo.CreateState(context.Background(), state); err != nil {
		t.Fatalf("CreateState: %v", err)
	}
}

func appendFor(state models.DraftState, userID string, playerID int) AppendRequest {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return AppendRequest{
		Pick: models.DraftPick{
			DivisionID: state.DivisionID,
			PickNumber: state.CurrentPick,
			UserID:     userID,
			PlayerID:   playerID,
			PlayerName: fmt.Sprintf("Player %d", playerID),
			Timestamp:  now,
		},
		ExpectedPick: state.CurrentPick,
		Next:         state.Advance(now),
	}
}
