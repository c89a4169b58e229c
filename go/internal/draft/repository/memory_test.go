package repository

import (
	"context"
	"testing"
)

func TestMemoryRepository(t *testing.T) {
	runContract(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepositoryRejectsMalformedAppend(t *testing.T) {
	repo := NewMemoryRepository()
	state := newState("D1", 1)
	mustCreate(t, repo, state)

	req := appendFor(state, "alice", 7)
	req.Pick.PickNumber = 3
	if _, err := repo.AppendPick(context.Background(), req); err == nil {
		t.Fatalf("expected malformed append to fail")
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	mustCreate(t, repo, newState("D1", 1))

	s, _ := repo.ReadState(ctx, "D1")
	s.TurnOrder[0] = "mallory"
	s.CurrentPick = 99

	again, _ := repo.ReadState(ctx, "D1")
	if again.TurnOrder[0] != "alice" || again.CurrentPick != 1 {
		t.Fatalf("caller mutation leaked into repository: %+v", again)
	}
}

func TestCreateStateValidates(t *testing.T) {
	repo := NewMemoryRepository()
	bad := newState("D1", 1)
	bad.TurnOrder = nil
	if err := repo.CreateState(context.Background(), bad); err == nil {
		t.Fatalf("expected empty turn order to be rejected")
	}
}
