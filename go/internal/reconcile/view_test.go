package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

type collector struct {
	mu    sync.Mutex
	notes []Notification
}

func (c *collector) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

func (c *collector) last() Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.notes) == 0 {
		return Notification{}
	}
	return c.notes[len(c.notes)-1]
}

func newTestView(t *testing.T, clock clockwork.Clock) (*View, *collector) {
	t.Helper()
	notes := &collector{}
	v := NewView("D1", WithClock(clock), WithNotifier(notes), WithUser("bob"))
	v.Load(models.DraftState{DivisionID: "D1", CurrentPick: 1, IsActive: true, TurnOrder: []string{"alice", "bob"}, RoundsTotal: 2}, nil)
	return v, notes
}

func wrap(t *testing.T, division string, ev events.Event) events.Envelope {
	t.Helper()
	env, err := events.Wrap(division, ev, time.Now())
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	return env
}

func TestPickMadeSupersedesOptimisticPick(t *testing.T) {
	v, _ := newTestView(t, clockwork.NewFakeClock())

	v.AddOptimisticPick(models.DraftPick{PickNumber: 1, UserID: "alice", PlayerID: 42, PlayerName: "Saka"})
	picks := v.Picks()
	if len(picks) != 1 || !picks[0].IsOptimistic {
		t.Fatalf("optimistic pick not visible: %+v", picks)
	}

	err := v.ApplyEvent(wrap(t, "D1", events.PickMade{UserID: "alice", UserName: "Alice", PlayerID: 42, PlayerName: "Saka", CurrentPick: 1}))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}

	picks = v.Picks()
	count := 0
	for _, p := range picks {
		if p.PlayerID == 42 {
			count++
			if p.IsOptimistic {
				t.Fatalf("entry for player 42 still optimistic")
			}
		}
	}
	if count != 1 {
		t.Fatalf("player 42 appears %d times, want 1: %+v", count, picks)
	}
	if st, _ := v.State(); st.CurrentPick != 2 {
		t.Fatalf("currentPick = %d, want 2", st.CurrentPick)
	}
}

func TestConfirmDropsOptimisticPick(t *testing.T) {
	v, _ := newTestView(t, clockwork.NewFakeClock())
	v.AddOptimisticPick(models.DraftPick{PickNumber: 1, UserID: "alice", PlayerID: 7})
	v.Confirm(models.DraftPick{DivisionID: "D1", PickNumber: 1, UserID: "alice", PlayerID: 7, PlayerName: "Saka"})

	picks := v.Picks()
	if len(picks) != 1 || picks[0].IsOptimistic || picks[0].PlayerName != "Saka" {
		t.Fatalf("unexpected view %+v", picks)
	}
	// A confirmed player cannot reappear optimistically.
	v.AddOptimisticPick(models.DraftPick{PickNumber: 2, UserID: "bob", PlayerID: 7})
	if got := len(v.Picks()); got != 1 {
		t.Fatalf("view has %d entries, want 1", got)
	}
}

func TestRejectionGraceWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v, notes := newTestView(t, clock)
	v.AddOptimisticPick(models.DraftPick{PickNumber: 2, UserID: "bob", PlayerID: 9})

	v.Reject(9, "That player has already been drafted")
	if n := notes.last(); n.Level != LevelError || n.Message != "That player has already been drafted" {
		t.Fatalf("unexpected notification %+v", n)
	}

	clock.Advance(DefaultGrace - time.Millisecond)
	if dropped := v.Sweep(); dropped != 0 || len(v.Picks()) != 1 {
		t.Fatalf("rejected pick dropped inside the grace window")
	}
	clock.Advance(time.Millisecond)
	if dropped := v.Sweep(); dropped != 1 || len(v.Picks()) != 0 {
		t.Fatalf("rejected pick kept after the grace window: %+v", v.Picks())
	}
}

func TestLateConfirmationInsideGraceWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v, _ := newTestView(t, clock)
	v.AddOptimisticPick(models.DraftPick{PickNumber: 1, UserID: "alice", PlayerID: 9})
	v.Reject(9, "Request failed")
	clock.Advance(time.Second)

	if err := v.ApplyEvent(wrap(t, "D1", events.PickMade{UserID: "alice", PlayerID: 9, PlayerName: "Rice", CurrentPick: 1})); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	picks := v.Picks()
	if len(picks) != 1 || picks[0].IsOptimistic {
		t.Fatalf("late confirmation not reflected: %+v", picks)
	}
}

func TestSweepDropsStaleOptimisticPicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v, _ := newTestView(t, clock)
	v.AddOptimisticPick(models.DraftPick{PickNumber: 1, UserID: "alice", PlayerID: 3})
	clock.Advance(10 * time.Second)
	v.AddOptimisticPick(models.DraftPick{PickNumber: 2, UserID: "bob", PlayerID: 4})

	clock.Advance(DefaultStaleness - 10*time.Second)
	if dropped := v.Sweep(); dropped != 1 {
		t.Fatalf("dropped %d, want 1", dropped)
	}
	picks := v.Picks()
	if len(picks) != 1 || picks[0].PlayerID != 4 {
		t.Fatalf("unexpected view %+v", picks)
	}
}

func TestLoadReplacesConfirmedPicks(t *testing.T) {
	v, _ := newTestView(t, clockwork.NewFakeClock())
	v.Confirm(models.DraftPick{DivisionID: "D1", PickNumber: 1, UserID: "alice", PlayerID: 1})
	v.AddOptimisticPick(models.DraftPick{PickNumber: 2, UserID: "bob", PlayerID: 2})
	v.AddOptimisticPick(models.DraftPick{PickNumber: 3, UserID: "alice", PlayerID: 3})

	state := models.DraftState{DivisionID: "D1", CurrentPick: 3, IsActive: true, TurnOrder: []string{"alice", "bob"}, RoundsTotal: 2}
	v.Load(state, []models.DraftPick{
		{DivisionID: "D1", PickNumber: 1, UserID: "alice", PlayerID: 5},
		{DivisionID: "D1", PickNumber: 2, UserID: "bob", PlayerID: 2},
		{DivisionID: "D2", PickNumber: 1, UserID: "carol", PlayerID: 8},
	})

	picks := v.Picks()
	want := []struct {
		player     int
		optimistic bool
	}{{5, false}, {2, false}, {3, true}}
	if len(picks) != len(want) {
		t.Fatalf("view = %+v, want %d entries", picks, len(want))
	}
	for i, w := range want {
		if picks[i].PlayerID != w.player || picks[i].IsOptimistic != w.optimistic {
			t.Fatalf("entry %d = %+v, want player %d optimistic=%v", i, picks[i], w.player, w.optimistic)
		}
	}
}

func TestTurnChangeAndDraftEnded(t *testing.T) {
	v, notes := newTestView(t, clockwork.NewFakeClock())

	if err := v.ApplyEvent(wrap(t, "D1", events.TurnChange{CurrentUserID: "bob", CurrentPick: 2})); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if n := notes.last(); n.Level != LevelSuccess || n.Title != "Your turn" {
		t.Fatalf("expected own-turn notification, got %+v", n)
	}
	if st, _ := v.State(); st.CurrentPick != 2 || st.CurrentUserID() != "bob" {
		t.Fatalf("unexpected state %+v", st)
	}

	if err := v.ApplyEvent(wrap(t, "D1", events.DraftEnded{Message: "The draft is complete"})); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if n := notes.last(); n.Message != "The draft is complete" || n.DivisionID != "D1" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if st, _ := v.State(); st.IsActive {
		t.Fatalf("draft still active after draft_ended")
	}
}

func TestApplyEventIgnoresOtherDivisions(t *testing.T) {
	v, notes := newTestView(t, clockwork.NewFakeClock())
	if err := v.ApplyEvent(wrap(t, "D2", events.PickMade{UserID: "carol", PlayerID: 42, CurrentPick: 1})); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if len(v.Picks()) != 0 || len(notes.notes) != 0 {
		t.Fatalf("event for another division changed the view")
	}

	bad := events.Envelope{DivisionID: "D1", Type: "pick_started", Data: []byte(`{}`)}
	if err := v.ApplyEvent(bad); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestRunSweepsPeriodically(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v, _ := newTestView(t, clock)
	v.AddOptimisticPick(models.DraftPick{PickNumber: 1, UserID: "alice", PlayerID: 3})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx, time.Second)
		close(done)
	}()
	clock.BlockUntil(1)
	clock.Advance(DefaultStaleness)

	deadline := time.Now().Add(2 * time.Second)
	for len(v.Picks()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Run did not sweep the stale pick")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
