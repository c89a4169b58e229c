package draft_client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcdev12/fpldraft/go/internal/draft/coordinator"
	"github.com/mcdev12/fpldraft/go/internal/draft/gateway"
	"github.com/mcdev12/fpldraft/go/internal/draft/repository"
	"github.com/mcdev12/fpldraft/go/internal/models"
	"github.com/mcdev12/fpldraft/go/internal/player"
	"github.com/mcdev12/fpldraft/go/internal/reconcile"
	"github.com/mcdev12/fpldraft/go/internal/users"
)

type staticSource []player.Document

func (s staticSource) Name() string { return "static" }

func (s staticSource) Documents(context.Context) ([]player.Document, error) {
	return s, nil
}

// newDraftServer runs the coordinator and the SSE gateway in one process, as
// the server binary does with local event delivery.
func newDraftServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemoryRepository()
	err := repo.CreateState(ctx, models.DraftState{
		DivisionID:  "D1",
		CurrentPick: 1,
		IsActive:    true,
		TurnOrder:   []string{"alice", "bob"},
		RoundsTotal: 2,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateState: %v", err)
	}

	catalog := player.NewApp(nil, nil, time.Minute, staticSource{
		player.EnhancedDocument{ID: 7, Name: "Saka", Position: models.PositionMidfielder, Team: "ARS"},
		player.EnhancedDocument{ID: 9, Name: "Haaland", Position: models.PositionForward, Team: "MCI"},
		player.EnhancedDocument{ID: 11, Name: "Salah", Position: models.PositionMidfielder, Team: "LIV"},
	})
	directory := users.NewApp(models.User{ID: "alice", Name: "Alice"}, models.User{ID: "bob", Name: "Bob"})

	gw, err := gateway.NewService(ctx, gateway.DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("gateway.NewService: %v", err)
	}
	coord := coordinator.New(repo, catalog, directory, coordinator.WithPublisher(gw.Hub()))

	mux := http.NewServeMux()
	coordinator.NewService(coord, nil).RegisterRoutes(mux)
	gw.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionReconcilesOwnAndRemotePicks(t *testing.T) {
	srv := newDraftServer(t)

	changed := make(chan struct{}, 64)
	view := reconcile.NewView("D1", reconcile.WithUser("alice"))
	session := NewSession(NewDraftClient(srv.URL, "alice"), view, SessionConfig{
		PollInterval: 50 * time.Millisecond,
		OnChange: func(*reconcile.View) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitFor(t, changed, func() bool {
		_, loaded := view.State()
		return loaded
	})

	if err := session.SubmitPick(ctx, 7, "Saka"); err != nil {
		t.Fatalf("SubmitPick: %v", err)
	}
	picks := view.Picks()
	if len(picks) != 1 || picks[0].PlayerID != 7 || picks[0].IsOptimistic {
		t.Fatalf("own pick not confirmed: %+v", picks)
	}

	// Bob picks from another client; alice's view learns about it from the stream.
	res, err := NewDraftClient(srv.URL, "bob").SubmitPick(ctx, "D1", 9)
	if err != nil || !res.Accepted {
		t.Fatalf("bob's pick: res=%+v err=%v", res, err)
	}
	waitFor(t, changed, func() bool {
		for _, p := range view.Picks() {
			if p.PlayerID == 9 && !p.IsOptimistic {
				return true
			}
		}
		return false
	})

	// Resubmitting a drafted player is rejected without duplicating the confirmed entry.
	if err := session.SubmitPick(ctx, 7, "Saka"); err != nil {
		t.Fatalf("SubmitPick: %v", err)
	}
	seen := 0
	for _, p := range view.Picks() {
		if p.PlayerID == 7 {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("player 7 appears %d times after a rejected resubmission", seen)
	}
}

func waitFor(t *testing.T, changed <-chan struct{}, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-changed:
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("condition not met before deadline")
		}
	}
}
