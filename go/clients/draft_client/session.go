package draft_client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
	"github.com/mcdev12/fpldraft/go/internal/models"
	"github.com/mcdev12/fpldraft/go/internal/reconcile"
)

const (
	DefaultPollInterval  = 5 * time.Second
	requestFailedMessage = "Request failed, please try again"
)

type SessionConfig struct {
	Stream        StreamConfig
	PollInterval  time.Duration
	SweepInterval time.Duration
	// OnChange runs after the view changes.
	OnChange func(*reconcile.View)
}

// Session keeps a reconcile.View current for one division: it reloads the
// draft on every stream (re)connect, applies streamed events, and polls while
// the stream is down.
type Session struct {
	client *DraftClient
	view   *reconcile.View
	stream *Stream
	clock  clockwork.Clock
	config SessionConfig

	streaming atomic.Bool
}

func NewSession(client *DraftClient, view *reconcile.View, config SessionConfig, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Session{
		client: client,
		view:   view,
		stream: NewStream(client, view.DivisionID(), config.Stream, clock),
		clock:  clock,
		config: config,
	}
}

func (s *Session) View() *reconcile.View {
	return s.view
}

// Run loads the draft and follows it until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("division_id", s.view.DivisionID()).Msg("initial draft load failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.stream.Run(gctx, s) })
	g.Go(func() error {
		s.view.Run(gctx, s.config.SweepInterval)
		return nil
	})
	g.Go(func() error { return s.pollWhileDisconnected(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Refresh replaces the view's confirmed picks with the server's.
func (s *Session) Refresh(ctx context.Context) error {
	data, err := s.client.LoadDraftData(ctx, s.view.DivisionID())
	if err != nil {
		return err
	}
	s.view.Load(data.DraftState, data.DraftPicks)
	s.changed()
	return nil
}

// SubmitPick shows the pick optimistically and reconciles the view with the result.
func (s *Session) SubmitPick(ctx context.Context, playerID int, playerName string) error {
	state, _ := s.view.State()
	s.view.AddOptimisticPick(models.DraftPick{
		PickNumber: state.CurrentPick,
		UserID:     s.client.UserID(),
		PlayerID:   playerID,
		PlayerName: playerName,
	})
	s.changed()

	res, err := s.client.SubmitPick(ctx, s.view.DivisionID(), playerID)
	if err != nil {
		s.view.Reject(playerID, requestFailedMessage)
		s.changed()
		return err
	}
	if res.Accepted && res.Pick != nil {
		s.view.Confirm(*res.Pick)
	} else {
		s.view.Reject(playerID, res.Message)
	}
	s.changed()
	return nil
}

func (s *Session) OnConnect(ctx context.Context) {
	s.streaming.Store(true)
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("division_id", s.view.DivisionID()).Msg("failed to reload draft after connect")
	}
}

func (s *Session) OnEvent(env events.Envelope) {
	if err := s.view.ApplyEvent(env); err != nil {
		log.Warn().Err(err).Str("event_id", env.ID).Msg("failed to apply draft event")
		return
	}
	s.changed()
}

func (s *Session) OnDisconnect(err error) {
	s.streaming.Store(false)
}

func (s *Session) pollWhileDisconnected(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if s.streaming.Load() {
				continue
			}
			if err := s.poll(ctx); err != nil {
				log.Debug().Err(err).Str("division_id", s.view.DivisionID()).Msg("draft poll failed")
			}
		}
	}
}

func (s *Session) poll(ctx context.Context) error {
	known := 0
	for _, p := range s.view.Picks() {
		if !p.IsOptimistic {
			known++
		}
	}
	res, err := s.client.Poll(ctx, s.view.DivisionID(), known)
	if err != nil {
		return err
	}
	if !res.HasUpdates {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Session) changed() {
	if s.config.OnChange != nil {
		s.config.OnChange(s.view)
	}
}
