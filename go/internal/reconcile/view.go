// Package reconcile keeps a participant's working view of a draft: the
// confirmed picks from the last load merged with picks submitted locally but
// not yet confirmed.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

const (
	DefaultGrace         = 3 * time.Second
	DefaultStaleness     = 30 * time.Second
	DefaultSweepInterval = time.Second
)

// Pick is an entry of the working view.
type Pick struct {
	models.DraftPick
	IsOptimistic bool `json:"isOptimistic"`
}

type optimisticPick struct {
	pick       models.DraftPick
	addedAt    time.Time
	rejectedAt time.Time
}

type Option func(*View)

func WithClock(clock clockwork.Clock) Option {
	return func(v *View) { v.clock = clock }
}

func WithNotifier(n Notifier) Option {
	return func(v *View) { v.notifier = n }
}

// WithGrace sets how long a rejected pick stays visible.
func WithGrace(d time.Duration) Option {
	return func(v *View) { v.grace = d }
}

// WithStaleness sets how long an unanswered optimistic pick stays visible.
func WithStaleness(d time.Duration) Option {
	return func(v *View) { v.staleness = d }
}

// WithUser names the participant using the view so turn notifications can address them.
func WithUser(userID string) Option {
	return func(v *View) { v.userID = userID }
}

// View is safe for concurrent use.
type View struct {
	divisionID string
	userID     string
	clock      clockwork.Clock
	notifier   Notifier
	grace      time.Duration
	staleness  time.Duration

	mu         sync.Mutex
	state      models.DraftState
	loaded     bool
	confirmed  map[int]models.DraftPick // by playerId
	optimistic map[int]*optimisticPick  // by playerId
}

func NewView(divisionID string, opts ...Option) *View {
	v := &View{
		divisionID: divisionID,
		clock:      clockwork.NewRealClock(),
		notifier:   discard{},
		grace:      DefaultGrace,
		staleness:  DefaultStaleness,
		confirmed:  make(map[int]models.DraftPick),
		optimistic: make(map[int]*optimisticPick),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.notifier == nil {
		v.notifier = discard{}
	}
	return v
}

// Load replaces the confirmed picks with a fresh server snapshot. Optimistic
// picks the snapshot already contains are dropped; the rest are kept.
func (v *View) Load(state models.DraftState, picks []models.DraftPick) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state = state
	v.loaded = true
	v.confirmed = make(map[int]models.DraftPick, len(picks))
	for _, p := range picks {
		if p.DivisionID != "" && p.DivisionID != v.divisionID {
			continue
		}
		v.confirmed[p.PlayerID] = p
		delete(v.optimistic, p.PlayerID)
	}
}

// AddOptimisticPick shows a just-submitted pick before the server answers.
// The pick's timestamp is set to the local clock.
func (v *View) AddOptimisticPick(p models.DraftPick) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.confirmed[p.PlayerID]; ok {
		return
	}
	now := v.clock.Now()
	p.DivisionID = v.divisionID
	p.Timestamp = now
	v.optimistic[p.PlayerID] = &optimisticPick{pick: p, addedAt: now}
}

// Confirm records a pick the server accepted.
func (v *View) Confirm(p models.DraftPick) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.confirmLocked(p)
}

func (v *View) confirmLocked(p models.DraftPick) {
	v.confirmed[p.PlayerID] = p
	delete(v.optimistic, p.PlayerID)
	if next := p.PickNumber + 1; next > v.state.CurrentPick {
		v.state.CurrentPick = next
	}
}

// Reject marks an optimistic pick as refused. It stays visible for the grace
// window so a late confirmation does not flicker, then Sweep drops it.
func (v *View) Reject(playerID int, reason string) {
	v.mu.Lock()
	if op, ok := v.optimistic[playerID]; ok && op.rejectedAt.IsZero() {
		op.rejectedAt = v.clock.Now()
	}
	v.mu.Unlock()

	v.notifier.Notify(Notification{
		DivisionID: v.divisionID,
		Level:      LevelError,
		Title:      "Pick rejected",
		Message:    reason,
	})
}

// ApplyEvent folds a stream event into the view. Events for other divisions are ignored.
func (v *View) ApplyEvent(env events.Envelope) error {
	if env.DivisionID != v.divisionID {
		return nil
	}
	ev, err := env.Decode()
	if err != nil {
		return err
	}

	var n Notification
	v.mu.Lock()
	switch e := ev.(type) {
	case events.PickMade:
		v.confirmLocked(models.DraftPick{
			DivisionID: v.divisionID,
			PickNumber: e.CurrentPick,
			UserID:     e.UserID,
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			Timestamp:  env.Timestamp,
		})
		n = Notification{Level: LevelInfo, Title: "Pick made", Message: fmt.Sprintf("%s picked %s", displayName(e.UserName, e.UserID), e.PlayerName)}
	case events.TurnChange:
		v.state.CurrentPick = e.CurrentPick
		v.state.IsActive = true
		n = Notification{Level: LevelInfo, Title: "Turn change", Message: fmt.Sprintf("%s is on the clock", e.CurrentUserID)}
		if v.userID != "" && e.CurrentUserID == v.userID {
			n = Notification{Level: LevelSuccess, Title: "Your turn", Message: "It's your turn to pick"}
		}
	case events.DraftEnded:
		v.state.IsActive = false
		n = Notification{Level: LevelSuccess, Title: "Draft complete", Message: e.Message}
	default:
		v.mu.Unlock()
		return fmt.Errorf("%w: %T", events.ErrUnknownType, ev)
	}
	v.mu.Unlock()

	n.DivisionID = v.divisionID
	v.notifier.Notify(n)
	return nil
}

// Sweep drops rejected picks past the grace window and optimistic picks past
// the staleness threshold. It returns the number of picks dropped.
func (v *View) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock.Now()
	dropped := 0
	for id, op := range v.optimistic {
		rejectedExpired := !op.rejectedAt.IsZero() && now.Sub(op.rejectedAt) >= v.grace
		if rejectedExpired || now.Sub(op.addedAt) >= v.staleness {
			delete(v.optimistic, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (v *View) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := v.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			v.Sweep()
		}
	}
}

// Picks returns the working view sorted by pick number. Each player appears at
// most once; a confirmed pick always wins over an optimistic one.
func (v *View) Picks() []Pick {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Pick, 0, len(v.confirmed)+len(v.optimistic))
	for _, p := range v.confirmed {
		out = append(out, Pick{DraftPick: p})
	}
	for id, op := range v.optimistic {
		if _, ok := v.confirmed[id]; ok {
			continue
		}
		out = append(out, Pick{DraftPick: op.pick, IsOptimistic: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PickNumber != out[j].PickNumber {
			return out[i].PickNumber < out[j].PickNumber
		}
		if out[i].IsOptimistic != out[j].IsOptimistic {
			return !out[i].IsOptimistic
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// State returns the last known draft state and whether a snapshot was ever loaded.
func (v *View) State() (models.DraftState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.state
	st.TurnOrder = append([]string(nil), v.state.TurnOrder...)
	return st, v.loaded
}

func (v *View) DivisionID() string {
	return v.divisionID
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
