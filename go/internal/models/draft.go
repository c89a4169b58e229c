package models

import (
	"encoding/json"
	"time"
)

// DraftState is the durable progress record of one division's draft.
// The user on the clock is derived from TurnOrder and CurrentPick and is never stored.
type DraftState struct {
	DivisionID  string    `json:"divisionId"`
	CurrentPick int       `json:"currentPick"` // 1-based
	IsActive    bool      `json:"isActive"`
	TurnOrder   []string  `json:"turnOrder"`
	RoundsTotal int       `json:"roundsTotal"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TotalPicks is the number of picks the draft runs for.
func (s DraftState) TotalPicks() int {
	return len(s.TurnOrder) * s.RoundsTotal
}

// Exhausted reports whether every pick slot has been consumed.
func (s DraftState) Exhausted() bool {
	return s.CurrentPick > s.TotalPicks()
}

// CurrentUserID returns the participant on the clock, or "" once the draft is exhausted.
func (s DraftState) CurrentUserID() string {
	return UserForPick(s.TurnOrder, s.CurrentPick, s.RoundsTotal)
}

// Advance returns the state after the current pick has been consumed.
func (s DraftState) Advance(now time.Time) DraftState {
	next := s
	next.TurnOrder = append([]string(nil), s.TurnOrder...)
	next.CurrentPick = s.CurrentPick + 1
	next.UpdatedAt = now
	if next.Exhausted() {
		next.IsActive = false
	}
	return next
}

// UserForPick applies the rotation turnOrder[(pick-1) mod len(turnOrder)].
func UserForPick(turnOrder []string, pick, roundsTotal int) string {
	n := len(turnOrder)
	if n == 0 || pick < 1 || pick > n*roundsTotal {
		return ""
	}
	return turnOrder[(pick-1)%n]
}

type draftStateJSON DraftState

// MarshalJSON adds the derived currentUserId to the wire form.
func (s DraftState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		draftStateJSON
		CurrentUserID string `json:"currentUserId"`
	}{
		draftStateJSON: draftStateJSON(s),
		CurrentUserID:  s.CurrentUserID(),
	})
}

// UnmarshalJSON ignores currentUserId; it is always recomputed.
func (s *DraftState) UnmarshalJSON(data []byte) error {
	var raw draftStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DraftState(raw)
	return nil
}
