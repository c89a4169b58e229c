package events

// Event payload types shared between the coordinator, the gateway and the outbox.

// Type is the wire discriminator of a draft event.
type Type string

const (
	TypePickMade   Type = "pick_made"
	TypeTurnChange Type = "turn_change"
	TypeDraftEnded Type = "draft_ended"
)

// Event is the closed set of draft events. Only the payload types in this
// package implement it.
type Event interface {
	Type() Type
	sealed()
}

// PickMade announces a confirmed pick. CurrentPick is the pick number just consumed.
type PickMade struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	PlayerID    int    `json:"playerId"`
	PlayerName  string `json:"playerName"`
	CurrentPick int    `json:"currentPick"`
}

// TurnChange announces the participant now on the clock.
type TurnChange struct {
	CurrentUserID string `json:"currentUserId"`
	CurrentPick   int    `json:"currentPick"`
}

// DraftEnded announces that the final pick has been made.
type DraftEnded struct {
	Message string `json:"message"`
}

func (PickMade) Type() Type   { return TypePickMade }
func (TurnChange) Type() Type { return TypeTurnChange }
func (DraftEnded) Type() Type { return TypeDraftEnded }

func (PickMade) sealed()   {}
func (TurnChange) sealed() {}
func (DraftEnded) sealed() {}
