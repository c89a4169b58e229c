package pick

// RejectReason explains why a pick submission was refused.
type RejectReason string

const (
	ReasonDraftNotActive       RejectReason = "DraftNotActive"
	ReasonNotYourTurn          RejectReason = "NotYourTurn"
	ReasonPlayerAlreadyDrafted RejectReason = "PlayerAlreadyDrafted"
	ReasonPlayerIneligible     RejectReason = "PlayerIneligible"
	// ReasonTurnAlreadyTaken is produced by the coordinator when a concurrent pick won the slot.
	ReasonTurnAlreadyTaken RejectReason = "TurnAlreadyTaken"
)

// Message returns the user-displayable text for the reason.
func (r RejectReason) Message() string {
	switch r {
	case ReasonDraftNotActive:
		return "The draft is not active."
	case ReasonNotYourTurn:
		return "It is not your turn to pick."
	case ReasonPlayerAlreadyDrafted:
		return "That player has already been drafted."
	case ReasonPlayerIneligible:
		return "That player is not eligible in this division."
	case ReasonTurnAlreadyTaken:
		return "Another pick was made first. Refresh and try again."
	default:
		return "The pick was rejected."
	}
}

// Proposed is a pick a participant wants to make.
type Proposed struct {
	UserID   string `json:"userId"`
	PlayerID int    `json:"playerId"`
}

// Decision is the outcome of validation. Reason is empty when the pick is accepted.
type Decision struct {
	Accepted bool
	Reason   RejectReason
}

// Ruleset answers whether a player may be drafted under a division's rules.
type Ruleset interface {
	Eligible(playerID int) bool
}

// RulesetFunc adapts a function to Ruleset.
type RulesetFunc func(playerID int) bool

// Eligible calls f.
func (f RulesetFunc) Eligible(playerID int) bool { return f(playerID) }
