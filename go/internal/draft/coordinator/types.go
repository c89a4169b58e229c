package coordinator

import (
	"github.com/mcdev12/fpldraft/go/internal/draft/pick"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

// SubmitPickResult is the outcome of a pick submission. Exactly one of
// (Pick, State) or Reason is set.
type SubmitPickResult struct {
	Accepted bool               `json:"accepted"`
	Reason   pick.RejectReason  `json:"reason,omitempty"`
	Message  string             `json:"message,omitempty"`
	Pick     *models.DraftPick  `json:"pick,omitempty"`
	State    *models.DraftState `json:"nextState,omitempty"`
}

func accepted(p models.DraftPick, next models.DraftState) *SubmitPickResult {
	return &SubmitPickResult{Accepted: true, Pick: &p, State: &next}
}

func rejected(reason pick.RejectReason) *SubmitPickResult {
	return &SubmitPickResult{Reason: reason, Message: reason.Message()}
}

// DraftData is the full snapshot a client loads on (re)connect.
type DraftData struct {
	DraftState       models.DraftState  `json:"draftState"`
	DraftPicks       []models.DraftPick `json:"draftPicks"`
	AvailablePlayers []models.Player    `json:"availablePlayers"`
}

// PollResult is the lightweight answer to a poll. Picks holds only the
// picks after the caller's last known count.
type PollResult struct {
	HasUpdates    bool               `json:"hasUpdates"`
	PickCount     int                `json:"pickCount"`
	CurrentPick   int                `json:"currentPick"`
	CurrentUserID string             `json:"currentUserId"`
	IsActive      bool               `json:"isActive"`
	Picks         []models.DraftPick `json:"picks,omitempty"`
}
