package pick

import (
	"github.com/mcdev12/fpldraft/go/internal/models"
)

// Accept is the accepting decision.
func Accept() Decision { return Decision{Accepted: true} }

// Reject builds a rejecting decision.
func Reject(reason RejectReason) Decision { return Decision{Reason: reason} }

// Validate decides whether a proposed pick may be made against the given state.
// Checks run in order and stop at the first failure. It has no side effects.
func Validate(proposed Proposed, state models.DraftState, drafted map[int]struct{}, rules Ruleset) Decision {
	if !state.IsActive {
		return Reject(ReasonDraftNotActive)
	}
	if proposed.UserID == "" || proposed.UserID != state.CurrentUserID() {
		return Reject(ReasonNotYourTurn)
	}
	if _, taken := drafted[proposed.PlayerID]; taken {
		return Reject(ReasonPlayerAlreadyDrafted)
	}
	if rules == nil || !rules.Eligible(proposed.PlayerID) {
		return Reject(ReasonPlayerIneligible)
	}
	return Accept()
}
