package models

import (
	"time"
)

// DraftPick is a confirmed, immutable selection within a division.
type DraftPick struct {
	DivisionID string    `json:"divisionId"`
	PickNumber int       `json:"pickNumber"` // dense, 1-based within the division
	UserID     string    `json:"userId"`
	PlayerID   int       `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Timestamp  time.Time `json:"timestamp"`
}

// Round returns the 1-based round of the pick for a turn order of the given size.
func (p DraftPick) Round(participants int) int {
	if participants <= 0 {
		return 0
	}
	return (p.PickNumber-1)/participants + 1
}

// DraftedPlayerIDs indexes the player ids already taken by picks.
func DraftedPlayerIDs(picks []DraftPick) map[int]struct{} {
	drafted := make(map[int]struct{}, len(picks))
	for _, p := range picks {
		drafted[p.PlayerID] = struct{}{}
	}
	return drafted
}
