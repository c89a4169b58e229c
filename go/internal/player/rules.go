package player

import (
	"slices"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

// Rules restrict which catalog players a division may draft. The zero value
// allows every player in the catalog.
type Rules struct {
	Positions       []models.Position `yaml:"positions" json:"positions,omitempty"`
	ExcludedTeams   []string          `yaml:"excluded_teams" json:"excludedTeams,omitempty"`
	ExcludedPlayers []int             `yaml:"excluded_players" json:"excludedPlayers,omitempty"`
}

// Allows reports whether the player passes the division rules.
func (r Rules) Allows(p models.Player) bool {
	if len(r.Positions) > 0 && !slices.Contains(r.Positions, p.Position) {
		return false
	}
	if slices.Contains(r.ExcludedTeams, p.Team) {
		return false
	}
	return !slices.Contains(r.ExcludedPlayers, p.ID)
}

// Eligibility answers eligibility questions against a catalog snapshot.
type Eligibility struct {
	players map[int]models.Player
	rules   Rules
}

// Eligible reports whether the player exists in the catalog and passes the rules.
func (e Eligibility) Eligible(playerID int) bool {
	p, ok := e.players[playerID]
	return ok && e.rules.Allows(p)
}
