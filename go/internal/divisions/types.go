package divisions

import (
	"github.com/mcdev12/fpldraft/go/internal/models"
	"github.com/mcdev12/fpldraft/go/internal/player"
)

// Division is one draft group within the league file.
type Division struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	RoundsTotal int          `yaml:"rounds" json:"roundsTotal"`
	TurnOrder   []string     `yaml:"turn_order" json:"turnOrder"`
	Rules       player.Rules `yaml:"rules" json:"rules"`
	// Start makes Initialize open the draft as active.
	Start bool `yaml:"start" json:"start"`
}

// League is the on-disk league file.
type League struct {
	Name      string        `yaml:"name"`
	Users     []models.User `yaml:"users"`
	Divisions []Division    `yaml:"divisions"`
}
