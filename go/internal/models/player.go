package models

// Position is the playing position of a footballer.
type Position string

const (
	PositionGoalkeeper Position = "GKP"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

// Source identifies where a catalog record came from.
type Source string

const (
	SourceFPL      Source = "fpl"
	SourceSheets   Source = "sheets"
	SourceEnhanced Source = "enhanced"
)

// Player is a draftable footballer from the player catalog.
type Player struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Team     string   `json:"team"`
	Source   Source   `json:"source"`
}
