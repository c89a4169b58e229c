package player

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	fpl "github.com/mcdev12/fpldraft/go/clients/fpl_client"
	"github.com/mcdev12/fpldraft/go/internal/models"
)

// Document is a catalog record tagged by its source. The set of variants is
// closed: FPLDocument, SheetsDocument and EnhancedDocument.
type Document interface {
	Source() models.Source
	document()
}

// FPLDocument mirrors an element of the FPL bootstrap-static feed.
type FPLDocument struct {
	ID            int    `json:"id" yaml:"id"`
	WebName       string `json:"web_name" yaml:"web_name"`
	ElementType   int    `json:"element_type" yaml:"element_type"`
	TeamShortName string `json:"team_short_name" yaml:"team_short_name"`
}

// SheetsDocument is a row exported from the league spreadsheet.
type SheetsDocument struct {
	PlayerID int    `json:"player_id" yaml:"player_id"`
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position" yaml:"position"`
	Club     string `json:"club" yaml:"club"`
}

// EnhancedDocument is an FPL record merged with spreadsheet overrides.
type EnhancedDocument struct {
	ID          int             `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Position    models.Position `json:"position" yaml:"position"`
	Team        string          `json:"team" yaml:"team"`
	TotalPoints int             `json:"total_points" yaml:"total_points"`
}

func (FPLDocument) Source() models.Source      { return models.SourceFPL }
func (SheetsDocument) Source() models.Source   { return models.SourceSheets }
func (EnhancedDocument) Source() models.Source { return models.SourceEnhanced }

func (FPLDocument) document()      {}
func (SheetsDocument) document()   {}
func (EnhancedDocument) document() {}

// ToPlayer converts any document variant into a catalog player.
func ToPlayer(doc Document) (models.Player, error) {
	switch d := doc.(type) {
	case FPLDocument:
		pos, err := positionFromElementType(d.ElementType)
		if err != nil {
			return models.Player{}, fmt.Errorf("fpl document %d: %w", d.ID, err)
		}
		return models.Player{ID: d.ID, Name: d.WebName, Position: pos, Team: d.TeamShortName, Source: models.SourceFPL}, nil
	case SheetsDocument:
		pos, err := ParsePosition(d.Position)
		if err != nil {
			return models.Player{}, fmt.Errorf("sheets document %d: %w", d.PlayerID, err)
		}
		return models.Player{ID: d.PlayerID, Name: d.Name, Position: pos, Team: strings.ToUpper(d.Club), Source: models.SourceSheets}, nil
	case EnhancedDocument:
		pos, err := ParsePosition(string(d.Position))
		if err != nil {
			return models.Player{}, fmt.Errorf("enhanced document %d: %w", d.ID, err)
		}
		return models.Player{ID: d.ID, Name: d.Name, Position: pos, Team: d.Team, Source: models.SourceEnhanced}, nil
	default:
		return models.Player{}, fmt.Errorf("%w: %T", ErrUnknownSource, doc)
	}
}

// FromElement builds an FPL document from a bootstrap-static element.
func FromElement(e fpl.Element, teams map[int]string) FPLDocument {
	return FPLDocument{ID: e.ID, WebName: e.WebName, ElementType: e.ElementType, TeamShortName: teams[e.Team]}
}

func positionFromElementType(t int) (models.Position, error) {
	switch t {
	case fpl.ElementTypeGoalkeeper:
		return models.PositionGoalkeeper, nil
	case fpl.ElementTypeDefender:
		return models.PositionDefender, nil
	case fpl.ElementTypeMidfielder:
		return models.PositionMidfielder, nil
	case fpl.ElementTypeForward:
		return models.PositionForward, nil
	default:
		return "", fmt.Errorf("unknown element type %d", t)
	}
}

// ParsePosition accepts the spellings used by the spreadsheet and the FPL feed.
func ParsePosition(s string) (models.Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GK", "GKP", "GOALKEEPER":
		return models.PositionGoalkeeper, nil
	case "D", "DEF", "DEFENDER":
		return models.PositionDefender, nil
	case "M", "MID", "MIDFIELDER":
		return models.PositionMidfielder, nil
	case "F", "FW", "FWD", "FORWARD":
		return models.PositionForward, nil
	default:
		return "", fmt.Errorf("unknown position %q", s)
	}
}

type sourceHeader struct {
	Source models.Source `json:"source" yaml:"source"`
}

// DecodeDocument decodes a JSON document using its source tag.
func DecodeDocument(data []byte) (Document, error) {
	var head sourceHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read document source: %w", err)
	}
	switch head.Source {
	case models.SourceFPL:
		var d FPLDocument
		err := json.Unmarshal(data, &d)
		return d, err
	case models.SourceSheets:
		var d SheetsDocument
		err := json.Unmarshal(data, &d)
		return d, err
	case models.SourceEnhanced:
		var d EnhancedDocument
		err := json.Unmarshal(data, &d)
		return d, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, head.Source)
	}
}

func decodeYAMLDocument(node *yaml.Node) (Document, error) {
	var head sourceHeader
	if err := node.Decode(&head); err != nil {
		return nil, fmt.Errorf("failed to read document source: %w", err)
	}
	switch head.Source {
	case models.SourceFPL:
		var d FPLDocument
		err := node.Decode(&d)
		return d, err
	case models.SourceSheets:
		var d SheetsDocument
		err := node.Decode(&d)
		return d, err
	case models.SourceEnhanced:
		var d EnhancedDocument
		err := node.Decode(&d)
		return d, err
	default:
		return nil, fmt.Errorf("%w: %q (line %d)", ErrUnknownSource, head.Source, node.Line)
	}
}

// DocumentList decodes a heterogeneous list of documents from JSON or YAML.
type DocumentList []Document

func (l *DocumentList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(DocumentList, 0, len(raws))
	for i, raw := range raws {
		doc, err := DecodeDocument(raw)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, doc)
	}
	*l = out
	return nil
}

func (l *DocumentList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("documents must be a list (line %d)", node.Line)
	}
	out := make(DocumentList, 0, len(node.Content))
	for i, item := range node.Content {
		doc, err := decodeYAMLDocument(item)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, doc)
	}
	*l = out
	return nil
}
