package clients

import (
	"github.com/mcdev12/fpldraft/go/internal/models"
)

// ExternalSourceConfig holds configuration for a player data provider
type ExternalSourceConfig struct {
	Source      models.Source `json:"source"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Priority    int           `json:"priority"` // Higher priority sources override lower ones
	Active      bool          `json:"active"`
}

// GetExternalSources returns all known player data sources
func GetExternalSources() map[models.Source]ExternalSourceConfig {
	return map[models.Source]ExternalSourceConfig{
		models.SourceEnhanced: {
			Source:      models.SourceEnhanced,
			Name:        "Enhanced",
			Description: "FPL records merged with spreadsheet overrides",
			Priority:    100,
			Active:      true,
		},
		models.SourceSheets: {
			Source:      models.SourceSheets,
			Name:        "Spreadsheet",
			Description: "League spreadsheet of record",
			Priority:    90,
			Active:      true,
		},
		models.SourceFPL: {
			Source:      models.SourceFPL,
			Name:        "Fantasy Premier League",
			Description: "Public FPL bootstrap-static API",
			Priority:    80,
			Active:      true,
		},
	}
}

// ValidateExternalSource checks if the source is valid
func ValidateExternalSource(source models.Source) bool {
	_, exists := GetExternalSources()[source]
	return exists
}

// SourcePriority returns the merge priority of a source, 0 when unknown or inactive
func SourcePriority(source models.Source) int {
	cfg, ok := GetExternalSources()[source]
	if !ok || !cfg.Active {
		return 0
	}
	return cfg.Priority
}
