package player

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	fpl "github.com/mcdev12/fpldraft/go/clients/fpl_client"
)

// Source supplies catalog documents from one upstream.
type Source interface {
	Name() string
	Documents(ctx context.Context) ([]Document, error)
}

// BootstrapFetcher is what FPLSource needs from the FPL API client
type BootstrapFetcher interface {
	GetBootstrapStatic(ctx context.Context) (*fpl.BootstrapStatic, error)
}

// FPLSource reads the public FPL bootstrap-static feed.
type FPLSource struct {
	client BootstrapFetcher
}

// NewFPLSource creates a source backed by the FPL API
func NewFPLSource(client BootstrapFetcher) *FPLSource {
	return &FPLSource{client: client}
}

func (s *FPLSource) Name() string { return "fpl-api" }

func (s *FPLSource) Documents(ctx context.Context) ([]Document, error) {
	bs, err := s.client.GetBootstrapStatic(ctx)
	if err != nil {
		return nil, err
	}
	teams := bs.TeamShortNames()
	docs := make([]Document, 0, len(bs.Elements))
	for _, e := range bs.Elements {
		docs = append(docs, FromElement(e, teams))
	}
	return docs, nil
}

// FileSource reads a catalog file. Files ending in .json hold a JSON array of
// documents; anything else is YAML with a top-level documents key.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by a local catalog file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + filepath.Base(s.path) }

func (s *FileSource) Documents(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var list DocumentList
	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", s.path, err)
		}
		return list, nil
	}

	var file struct {
		Documents DocumentList `yaml:"documents"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", s.path, err)
	}
	return file.Documents, nil
}
