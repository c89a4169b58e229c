// Package archive stores the final record of a finished draft.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

// BlobWriter stores one object under key.
type BlobWriter interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
}

// Record is the archived form of a finished draft.
type Record struct {
	DivisionID string             `json:"divisionId"`
	ArchivedAt time.Time          `json:"archivedAt"`
	State      models.DraftState  `json:"state"`
	Picks      []models.DraftPick `json:"picks"`
}

// Archiver serializes finished drafts and hands them to a BlobWriter.
type Archiver struct {
	writer BlobWriter
	prefix string
	clock  clockwork.Clock
}

func NewArchiver(writer BlobWriter, prefix string, clock clockwork.Clock) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{writer: writer, prefix: prefix, clock: clock}
}

// Key returns the object key a division's archive is written to. A division
// is archived once, so the key carries no timestamp and a rerun overwrites it.
func (a *Archiver) Key(divisionID string) string {
	return path.Join(a.prefix, "drafts", divisionID+".json")
}

func (a *Archiver) Archive(ctx context.Context, state models.DraftState, picks []models.DraftPick) error {
	rec := Record{
		DivisionID: state.DivisionID,
		ArchivedAt: a.clock.Now().UTC(),
		State:      state,
		Picks:      picks,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft archive: %w", err)
	}

	key := a.Key(state.DivisionID)
	if err := a.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("failed to write draft archive: %w", err)
	}
	log.Info().
		Str("division_id", state.DivisionID).
		Str("key", key).
		Int("picks", len(picks)).
		Msg("draft archived")
	return nil
}
