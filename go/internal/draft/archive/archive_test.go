package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

func finishedDraft() (models.DraftState, []models.DraftPick) {
	at := time.Date(2025, 8, 1, 18, 0, 0, 0, time.UTC)
	state := models.DraftState{DivisionID: "D1", CurrentPick: 3, TurnOrder: []string{"alice", "bob"}, RoundsTotal: 1, UpdatedAt: at}
	picks := []models.DraftPick{
		{DivisionID: "D1", PickNumber: 1, UserID: "alice", PlayerID: 7, PlayerName: "Saka", Timestamp: at},
		{DivisionID: "D1", PickNumber: 2, UserID: "bob", PlayerID: 11, PlayerName: "Salah", Timestamp: at},
	}
	return state, picks
}

func TestArchiveToFile(t *testing.T) {
	root := t.TempDir()
	writer, err := NewFileWriter(root)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC))
	archiver := NewArchiver(writer, "season-2025", clock)

	state, picks := finishedDraft()
	if err := archiver.Archive(context.Background(), state, picks); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "season-2025", "drafts", "D1.json"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	if rec.DivisionID != "D1" || len(rec.Picks) != 2 || rec.Picks[1].PlayerName != "Salah" {
		t.Fatalf("unexpected archive %+v", rec)
	}
	if !rec.ArchivedAt.Equal(clock.Now()) {
		t.Fatalf("archivedAt = %s, want %s", rec.ArchivedAt, clock.Now())
	}

	entries, err := os.ReadDir(filepath.Join(root, "season-2025", "drafts"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestFileWriterRejectsEscapingKeys(t *testing.T) {
	writer, err := NewFileWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	for _, key := range []string{"../outside.json", "/etc/passwd", "a/../../b.json"} {
		if err := writer.Put(context.Background(), key, strings.NewReader("{}"), "application/json"); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"https://s3.eu-west-2.amazonaws.com", false, "https://s3.eu-west-2.amazonaws.com"},
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal", true, "https://minio.internal"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.endpoint, tt.ssl); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.endpoint, tt.ssl, got, tt.want)
		}
	}
}

func TestNewS3WriterValidates(t *testing.T) {
	if _, err := NewS3Writer(context.Background(), S3Config{Region: "eu-west-2"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
	if _, err := NewS3Writer(context.Background(), S3Config{Bucket: "drafts"}); err == nil {
		t.Fatalf("expected error without region")
	}
}
