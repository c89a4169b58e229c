package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcdev12/fpldraft/go/internal/draft/coordinator"
)

const testLeague = `
name: Test League
users:
  - id: alice
    name: Alice
  - id: bob
    name: Bob
divisions:
  - id: D1
    name: Premier
    rounds: 1
    turn_order: [alice, bob]
    start: true
`

const testCatalog = `
documents:
  - source: enhanced
    id: 1
    name: Saka
    position: MID
    team: ARS
  - source: enhanced
    id: 2
    name: Haaland
    position: FWD
    team: MCI
`

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	t.Setenv("LEAGUE_FILE", write("league.yaml", testLeague))
	t.Setenv("CATALOG_SOURCES", "file")
	t.Setenv("CATALOG_FILE", write("players.yaml", testCatalog))
	t.Setenv("ARCHIVE_BACKEND", "file")
	archiveDir := filepath.Join(dir, "archive")
	t.Setenv("ARCHIVE_DIR", archiveDir)

	cfg, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	services, err := setupServices(context.Background(), cfg)
	if err != nil {
		t.Fatalf("setupServices: %v", err)
	}
	t.Cleanup(services.Close)

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(srv.Close)
	return srv, archiveDir
}

func submit(t *testing.T, baseURL, user string, playerID int) (int, coordinator.SubmitPickResult) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/divisions/D1/picks",
		strings.NewReader(fmt.Sprintf(`{"playerId":%d}`, playerID)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(coordinator.UserIDHeader, user)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var res coordinator.SubmitPickResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, res
}

func TestServerDraftsToCompletion(t *testing.T) {
	srv, archiveDir := newTestServer(t)

	if status, res := submit(t, srv.URL, "bob", 1); status != http.StatusUnprocessableEntity || res.Accepted {
		t.Fatalf("out of turn pick: status %d, %+v", status, res)
	}
	if status, res := submit(t, srv.URL, "alice", 1); status != http.StatusOK || !res.Accepted {
		t.Fatalf("alice pick: status %d, %+v", status, res)
	}
	if status, res := submit(t, srv.URL, "bob", 1); status != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate player: status %d, %+v", status, res)
	}
	if status, res := submit(t, srv.URL, "bob", 2); status != http.StatusOK || res.State == nil || res.State.IsActive {
		t.Fatalf("final pick: status %d, %+v", status, res)
	}

	resp, err := http.Get(srv.URL + "/api/divisions/D1/poll?since=0")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var poll coordinator.PollResult
	if err := json.NewDecoder(resp.Body).Decode(&poll); err != nil {
		t.Fatal(err)
	}
	if !poll.HasUpdates || poll.PickCount != 2 || poll.IsActive {
		t.Fatalf("poll = %+v", poll)
	}

	if _, err := os.Stat(filepath.Join(archiveDir, "drafts", "D1.json")); err != nil {
		t.Fatalf("finished draft was not archived: %v", err)
	}
}

func TestServerHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/health", "/metrics", "/ws/stats"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/divisions/nope/draft")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown division = %d, want 404", resp.StatusCode)
	}
}
