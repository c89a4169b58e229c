package fpl_client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/fpldraft/go/clients"
)

func TestGetBootstrapStatic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != BootstrapStaticEndpoint {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get(UserAgentHeader) != UserAgent {
			t.Errorf("missing user agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"elements": [{"id": 7, "web_name": "Saka", "element_type": 3, "team": 1}],
			"teams": [{"id": 1, "name": "Arsenal", "short_name": "ARS"}]
		}`))
	}))
	defer srv.Close()

	c := NewFPLClient(srv.URL)
	got, err := c.GetBootstrapStatic(context.Background())
	if err != nil {
		t.Fatalf("GetBootstrapStatic: %v", err)
	}
	if len(got.Elements) != 1 || got.Elements[0].WebName != "Saka" {
		t.Fatalf("elements = %+v", got.Elements)
	}
	if got.TeamShortNames()[1] != "ARS" {
		t.Fatalf("team names = %v", got.TeamShortNames())
	}
}

func TestGetBootstrapStaticAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "game is being updated", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFPLClient(srv.URL).GetBootstrapStatic(context.Background())
	var apiErr *clients.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want APIError 503", err)
	}
}
