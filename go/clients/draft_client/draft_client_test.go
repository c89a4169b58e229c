package draft_client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/fpldraft/go/internal/draft/pick"
)

func TestSubmitPickDecodesRejections(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantReason pick.RejectReason
		accepted   bool
	}{
		{"accepted", http.StatusOK, `{"accepted":true,"pick":{"divisionId":"D1","pickNumber":1,"userId":"alice","playerId":7}}`, false, "", true},
		{"validation rejection", http.StatusUnprocessableEntity, `{"accepted":false,"reason":"NotYourTurn","message":"It's not your turn"}`, false, pick.ReasonNotYourTurn, false},
		{"lost race", http.StatusConflict, `{"accepted":false,"reason":"TurnAlreadyTaken","message":"Another pick landed first"}`, false, pick.ReasonTurnAlreadyTaken, false},
		{"server fault", http.StatusInternalServerError, `{"error":"Something went wrong, please try again"}`, true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/divisions/D1/picks" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get(UserIDHeader); got != "alice" {
					t.Errorf("%s = %q, want alice", UserIDHeader, got)
				}
				body, _ := io.ReadAll(r.Body)
				var req map[string]int
				if err := json.Unmarshal(body, &req); err != nil || req["playerId"] != 7 {
					t.Errorf("unexpected body %s", body)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			res, err := NewDraftClient(srv.URL, "alice").SubmitPick(context.Background(), "D1", 7)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("SubmitPick: %v", err)
			}
			if res.Accepted != tt.accepted || res.Reason != tt.wantReason {
				t.Fatalf("result = %+v", res)
			}
		})
	}
}

func TestPollAndLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/divisions/D1/poll":
			if got := r.URL.Query().Get("since"); got != "3" {
				t.Errorf("since = %q, want 3", got)
			}
			io.WriteString(w, `{"hasUpdates":true,"pickCount":4,"currentPick":5,"currentUserId":"alice","isActive":true}`)
		case "/api/divisions/D1/draft":
			io.WriteString(w, `{"draftState":{"divisionId":"D1","currentPick":1,"isActive":true,"turnOrder":["alice","bob"],"roundsTotal":2},"draftPicks":[],"availablePlayers":[{"id":7,"name":"Saka"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	client := NewDraftClient(srv.URL, "alice")

	poll, err := client.Poll(context.Background(), "D1", 3)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !poll.HasUpdates || poll.PickCount != 4 || poll.CurrentUserID != "alice" {
		t.Fatalf("unexpected poll %+v", poll)
	}

	data, err := client.LoadDraftData(context.Background(), "D1")
	if err != nil {
		t.Fatalf("LoadDraftData: %v", err)
	}
	if data.DraftState.CurrentUserID() != "alice" || len(data.AvailablePlayers) != 1 {
		t.Fatalf("unexpected draft data %+v", data)
	}

	if _, err := client.LoadDraftData(context.Background(), "missing"); !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
