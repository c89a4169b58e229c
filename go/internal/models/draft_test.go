package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCurrentUserIDRotation(t *testing.T) {
	state := DraftState{DivisionID: "D1", CurrentPick: 1, IsActive: true, TurnOrder: []string{"A", "B", "C"}, RoundsTotal: 3}
	want := []string{"A", "B", "C", "A", "B", "C", "A", "B", "C"}

	for i, w := range want {
		if got := state.CurrentUserID(); got != w {
			t.Fatalf("pick %d: current user = %q, want %q", i+1, got, w)
		}
		state = state.Advance(time.Now())
	}
	if state.IsActive {
		t.Fatalf("expected draft to be inactive after %d picks", len(want))
	}
	if got := state.CurrentUserID(); got != "" {
		t.Fatalf("exhausted draft current user = %q, want empty", got)
	}
}

func TestUserForPick(t *testing.T) {
	order := []string{"alice", "bob"}
	tests := []struct {
		name   string
		order  []string
		pick   int
		rounds int
		want   string
	}{
		{"first pick", order, 1, 2, "alice"},
		{"second pick", order, 2, 2, "bob"},
		{"wraps", order, 3, 2, "alice"},
		{"past the end", order, 5, 2, ""},
		{"zero pick", order, 0, 2, ""},
		{"empty order", nil, 1, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserForPick(tt.order, tt.pick, tt.rounds); got != tt.want {
				t.Fatalf("UserForPick(%v, %d, %d) = %q, want %q", tt.order, tt.pick, tt.rounds, got, tt.want)
			}
		})
	}
}

func TestAdvanceDoesNotShareTurnOrder(t *testing.T) {
	state := DraftState{CurrentPick: 1, IsActive: true, TurnOrder: []string{"A", "B"}, RoundsTotal: 1}
	next := state.Advance(time.Now())
	next.TurnOrder[0] = "Z"
	if state.TurnOrder[0] != "A" {
		t.Fatalf("Advance mutated the original turn order")
	}
}

func TestDraftStateJSONIncludesDerivedUser(t *testing.T) {
	state := DraftState{DivisionID: "D1", CurrentPick: 2, IsActive: true, TurnOrder: []string{"alice", "bob"}, RoundsTotal: 2}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"currentUserId":"bob"`) {
		t.Fatalf("wire form missing derived user: %s", data)
	}

	var decoded DraftState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.CurrentPick != 2 || decoded.CurrentUserID() != "bob" {
		t.Fatalf("decoded state = %+v", decoded)
	}
}
