package board

import (
	"encoding/json"
	"testing"
)

func TestStatus_Stage(t *testing.T) {
	tests := []struct {
		status Status
		stage  Stage
		known  bool
	}{
		{StatusQueued, StageQueued, true},
		{StatusInProgress, StageInProgress, true},
		{StatusDone, StageDone, true},
		{Status("verified"), StageUnrecognized, false},
		{Status(""), StageUnrecognized, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Stage(); got != tt.stage {
				t.Errorf("Stage() = %v, want %v", got, tt.stage)
			}
			if got := tt.status.IsKnown(); got != tt.known {
				t.Errorf("IsKnown() = %v, want %v", got, tt.known)
			}
		})
	}
}

func TestStatus_UnmarshalKeepsUnknownValue(t *testing.T) {
	var s Status
	if err := json.Unmarshal([]byte(`"archived"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != "archived" {
		t.Errorf("got %q", s)
	}
	if err := json.Unmarshal([]byte(`12`), &s); err == nil {
		t.Error("expected error for non-string status")
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("in_progress"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("expected error for pending")
	}
}

func TestDisplayNames(t *testing.T) {
	if got := StatusInProgress.DisplayName(); got != "In Progress" {
		t.Errorf("got %q", got)
	}
	if got := RouteAI.DisplayName(); got != "AI Agent" {
		t.Errorf("got %q", got)
	}
	if got := StageUnrecognized.Title(); got != "Unrecognized" {
		t.Errorf("got %q", got)
	}
	if Route("robot").IsKnown() {
		t.Error("robot is not a known route")
	}
}
