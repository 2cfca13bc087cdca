package devserver

import (
	"testing"

	"github.com/felixgeelhaar/flowboard/internal/domain/board"
)

func TestAnalyze(t *testing.T) {
	spec := `# Launch plan

- Draft the landing page copy
* Review pricing with legal
1. Generate onboarding emails
2) Approve the final budget

` + "```" + `
ignored fence
` + "```" + `
Write release notes
`
	tasks := Analyze(spec)

	want := []struct {
		title string
		route board.Route
	}{
		{"Draft the landing page copy", board.RouteAI},
		{"Review pricing with legal", board.RouteHuman},
		{"Generate onboarding emails", board.RouteAI},
		{"Approve the final budget", board.RouteHuman},
		{"ignored fence", board.RouteAI},
		{"Write release notes", board.RouteAI},
	}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d: %+v", len(tasks), len(want), tasks)
	}
	seen := make(map[string]bool)
	for i, w := range want {
		got := tasks[i]
		if got.Title != w.title || got.RoutedTo != w.route {
			t.Errorf("task %d = %q/%s, want %q/%s", i, got.Title, got.RoutedTo, w.title, w.route)
		}
		if got.Status != board.StatusQueued {
			t.Errorf("task %d status = %s", i, got.Status)
		}
		if got.ID == "" || seen[got.ID] {
			t.Errorf("task %d has empty or duplicate id %q", i, got.ID)
		}
		seen[got.ID] = true
	}
}

func TestAnalyze_Empty(t *testing.T) {
	if tasks := Analyze("\n   \n# only a heading\n"); len(tasks) != 0 {
		t.Errorf("expected no tasks, got %+v", tasks)
	}
}

func TestCleanLine(t *testing.T) {
	tests := map[string]string{
		"  - [ ] ship it ": "ship it",
		"- [x] done":       "done",
		"+ plus":           "plus",
		"10. ten":          "ten",
		"v1.2 release":     "v1.2 release",
		"e.g. example":     "e.g. example",
		"## heading":       "",
	}
	for in, want := range tests {
		if got := cleanLine(in); got != want {
			t.Errorf("cleanLine(%q) = %q, want %q", in, got, want)
		}
	}
}
