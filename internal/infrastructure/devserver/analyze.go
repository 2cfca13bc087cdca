package devserver

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/flowboard/internal/domain/board"
	"github.com/google/uuid"
)

// humanKeywords mark work that needs judgement, approval or a person in the loop.
var humanKeywords = []string{
	"approve", "approval", "review", "validate", "sign off", "sign-off",
	"interview", "legal", "negotiate", "stakeholder", "hire", "decide",
}

// Analyze splits a spec into one queued task per bullet or non-empty line and
// routes each to an agent or a person.
func Analyze(spec string) []board.Task {
	var tasks []board.Task
	sc := bufio.NewScanner(strings.NewReader(spec))
	for sc.Scan() {
		title := cleanLine(sc.Text())
		if title == "" {
			continue
		}
		tasks = append(tasks, board.Task{
			ID:       uuid.NewString(),
			Title:    title,
			Status:   board.StatusQueued,
			RoutedTo: routeFor(title),
		})
	}
	return tasks
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
		return ""
	}
	for _, prefix := range []string{"- [ ] ", "- [x] ", "- ", "* ", "+ "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	// Numbered lists: "1. foo", "12) bar"
	if i := strings.IndexAny(line, ".)"); i > 0 && i < 4 {
		var n int
		if _, err := fmt.Sscanf(line[:i], "%d", &n); err == nil {
			return strings.TrimSpace(line[i+1:])
		}
	}
	return line
}

func routeFor(title string) board.Route {
	lower := strings.ToLower(title)
	for _, kw := range humanKeywords {
		if strings.Contains(lower, kw) {
			return board.RouteHuman
		}
	}
	return board.RouteAI
}
