package board

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle stage reported by the backend. The wire value is
// kept verbatim so that unrecognized stages can still be displayed.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Stage is the closed set of board lanes a Status maps to.
type Stage int

const (
	StageQueued Stage = iota
	StageInProgress
	StageDone
	StageUnrecognized
)

// AllStatuses returns the known statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusQueued, StatusInProgress, StatusDone}
}

// IsKnown returns true if the status is one of the three lifecycle stages.
func (s Status) IsKnown() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Stage maps the status onto its board lane.
func (s Status) Stage() Stage {
	switch s {
	case StatusQueued:
		return StageQueued
	case StatusInProgress:
		return StageInProgress
	case StatusDone:
		return StageDone
	default:
		return StageUnrecognized
	}
}

func (s Status) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

// ParseStatus parses a string into a known Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsKnown() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}

// UnmarshalJSON accepts any string. Unknown values are preserved and routed
// to StageUnrecognized by the projection rather than rejected here.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Status(str)
	return nil
}

// Stages returns the lanes in display order.
func Stages() []Stage {
	return []Stage{StageQueued, StageInProgress, StageDone, StageUnrecognized}
}

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageInProgress:
		return "in_progress"
	case StageDone:
		return "done"
	default:
		return "unrecognized"
	}
}

// Title returns the column heading for the lane.
func (s Stage) Title() string {
	switch s {
	case StageQueued:
		return "Queued"
	case StageInProgress:
		return "In Progress"
	case StageDone:
		return "Done"
	default:
		return "Unrecognized"
	}
}

// Route says who a task was handed to.
type Route string

const (
	RouteAI    Route = "ai"
	RouteHuman Route = "human"
)

// IsKnown returns true for ai and human.
func (r Route) IsKnown() bool {
	return r == RouteAI || r == RouteHuman
}

func (r Route) String() string {
	return string(r)
}

// DisplayName returns the owner label prefix used on cards.
func (r Route) DisplayName() string {
	switch r {
	case RouteAI:
		return "AI Agent"
	case RouteHuman:
		return "Human"
	default:
		return "Unassigned"
	}
}
