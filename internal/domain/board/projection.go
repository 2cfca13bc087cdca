package board

// Board is the read-only partition of a snapshot into stage lanes. Each lane
// keeps the snapshot's order.
type Board struct {
	Queued       []Task
	InProgress   []Task
	Done         []Task
	Unrecognized []Task
}

// GroupByStatus partitions tasks by their current status. Every task lands
// in exactly one lane; statuses outside the known lifecycle go to
// Unrecognized.
func GroupByStatus(tasks []Task) Board {
	var b Board
	for _, t := range tasks {
		switch t.Status.Stage() {
		case StageQueued:
			b.Queued = append(b.Queued, t)
		case StageInProgress:
			b.InProgress = append(b.InProgress, t)
		case StageDone:
			b.Done = append(b.Done, t)
		default:
			b.Unrecognized = append(b.Unrecognized, t)
		}
	}
	return b
}

// Column returns the lane for a stage.
func (b Board) Column(s Stage) []Task {
	switch s {
	case StageQueued:
		return b.Queued
	case StageInProgress:
		return b.InProgress
	case StageDone:
		return b.Done
	default:
		return b.Unrecognized
	}
}

// Len returns the total number of tasks across all lanes.
func (b Board) Len() int {
	return len(b.Queued) + len(b.InProgress) + len(b.Done) + len(b.Unrecognized)
}

// Counts returns the number of tasks per lane.
func (b Board) Counts() map[Stage]int {
	return map[Stage]int{
		StageQueued:       len(b.Queued),
		StageInProgress:   len(b.InProgress),
		StageDone:         len(b.Done),
		StageUnrecognized: len(b.Unrecognized),
	}
}
