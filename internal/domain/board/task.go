// Package board holds the task model shown on the live dashboard, the
// merge-by-identity rule used to fold pushed records into it, and the
// projection of a task collection into stage lanes.
package board

// Task is a unit of work tracked by the board.
type Task struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   Status `json:"status"`
	RoutedTo Route  `json:"routedTo"`
	Owner    string `json:"owner,omitempty"`
	Result   string `json:"result,omitempty"`
}

// TaskUpdate is one record as it arrived on the push channel. A nil field
// was absent from the record (or sent as null) and must not change the
// stored task. A non-nil field overwrites, even when it holds "".
type TaskUpdate struct {
	ID       string  `json:"id"`
	Title    *string `json:"title,omitempty"`
	Status   *Status `json:"status,omitempty"`
	RoutedTo *Route  `json:"routedTo,omitempty"`
	Owner    *string `json:"owner,omitempty"`
	Result   *string `json:"result,omitempty"`
}

// Apply returns a copy of t with every field present in u overwritten.
// Fields absent from u keep their previous value. The ID is never changed.
func (t Task) Apply(u TaskUpdate) Task {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.RoutedTo != nil {
		t.RoutedTo = *u.RoutedTo
	}
	if u.Owner != nil {
		t.Owner = *u.Owner
	}
	if u.Result != nil {
		t.Result = *u.Result
	}
	return t
}

// Task materializes a first-seen record.
func (u TaskUpdate) Task() Task {
	return Task{ID: u.ID}.Apply(u)
}

// Update converts a full task into an update carrying every field. Optional
// fields left empty are treated as absent.
func (t Task) Update() TaskUpdate {
	u := TaskUpdate{
		ID:       t.ID,
		Title:    &t.Title,
		Status:   &t.Status,
		RoutedTo: &t.RoutedTo,
	}
	if t.Owner != "" {
		u.Owner = &t.Owner
	}
	if t.Result != "" {
		u.Result = &t.Result
	}
	return u
}

// OwnerLabel returns the owner or a dash when none is known yet.
func (t Task) OwnerLabel() string {
	if t.Owner == "" {
		return "—"
	}
	return t.Owner
}

// Ptr is a small helper for building updates by hand.
func Ptr[T any](v T) *T {
	return &v
}
