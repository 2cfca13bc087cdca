package board

import "testing"

func TestCollection_Apply(t *testing.T) {
	c := NewCollection()

	res := c.Apply(
		TaskUpdate{ID: "a", Title: Ptr("A"), Status: Ptr(StatusQueued)},
		TaskUpdate{ID: "b", Title: Ptr("B"), Status: Ptr(StatusQueued)},
	)
	if res.Inserted != 2 || res.Updated != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	res = c.Apply(
		TaskUpdate{ID: "a", Status: Ptr(StatusInProgress)},
		TaskUpdate{ID: "c", Title: Ptr("C")},
	)
	if res.Inserted != 1 || res.Updated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	tasks := c.Tasks()
	ids := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("order not preserved: %v", ids)
	}
	if tasks[0].Title != "A" || tasks[0].Status != StatusInProgress {
		t.Errorf("merge failed: %+v", tasks[0])
	}
}

func TestCollection_SameIDTwiceInOneBatch(t *testing.T) {
	c := NewCollection()
	res := c.Apply(
		TaskUpdate{ID: "a", Title: Ptr("A"), Status: Ptr(StatusQueued)},
		TaskUpdate{ID: "a", Status: Ptr(StatusDone)},
	)
	if c.Len() != 1 {
		t.Fatalf("expected one record per id, got %d", c.Len())
	}
	if res.Inserted != 1 || res.Updated != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	got, _ := c.Get("a")
	if got.Title != "A" || got.Status != StatusDone {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestCollection_SkipsEmptyID(t *testing.T) {
	c := NewCollection()
	if res := c.Apply(TaskUpdate{Title: Ptr("orphan")}); res.Changed() {
		t.Errorf("empty id should be skipped, got %+v", res)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty collection")
	}
}

func TestCollection_TasksIsACopy(t *testing.T) {
	c := NewCollection()
	c.Apply(TaskUpdate{ID: "a", Title: Ptr("A")})
	tasks := c.Tasks()
	tasks[0].Title = "changed"
	if got, _ := c.Get("a"); got.Title != "A" {
		t.Error("Tasks() leaked internal storage")
	}
}
