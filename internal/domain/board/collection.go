package board

// ApplyResult counts what a batch of updates did to a Collection.
type ApplyResult struct {
	Inserted int
	Updated  int
}

// Changed reports whether the batch touched the collection at all.
func (r ApplyResult) Changed() bool {
	return r.Inserted+r.Updated > 0
}

// Collection is the ordered set of tasks keyed by ID. Existing entries keep
// their position when updated; unseen IDs are appended.
//
// Collection is not safe for concurrent use.
type Collection struct {
	tasks []Task
	index map[string]int
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Apply merges updates in order. Updates with an empty ID are skipped.
func (c *Collection) Apply(updates ...TaskUpdate) ApplyResult {
	var res ApplyResult
	for _, u := range updates {
		if u.ID == "" {
			continue
		}
		if i, ok := c.index[u.ID]; ok {
			c.tasks[i] = c.tasks[i].Apply(u)
			res.Updated++
			continue
		}
		c.index[u.ID] = len(c.tasks)
		c.tasks = append(c.tasks, u.Task())
		res.Inserted++
	}
	return res
}

// Get returns the task with the given ID.
func (c *Collection) Get(id string) (Task, bool) {
	i, ok := c.index[id]
	if !ok {
		return Task{}, false
	}
	return c.tasks[i], true
}

// Len returns the number of tasks.
func (c *Collection) Len() int {
	return len(c.tasks)
}

// Tasks returns a copy of the ordered tasks.
func (c *Collection) Tasks() []Task {
	out := make([]Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}
