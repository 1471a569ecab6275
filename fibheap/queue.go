package fibheap

import "sort"

// WorkflowQueue schedules task identifiers by priority (lower value runs
// sooner). It wraps a Heap with a task-id index so entries can be removed
// or re-prioritized by id, which the raw heap cannot do.
//
// The index is kept consistent across every heap mutation; a task id
// appears at most once in the queue.
//
// Not safe for concurrent use; the coordinator serializes access.
type WorkflowQueue struct {
	heap  *Heap[string]
	index map[string]*Node[string]
}

// Entry is a queue element as exposed for persistence and inspection.
type Entry struct {
	TaskID   string `json:"task_id"`
	Priority int64  `json:"priority"`
}

// NewWorkflowQueue creates an empty queue.
func NewWorkflowQueue() *WorkflowQueue {
	return &WorkflowQueue{
		heap:  New[string](),
		index: make(map[string]*Node[string]),
	}
}

// Add enqueues taskID at the given priority. Adding an id that is already
// queued replaces its priority.
func (q *WorkflowQueue) Add(taskID string, priority int64) {
	if node, ok := q.index[taskID]; ok {
		if priority == node.Key() {
			return
		}
		q.heap.Delete(node)
	}
	q.index[taskID] = q.heap.Insert(priority, taskID)
}

// Next removes and returns the lowest-priority task id.
// Returns ("", false) on an empty queue.
func (q *WorkflowQueue) Next() (string, bool) {
	_, taskID, ok := q.heap.ExtractMin()
	if !ok {
		return "", false
	}
	delete(q.index, taskID)
	return taskID, true
}

// Peek returns the lowest-priority task id without removing it.
func (q *WorkflowQueue) Peek() (string, bool) {
	_, taskID, ok := q.heap.Min()
	return taskID, ok
}

// Remove drops taskID from the queue. Reports whether it was present.
func (q *WorkflowQueue) Remove(taskID string) bool {
	node, ok := q.index[taskID]
	if !ok {
		return false
	}
	q.heap.Delete(node)
	delete(q.index, taskID)
	return true
}

// Contains reports whether taskID is currently queued.
func (q *WorkflowQueue) Contains(taskID string) bool {
	_, ok := q.index[taskID]
	return ok
}

// Len returns the number of queued tasks.
func (q *WorkflowQueue) Len() int {
	return q.heap.Len()
}

// Entries returns the queue contents sorted by (priority, task id).
// The order is deterministic for persistence round-trips.
func (q *WorkflowQueue) Entries() []Entry {
	entries := make([]Entry, 0, len(q.index))
	for id, node := range q.index {
		entries = append(entries, Entry{TaskID: id, Priority: node.Key()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].TaskID < entries[j].TaskID
	})
	return entries
}
