package coordinator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/peerflow-dev/peerflow/clock"
	"github.com/peerflow-dev/peerflow/fibheap"
)

// stateVersion tracks the coordinator blob format.
// 1 - initial format: roster, clock blob, task table, queue entries.
const stateVersion = 1

// stateBlob is the serialized coordinator. Collections are sorted so that
// serialize → deserialize → serialize is byte-identical for an unchanged
// coordinator.
type stateBlob struct {
	Version   int             `json:"version"`
	LocalPeer string          `json:"local_peer"`
	Peers     []string        `json:"peers"`
	Clock     json.RawMessage `json:"clock"`
	Tasks     []*Task         `json:"tasks"`
	Queue     []fibheap.Entry `json:"queue"`
}

// MarshalState serializes the full coordinator state: roster, merkle
// clock, task table, and priority-queue contents.
func (c *Coordinator) MarshalState() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.marshalState()
}

// marshalState is MarshalState without locking, for callers already
// holding the lock.
func (c *Coordinator) marshalState() ([]byte, error) {
	clockBlob, err := c.clock.MarshalBinary()
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	b := stateBlob{
		Version:   stateVersion,
		LocalPeer: c.localPeer,
		Peers:     c.sortedPeers(),
		Clock:     clockBlob,
		Tasks:     tasks,
		Queue:     c.queue.Entries(),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// restoreState rebuilds the coordinator from a persisted blob.
//
// The clock chain is verified and the queue's task references are
// cross-checked; any mismatch is a fatal error, never repaired.
func (c *Coordinator) restoreState(blob []byte) error {
	var b stateBlob
	if err := json.Unmarshal(blob, &b); err != nil {
		return &Error{Code: ErrCodeCorruptState, Message: "state blob is not decodable", Err: err}
	}
	if b.Version != stateVersion {
		return &Error{
			Code:    ErrCodeCorruptState,
			Message: fmt.Sprintf("unsupported state version %d", b.Version),
		}
	}
	if b.LocalPeer != c.localPeer {
		return &Error{
			Code:    ErrCodeCorruptState,
			Message: fmt.Sprintf("state belongs to peer %q, coordinator is %q", b.LocalPeer, c.localPeer),
		}
	}

	restored := clock.New(clock.WithNow(c.now))
	if err := restored.UnmarshalBinary(b.Clock); err != nil {
		return &Error{Code: ErrCodeCorruptState, Message: "clock blob is not decodable", Err: err}
	}
	if ok, bad := restored.Verify(); !ok {
		return &Error{
			Code:    ErrCodeClockVerification,
			Message: fmt.Sprintf("clock chain verification failed at event %s", bad),
		}
	}

	tasks := make(map[string]*Task, len(b.Tasks))
	for _, t := range b.Tasks {
		if t == nil {
			return &Error{Code: ErrCodeCorruptState, Message: "task record is null"}
		}
		if t.ID == "" || !t.Status.Valid() {
			return &Error{
				Code:    ErrCodeCorruptState,
				Message: fmt.Sprintf("task record %q is invalid", t.ID),
			}
		}
		tasks[t.ID] = t
	}

	queue := fibheap.NewWorkflowQueue()
	for _, entry := range b.Queue {
		t, ok := tasks[entry.TaskID]
		if !ok {
			return &Error{
				Code:    ErrCodeCorruptState,
				Message: fmt.Sprintf("queue entry references unknown task %s", entry.TaskID),
				TaskID:  entry.TaskID,
			}
		}
		if t.Status != StatusAssigned || t.AssignedPeer != c.localPeer {
			return &Error{
				Code:    ErrCodeCorruptState,
				Message: fmt.Sprintf("queue entry for task %s does not match its record", entry.TaskID),
				TaskID:  entry.TaskID,
			}
		}
		queue.Add(entry.TaskID, entry.Priority)
	}

	peers := make(map[string]struct{}, len(b.Peers))
	for _, p := range b.Peers {
		peers[p] = struct{}{}
	}

	c.peers = peers
	c.clock = restored
	c.tasks = tasks
	c.queue = queue
	return nil
}
