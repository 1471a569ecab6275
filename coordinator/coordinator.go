// Package coordinator orchestrates peer-to-peer workflow scheduling: it
// ingests task submissions, appends clock events, computes deterministic
// ownership, schedules locally-owned tasks on a priority queue, tracks
// task lifecycle state, and persists everything durably.
//
// A Coordinator never talks to the network and never executes payloads.
// Peers converge because every peer computes the same ownership function
// over the same merkle-clock head and roster; see the assign package.
//
// Concurrency: one mutual-exclusion domain per instance. Mutating calls
// serialize on a write lock; reads share a read lock. Every mutating call
// persists before it returns and rolls the in-memory state back if the
// durable write fails, so memory and disk never observably diverge.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peerflow-dev/peerflow/assign"
	"github.com/peerflow-dev/peerflow/clock"
	"github.com/peerflow-dev/peerflow/descriptor"
	"github.com/peerflow-dev/peerflow/fibheap"
	"github.com/peerflow-dev/peerflow/store"
)

// DefaultStorageKey is the sink key used when Config.StorageKey is empty.
const DefaultStorageKey = "coordinator"

// Config wires a Coordinator's collaborators. LocalPeer and Sink are
// required; everything else has a default.
type Config struct {
	// LocalPeer is this coordinator's peer id. It is always part of the
	// roster.
	LocalPeer string

	// Peers is the initial roster supplied by the peer-roster provider.
	Peers []string

	// Sink is the durable state-persistence sink.
	Sink store.Sink

	// Eligibility gates submissions before any state is mutated.
	// Defaults to descriptor.NewTagEligibility(descriptor.DefaultTag).
	Eligibility descriptor.Eligibility

	// StorageKey identifies this coordinator's blob in the sink.
	StorageKey string

	// Logger receives lifecycle and scheduling logs. Defaults to a
	// discard logger.
	Logger *slog.Logger

	// Now overrides the wall-clock source. Timestamps are audit-only.
	Now func() time.Time

	// TokenFunc overrides submission-token generation (uuid v7).
	TokenFunc func() string
}

// Coordinator is the P2P workflow scheduling core.
type Coordinator struct {
	mu sync.RWMutex

	localPeer   string
	peers       map[string]struct{}
	clock       *clock.Clock
	tasks       map[string]*Task
	queue       *fibheap.WorkflowQueue
	sink        store.Sink
	eligibility descriptor.Eligibility
	key         string
	logger      *slog.Logger
	now         func() time.Time
	token       func() string
}

// New constructs a coordinator and loads its durable state, or initializes
// and persists a fresh one if the sink has no blob under the storage key.
//
// Reload failures are fatal construction errors: a clock chain that fails
// verification or an internally inconsistent blob is surfaced, never
// silently repaired.
func New(ctx context.Context, cfg Config) (*Coordinator, error) {
	if cfg.LocalPeer == "" {
		return nil, fmt.Errorf("coordinator: LocalPeer is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("coordinator: Sink is required")
	}

	c := &Coordinator{
		localPeer:   cfg.LocalPeer,
		peers:       make(map[string]struct{}),
		tasks:       make(map[string]*Task),
		queue:       fibheap.NewWorkflowQueue(),
		sink:        cfg.Sink,
		eligibility: cfg.Eligibility,
		key:         cfg.StorageKey,
		logger:      cfg.Logger,
		now:         cfg.Now,
		token:       cfg.TokenFunc,
	}
	if c.eligibility == nil {
		c.eligibility = descriptor.NewTagEligibility(descriptor.DefaultTag)
	}
	if c.key == "" {
		c.key = DefaultStorageKey
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.token == nil {
		c.token = func() string { return uuid.Must(uuid.NewV7()).String() }
	}

	blob, found, err := c.sink.Load(ctx, c.key)
	if err != nil {
		return nil, newPersistenceError(err)
	}
	if found {
		if err := c.restoreState(blob); err != nil {
			return nil, err
		}
		c.logger.Info("coordinator state restored",
			"peer", c.localPeer,
			"tasks", len(c.tasks),
			"queued", c.queue.Len(),
			"clock_events", c.clock.Len())
		return c, nil
	}

	c.clock = clock.New(clock.WithNow(c.now))
	c.peers[c.localPeer] = struct{}{}
	for _, p := range cfg.Peers {
		if p != "" {
			c.peers[p] = struct{}{}
		}
	}
	if err := c.persist(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("coordinator initialized", "peer", c.localPeer, "roster", len(c.peers))
	return c, nil
}

// LocalPeer returns this coordinator's peer id.
func (c *Coordinator) LocalPeer() string { return c.localPeer }

// Peers returns the current roster in lexicographic order.
func (c *Coordinator) Peers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedPeers()
}

// Head returns the merkle clock's current head hash.
func (c *Coordinator) Head() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock.Head()
}

// VerifyClock re-verifies the clock chain, returning (false, eventHash)
// on the first mismatch.
func (c *Coordinator) VerifyClock() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock.Verify()
}

// ClockLen returns the number of events in the merkle clock.
func (c *Coordinator) ClockLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock.Len()
}

// QueueLen returns the number of locally-owned tasks awaiting execution.
func (c *Coordinator) QueueLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.Len()
}

// SubmitWorkflow validates and ingests a workflow submission.
//
// The pipeline: eligibility gate → content hash → clock append → owner
// assignment from the post-append head → enqueue if locally owned →
// persist. The task id is derived from the descriptor's content hash, so
// resubmitting identical content returns the existing id; each submission
// still appends a clock event.
//
// The call either fully applies (including the durable write) or fully
// fails leaving prior state untouched.
func (c *Coordinator) SubmitWorkflow(ctx context.Context, d descriptor.Descriptor, name string, priority int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.eligibility.Eligible(d) {
		return "", &Error{
			Code:    ErrCodeInvalidDescriptor,
			Message: "descriptor is not eligible for peer scheduling",
		}
	}
	if err := descriptor.Validate(d); err != nil {
		return "", &Error{
			Code:    ErrCodeInvalidDescriptor,
			Message: "descriptor is malformed",
			Err:     err,
		}
	}
	if len(c.peers) == 0 {
		return "", &Error{Code: ErrCodeNoPeers, Message: "roster is empty"}
	}

	taskHash, err := descriptor.Hash(d)
	if err != nil {
		return "", &Error{
			Code:    ErrCodeInvalidDescriptor,
			Message: "descriptor cannot be hashed",
			Err:     err,
		}
	}
	taskID := "wf-" + taskHash[:16]

	if name == "" {
		name = d.Name
	}

	clockBackup := c.clock.Clone()
	if _, err := c.clock.Append([]byte("task:" + taskHash)); err != nil {
		return "", fmt.Errorf("submit %s: %w", taskID, err)
	}

	// Idempotent at the identifier level: identical content maps to the
	// existing task, but the submission is still a clock fact.
	if _, exists := c.tasks[taskID]; exists {
		if err := c.persist(ctx); err != nil {
			c.clock = clockBackup
			return "", err
		}
		c.logger.Debug("workflow resubmitted", "task", taskID)
		return taskID, nil
	}

	owner, err := assign.SelectTaskOwner(c.clock.Head(), taskHash, c.sortedPeers())
	if err != nil {
		c.clock = clockBackup
		return "", &Error{Code: ErrCodeNoPeers, Message: "roster is empty", Err: err}
	}

	now := c.now().UTC()
	assignedAt := now
	task := &Task{
		ID:              taskID,
		Name:            name,
		Hash:            taskHash,
		Priority:        priority,
		Status:          StatusAssigned,
		AssignedPeer:    owner,
		SubmissionToken: c.token(),
		SubmittedAt:     now,
		AssignedAt:      &assignedAt,
	}
	c.tasks[taskID] = task

	queued := false
	if owner == c.localPeer {
		c.queue.Add(taskID, priority)
		queued = true
	}

	if err := c.persist(ctx); err != nil {
		c.clock = clockBackup
		delete(c.tasks, taskID)
		if queued {
			c.queue.Remove(taskID)
		}
		return "", err
	}

	c.logger.Debug("workflow submitted",
		"task", taskID,
		"name", name,
		"priority", priority,
		"owner", owner,
		"local", queued)
	return taskID, nil
}

// AssignWorkflows re-evaluates ownership for every pending task against
// the current clock head and roster, typically after a roster change.
// Returns the task ids that are now locally owned and queued.
func (c *Coordinator) AssignWorkflows(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pending []*Task
	for _, t := range c.tasks {
		if t.Status == StatusPending {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	if len(c.peers) == 0 {
		return nil, &Error{Code: ErrCodeNoPeers, Message: "roster is empty"}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	head := c.clock.Head()
	now := c.now().UTC()

	hashes := make([]string, 0, len(pending))
	for _, t := range pending {
		hashes = append(hashes, t.Hash)
	}
	owners, err := assign.Spread(head, hashes, c.sortedPeers())
	if err != nil {
		return nil, &Error{Code: ErrCodeNoPeers, Message: "roster is empty", Err: err}
	}

	backups := make([]*Task, 0, len(pending))
	var queuedIDs []string
	var local []string
	for _, t := range pending {
		owner := owners[t.Hash]
		backups = append(backups, t.clone())

		assignedAt := now
		t.Status = StatusAssigned
		t.AssignedPeer = owner
		t.AssignedAt = &assignedAt
		if owner == c.localPeer {
			c.queue.Add(t.ID, t.Priority)
			queuedIDs = append(queuedIDs, t.ID)
			local = append(local, t.ID)
		}
	}

	if err := c.persist(ctx); err != nil {
		for _, b := range backups {
			c.tasks[b.ID] = b
		}
		for _, id := range queuedIDs {
			c.queue.Remove(id)
		}
		return nil, err
	}

	c.logger.Info("workflows reassigned", "pending", len(pending), "local", len(local))
	return local, nil
}

// GetWorkflowStatus returns a copy of the task record for taskID.
func (c *Coordinator) GetWorkflowStatus(taskID string) (Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tasks[taskID]
	if !ok {
		return Task{}, newNotFoundError(taskID)
	}
	return *t.clone(), nil
}

// ListFilter narrows ListWorkflows output. Zero values mean "no filter".
type ListFilter struct {
	Status Status
	Peer   string
}

// ListWorkflows returns task records matching the filter, ordered by
// submission time then id.
func (c *Coordinator) ListWorkflows(filter ListFilter) []Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Task
	for _, t := range c.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Peer != "" && t.AssignedPeer != filter.Peer {
			continue
		}
		out = append(out, *t.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateWorkflowStatus applies an execution-layer status report.
//
// Allowed transitions: assigned→in_progress, in_progress→{completed,
// failed, cancelled}, and pending/assigned→cancelled. completed requires a
// result and forbids an error message; failed is the reverse.
func (c *Coordinator) UpdateWorkflowStatus(ctx context.Context, taskID string, status Status, result map[string]any, errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[taskID]
	if !ok {
		return newNotFoundError(taskID)
	}
	if !status.Valid() || !transitionAllowed(t.Status, status) {
		return newTransitionError(taskID, t.Status, status)
	}

	switch status {
	case StatusCompleted:
		if result == nil {
			return &Error{
				Code:    ErrCodeInvalidTransition,
				Message: "completed requires a result",
				TaskID:  taskID,
				From:    t.Status,
				To:      status,
			}
		}
		if errMsg != "" {
			return &Error{
				Code:    ErrCodeInvalidTransition,
				Message: "completed forbids an error",
				TaskID:  taskID,
				From:    t.Status,
				To:      status,
			}
		}
	case StatusFailed:
		if errMsg == "" {
			return &Error{
				Code:    ErrCodeInvalidTransition,
				Message: "failed requires an error",
				TaskID:  taskID,
				From:    t.Status,
				To:      status,
			}
		}
		if result != nil {
			return &Error{
				Code:    ErrCodeInvalidTransition,
				Message: "failed forbids a result",
				TaskID:  taskID,
				From:    t.Status,
				To:      status,
			}
		}
	default:
		if result != nil || errMsg != "" {
			return &Error{
				Code:    ErrCodeInvalidTransition,
				Message: "result and error are terminal payloads",
				TaskID:  taskID,
				From:    t.Status,
				To:      status,
			}
		}
	}

	backup := t.clone()
	wasQueued := c.queue.Remove(taskID)

	t.Status = status
	if status.Terminal() {
		completedAt := c.now().UTC()
		t.CompletedAt = &completedAt
	}
	if status == StatusCompleted {
		t.Result = result
	}
	if status == StatusFailed {
		t.Error = errMsg
	}

	if err := c.persist(ctx); err != nil {
		c.tasks[taskID] = backup
		if wasQueued {
			c.queue.Add(taskID, backup.Priority)
		}
		return err
	}

	c.logger.Debug("workflow status updated", "task", taskID, "from", backup.Status, "to", status)
	return nil
}

// GetNextWorkflow pops the highest-priority locally-owned task for the
// execution layer. Returns ("", false, nil) when the queue is empty.
//
// Popping is a state mutation and is durable before the call returns; on
// persistence failure the entry is reinserted and the error surfaces.
func (c *Coordinator) GetNextWorkflow(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	taskID, ok := c.queue.Next()
	if !ok {
		return "", false, nil
	}

	if err := c.persist(ctx); err != nil {
		if t, exists := c.tasks[taskID]; exists {
			c.queue.Add(taskID, t.Priority)
		}
		return "", false, err
	}

	c.logger.Debug("workflow dequeued", "task", taskID)
	return taskID, true, nil
}

// AddPeer adds peerID to the roster and records the change as a clock
// event so other peers can observe it causally. Adding a known peer is a
// no-op. Already-assigned tasks are untouched; call AssignWorkflows to
// reconcile.
func (c *Coordinator) AddPeer(ctx context.Context, peerID string) error {
	if peerID == "" {
		return fmt.Errorf("add peer: empty peer id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.peers[peerID]; exists {
		return nil
	}

	clockBackup := c.clock.Clone()
	if _, err := c.clock.Append([]byte("peer-add:" + peerID)); err != nil {
		return fmt.Errorf("add peer %s: %w", peerID, err)
	}
	c.peers[peerID] = struct{}{}

	if err := c.persist(ctx); err != nil {
		c.clock = clockBackup
		delete(c.peers, peerID)
		return err
	}

	c.logger.Info("peer added", "peer", peerID, "roster", len(c.peers))
	return nil
}

// RemovePeer drops peerID from the roster. Tasks assigned to the removed
// peer fall back to pending — the one sanctioned backward transition — so
// a following AssignWorkflows can re-home them. Removing an unknown peer
// is a no-op.
func (c *Coordinator) RemovePeer(ctx context.Context, peerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.peers[peerID]; !exists {
		return nil
	}

	clockBackup := c.clock.Clone()
	if _, err := c.clock.Append([]byte("peer-remove:" + peerID)); err != nil {
		return fmt.Errorf("remove peer %s: %w", peerID, err)
	}
	delete(c.peers, peerID)

	var backups []*Task
	var dequeued []*Task
	for _, t := range c.tasks {
		if t.AssignedPeer != peerID || t.Status != StatusAssigned {
			continue
		}
		backups = append(backups, t.clone())
		t.Status = StatusPending
		t.AssignedPeer = ""
		t.AssignedAt = nil
		if c.queue.Remove(t.ID) {
			dequeued = append(dequeued, t)
		}
	}

	if err := c.persist(ctx); err != nil {
		c.clock = clockBackup
		c.peers[peerID] = struct{}{}
		for _, b := range backups {
			c.tasks[b.ID] = b
		}
		for _, t := range dequeued {
			c.queue.Add(t.ID, t.Priority)
		}
		return err
	}

	c.logger.Info("peer removed", "peer", peerID, "demoted_tasks", len(backups))
	return nil
}

// CloneClock returns an independent copy of the local clock, suitable
// for handing to another peer's MergeClock.
func (c *Coordinator) CloneClock() *clock.Clock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock.Clone()
}

// MergeClock reconciles a remote peer's clock into the local one. The
// merged head is deterministic, so two peers exchanging clocks converge.
// Merges are pairwise; reconcile multiple remotes in ascending peer-id
// order.
func (c *Coordinator) MergeClock(ctx context.Context, remote *clock.Clock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged, err := c.clock.Merge(remote)
	if err != nil {
		return fmt.Errorf("merge clock: %w", err)
	}

	old := c.clock
	c.clock = merged
	if err := c.persist(ctx); err != nil {
		c.clock = old
		return err
	}

	c.logger.Info("clock merged", "events", merged.Len(), "head", merged.Head())
	return nil
}

func (c *Coordinator) sortedPeers() []string {
	peers := make([]string, 0, len(c.peers))
	for p := range c.peers {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}

// persist writes the full coordinator state through the sink. Callers
// hold the write lock and roll back their in-memory mutation on error.
func (c *Coordinator) persist(ctx context.Context) error {
	blob, err := c.marshalState()
	if err != nil {
		return newPersistenceError(err)
	}
	if err := c.sink.Save(ctx, c.key, blob); err != nil {
		return newPersistenceError(err)
	}
	return nil
}
