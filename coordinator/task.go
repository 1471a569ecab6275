package coordinator

import "time"

// Status is a workflow task lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// externalTransitions is the state machine as seen by the execution layer.
// pending and assigned are internal states: they are set by submission and
// reassignment, never by UpdateWorkflowStatus.
var externalTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusCancelled: true,
	},
	StatusAssigned: {
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
}

// transitionAllowed reports whether an external update from→to is valid.
func transitionAllowed(from, to Status) bool {
	return externalTransitions[from][to]
}

// Task is the unit of schedulable work tracked by the coordinator.
//
// Result and Error are mutually exclusive terminal payloads: Result is set
// only on completed tasks, Error only on failed ones.
type Task struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Hash            string         `json:"hash"`
	Priority        int64          `json:"priority"`
	Status          Status         `json:"status"`
	AssignedPeer    string         `json:"assigned_peer,omitempty"`
	SubmissionToken string         `json:"submission_token"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	AssignedAt      *time.Time     `json:"assigned_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Result          map[string]any `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// clone returns an independent copy for rollback and read snapshots.
func (t *Task) clone() *Task {
	cp := *t
	if t.AssignedAt != nil {
		at := *t.AssignedAt
		cp.AssignedAt = &at
	}
	if t.CompletedAt != nil {
		ct := *t.CompletedAt
		cp.CompletedAt = &ct
	}
	if t.Result != nil {
		cp.Result = make(map[string]any, len(t.Result))
		for k, v := range t.Result {
			cp.Result[k] = v
		}
	}
	return &cp
}
