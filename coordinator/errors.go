package coordinator

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes coordinator errors.
type ErrorCode string

const (
	// ErrCodeInvalidDescriptor indicates an ineligible or malformed
	// submission. Recoverable: the caller may fix and resubmit.
	ErrCodeInvalidDescriptor ErrorCode = "INVALID_WORKFLOW_DESCRIPTOR"

	// ErrCodeNoPeers indicates an empty roster at assignment time.
	// Recoverable once the roster is populated.
	ErrCodeNoPeers ErrorCode = "NO_PEERS_AVAILABLE"

	// ErrCodeInvalidTransition indicates a status update outside the
	// allowed state machine. Recoverable: caller logic error.
	ErrCodeInvalidTransition ErrorCode = "INVALID_STATE_TRANSITION"

	// ErrCodeNotFound indicates an unknown task id.
	ErrCodeNotFound ErrorCode = "WORKFLOW_NOT_FOUND"

	// ErrCodeClockVerification indicates the clock chain failed its
	// integrity check on reload. Fatal: requires operator intervention
	// or a clean-state restart; history is never silently discarded.
	ErrCodeClockVerification ErrorCode = "CLOCK_VERIFICATION_FAILED"

	// ErrCodeCorruptState indicates the persisted blob is internally
	// inconsistent (e.g. a queue entry referencing no task). Fatal.
	ErrCodeCorruptState ErrorCode = "CORRUPT_STATE"

	// ErrCodePersistence indicates the durable write or read failed.
	// The in-memory state is rolled back to exactly what it was before
	// the attempted mutation.
	ErrCodePersistence ErrorCode = "PERSISTENCE_FAILURE"
)

// Error is a coordinator error with structured context.
type Error struct {
	Code    ErrorCode
	Message string
	TaskID  string
	From    Status // set for transition errors
	To      Status
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.From != "" || e.To != "":
		return fmt.Sprintf("%s: %s (task=%s, from=%s, to=%s)", e.Code, e.Message, e.TaskID, e.From, e.To)
	case e.TaskID != "":
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.TaskID)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the error code, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsInvalidDescriptor reports whether err is an eligibility or
// malformed-descriptor rejection.
func IsInvalidDescriptor(err error) bool { return CodeOf(err) == ErrCodeInvalidDescriptor }

// IsNoPeers reports whether err is an empty-roster rejection.
func IsNoPeers(err error) bool { return CodeOf(err) == ErrCodeNoPeers }

// IsInvalidTransition reports whether err is a state-machine violation.
func IsInvalidTransition(err error) bool { return CodeOf(err) == ErrCodeInvalidTransition }

// IsNotFound reports whether err is an unknown-task lookup.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsPersistenceFailure reports whether err is a durable-storage failure.
func IsPersistenceFailure(err error) bool { return CodeOf(err) == ErrCodePersistence }

func newTransitionError(taskID string, from, to Status) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: "workflow status transition not allowed",
		TaskID:  taskID,
		From:    from,
		To:      to,
	}
}

func newNotFoundError(taskID string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "workflow not found",
		TaskID:  taskID,
	}
}

func newPersistenceError(err error) *Error {
	return &Error{
		Code:    ErrCodePersistence,
		Message: "durable state write failed",
		Err:     err,
	}
}
