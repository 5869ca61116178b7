package engine

import "errors"

var (
	// ErrAlreadyDone is not a failure: Close on an already-done task is
	// a no-op the caller should report, not escalate.
	ErrAlreadyDone = errors.New("already done")

	// ErrCloseBlocked indicates the verification gate did not pass and
	// the task was moved to review instead of closed.
	ErrCloseBlocked = errors.New("close blocked: verification required")

	// ErrHardCheckFailed indicates a hard verification check failed
	// (non-zero verify_command exit, or a missing --commit).
	ErrHardCheckFailed = errors.New("verification hard check failed")
)
