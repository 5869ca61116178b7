// Package trakerr defines the error taxonomy shared across trak's
// packages. Errors carry a Kind so the CLI layer can map any failure to
// the right exit code and leading symbol without string matching.
package trakerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for exit-code and presentation purposes.
type Kind int

const (
	// KindNotFound is an unknown task id, file, or record.
	KindNotFound Kind = iota
	// KindValidation is an illegal status, out-of-range priority, self-dependency, etc.
	KindValidation
	// KindConflict is a lock held by another task, or a close blocked by the gate.
	KindConflict
	// KindBudget is a task over budget; dispatch is suppressed.
	KindBudget
	// KindTransient is a network or subprocess error, retried upstream before surfacing.
	KindTransient
	// KindFatal aborts the current command (missing store, corrupt log).
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindBudget:
		return "budget"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind and the entity it names.
type Error struct {
	Kind   Kind
	Entity string
	Err    error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %v", e.Entity, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind naming entity.
func New(kind Kind, entity string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Err: err}
}

// NotFound wraps err as a KindNotFound error naming entity.
func NotFound(entity string, err error) *Error { return New(KindNotFound, entity, err) }

// Validation wraps err as a KindValidation error naming entity.
func Validation(entity string, err error) *Error { return New(KindValidation, entity, err) }

// Conflict wraps err as a KindConflict error naming entity.
func Conflict(entity string, err error) *Error { return New(KindConflict, entity, err) }

// Budget wraps err as a KindBudget error naming entity.
func Budget(entity string, err error) *Error { return New(KindBudget, entity, err) }

// Transient wraps err as a KindTransient error naming entity.
func Transient(entity string, err error) *Error { return New(KindTransient, entity, err) }

// Fatal wraps err as a KindFatal error naming entity.
func Fatal(entity string, err error) *Error { return New(KindFatal, entity, err) }

// KindOf returns the Kind of err if it (or something it wraps) is a
// *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// ExitCode maps an error to trak's process exit code: 0 on nil, 1 on
// anything else. Kept as a function (rather than a constant) so future
// exit-code nuance has one call site to change.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
