package types

import "errors"

// Sentinel errors for task-model validation shared across packages.
// Using sentinels instead of ad-hoc fmt.Errorf allows callers to match
// with errors.Is for reliable error handling.
var (
	// ErrSelfDependency is returned when a task is made to depend on itself.
	ErrSelfDependency = errors.New("a task cannot depend on itself")

	// ErrInvalidStatus is returned when a status transition target is unknown.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority is returned when priority is outside 0-3.
	ErrInvalidPriority = errors.New("priority must be between 0 and 3")

	// ErrWouldCreateCycle is returned when adding a dependency edge would
	// close a cycle in the dependency graph.
	ErrWouldCreateCycle = errors.New("dependency would create a cycle")
)
