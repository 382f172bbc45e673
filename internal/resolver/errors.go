package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// CycleError is returned when module dependencies form a cycle. Cycle starts
// at its lexicographically smallest id and lists each member once.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "circular dependency"
	}
	path := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("circular dependency: %s", strings.Join(path, " -> "))
}

// UnknownDependencyError is returned when a module depends on an id outside
// the batch.
type UnknownDependencyError struct {
	Module     string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("module %q depends on unknown module %q", e.Module, e.Dependency)
}

// IsCycle reports whether err is or wraps a *CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// IsUnknownDependency reports whether err is or wraps an *UnknownDependencyError.
func IsUnknownDependency(err error) bool {
	var ue *UnknownDependencyError
	return errors.As(err, &ue)
}
