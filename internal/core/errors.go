package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Core Error Types
// =============================================================================

// ModuleGenerationError is returned when the generator fails for a module.
// The run stops at that module; earlier results stay in the state.
type ModuleGenerationError struct {
	ModuleID string
	Message  string
	Err      error
}

func (e *ModuleGenerationError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("generating module %s: %v", e.ModuleID, e.Err)
	}
	return fmt.Sprintf("generating module %s: %s", e.ModuleID, e.Message)
}

func (e *ModuleGenerationError) Unwrap() error {
	return e.Err
}

// AnalyzerFailure describes an analyzer that errored, panicked or timed out.
// It never escapes Analyze; the aggregator turns it into a diagnostic.
type AnalyzerFailure struct {
	Section  string
	Analyzer string
	Cause    error
	Panicked bool
	At       time.Time
}

func (e *AnalyzerFailure) Error() string {
	if e.Panicked {
		return fmt.Sprintf("analyzer %s (%s) panicked: %v", e.Analyzer, e.Section, e.Cause)
	}
	return fmt.Sprintf("analyzer %s (%s) failed: %v", e.Analyzer, e.Section, e.Cause)
}

func (e *AnalyzerFailure) Unwrap() error {
	return e.Cause
}

// TimedOut reports whether the analyzer ran out of its time budget.
func (e *AnalyzerFailure) TimedOut() bool {
	return errors.Is(e.Cause, context.DeadlineExceeded)
}

// =============================================================================
// Predefined Error Values
// =============================================================================

var (
	ErrRunCancelled    = errors.New("generation run cancelled")
	ErrAlreadyStarted  = errors.New("generation run already started")
	ErrNothingToResume = errors.New("run has no remaining modules")
)

// =============================================================================
// Error Classification Functions
// =============================================================================

// IsModuleGenerationError reports whether err is or wraps a *ModuleGenerationError.
func IsModuleGenerationError(err error) bool {
	if err == nil {
		return false
	}
	var genErr *ModuleGenerationError
	return errors.As(err, &genErr)
}

// IsAnalyzerFailure reports whether err is or wraps an *AnalyzerFailure.
func IsAnalyzerFailure(err error) bool {
	if err == nil {
		return false
	}
	var failure *AnalyzerFailure
	return errors.As(err, &failure)
}

// IsCancellation reports whether err came from a cancelled or expired context
// or a cancelled run.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrRunCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// =============================================================================
// Error Creation Helpers
// =============================================================================

// NewModuleGenerationError wraps a generator failure for moduleID.
func NewModuleGenerationError(moduleID string, err error) *ModuleGenerationError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ModuleGenerationError{ModuleID: moduleID, Message: msg, Err: err}
}

// NewAnalyzerFailure records a failed analyzer run with a timestamp.
func NewAnalyzerFailure(section, analyzer string, cause error, panicked bool, at time.Time) *AnalyzerFailure {
	return &AnalyzerFailure{
		Section:  section,
		Analyzer: analyzer,
		Cause:    cause,
		Panicked: panicked,
		At:       at,
	}
}

// cancelled wraps a context error so callers can match both the run sentinel
// and the original cause.
func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrRunCancelled, cause)
}
