// internal/wizard/errors.go
package wizard

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a stage failure for the caller-facing payload.
type ErrorKind string

const (
	// KindElementNotFound means every lookup strategy was exhausted, or
	// staleness retries ran out at an interaction point.
	KindElementNotFound ErrorKind = "ElementNotFound"
	// KindSelectionError means a searchable-dropdown interaction could not be
	// confirmed.
	KindSelectionError ErrorKind = "SelectionError"
	// KindSessionInit means the browser session could not be created or the
	// initial navigation failed; no stages were attempted.
	KindSessionInit ErrorKind = "SessionInitError"
)

// Sentinel errors for category checks with errors.Is.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrSelection       = errors.New("selection could not be confirmed")
	ErrVerification    = errors.New("stage verification failed")
)

// StageError is the structured failure a halted run surfaces: the stage that
// failed, its category, and a human-readable detail. Detail is never empty.
type StageError struct {
	Stage  string
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %s", e.Stage, e.Kind, e.Detail)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError builds a StageError, deriving the detail from err when none
// is given so the detail invariant holds.
func NewStageError(stage string, kind ErrorKind, detail string, err error) *StageError {
	if detail == "" {
		if err != nil {
			detail = err.Error()
		} else {
			detail = "unspecified failure"
		}
	}
	return &StageError{Stage: stage, Kind: kind, Detail: detail, Err: err}
}

// classifyKind maps an underlying error onto the taxonomy.
func classifyKind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrSelection):
		return KindSelectionError
	default:
		return KindElementNotFound
	}
}
