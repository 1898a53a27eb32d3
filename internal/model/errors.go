package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Trash related errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrTrashItemNotFound = errors.New("trash item not found")

	// ErrStorageUnavailable means the persistence backend was unreachable at
	// engine construction; the engine is running in inert no-op mode.
	ErrStorageUnavailable = errors.New("trash storage unavailable")

	// Session related errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoActiveSession  = errors.New("no active session")
	ErrConflictUnsolved = errors.New("conflict resolution required")

	// Generic errors
	ErrUnauthorized = errors.New("unauthorized")
)

// StepResult records the outcome of one reconciliation step.
type StepResult struct {
	Step string `json:"step"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}

// ReconciliationError reports a restore that removed the item from the trash
// but only partially re-applied it to live state. It is reported, never
// retried: a retry risks double-application.
type ReconciliationError struct {
	TrashID  string
	Category Category
	Steps    []StepResult
	Cause    error
}

func (e *ReconciliationError) Error() string {
	failed := make([]string, 0, len(e.Steps))
	for _, s := range e.Steps {
		if !s.OK {
			failed = append(failed, s.Step)
		}
	}

	msg := fmt.Sprintf("reconciliation failed for %s item %s", e.Category, e.TrashID)
	if len(failed) > 0 {
		msg += " (steps: " + strings.Join(failed, ", ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ReconciliationError) Unwrap() error {
	return e.Cause
}
