package report

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrVersionConflict marks a version-number allocation race. The
// generator retries it transparently; the store wraps the underlying
// unique violation with it.
var ErrVersionConflict = errors.New("report card version conflict")

// ErrAlreadyReleased is returned when releasing a version that is not
// in DRAFT.
var ErrAlreadyReleased = errors.New("version already released")

// ErrNotFound is returned by store lookups for missing rows.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the actor's role does not allow the
// operation.
var ErrForbidden = errors.New("forbidden")

// ConfigurationError aborts generation for the whole class/term until
// the school's policy is fixed.
type ConfigurationError struct {
	SchoolID uuid.UUID
	Stage    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("results configuration invalid (school %s, %s): %s", e.SchoolID, e.Stage, e.Reason)
}

// PersistenceError wraps store failures other than the expected version
// race. Fatal: no partial version is left committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GenerationError carries enough context for an operator retry after
// correction.
type GenerationError struct {
	StudentID uuid.UUID
	TermID    uuid.UUID
	Stage     string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate report card (student %s, term %s, stage %s): %v", e.StudentID, e.TermID, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Warning is a non-fatal configuration finding recorded on the run,
// e.g. a shared grade-band boundary.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warnings collects warnings across one generation run.
type Warnings struct {
	items []Warning
}

func (w *Warnings) Add(code, format string, args ...any) {
	if w == nil {
		return
	}
	w.items = append(w.items, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (w *Warnings) Items() []Warning {
	if w == nil {
		return nil
	}
	return w.items
}
