package pipeline

import (
	"fmt"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/pkg/errors"
)

var (
	// ErrNoResults means every search query came back empty.
	ErrNoResults = errors.New("no search results")
	// ErrNoContent means no search result yielded extractable page text.
	ErrNoContent = errors.New("no extractable content")
)

// StepError records which pipeline step failed.
type StepError struct {
	Step models.Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep lets callers recover the step without importing this package.
func (e *StepError) FailedStep() models.Step { return e.Step }

// CollaboratorError wraps a failure from an external search, extraction or LLM service.
type CollaboratorError struct {
	Collaborator string
	Retryable    bool
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Transient reports whether retrying the call may succeed.
func (e *CollaboratorError) Transient() bool { return e.Retryable }

// Transient marks err as a retryable collaborator failure (network, timeout, throttling).
func Transient(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Retryable: true, Err: err}
}

// Permanent marks err as a terminal collaborator failure (auth, quota, bad input).
func Permanent(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Retryable: false, Err: err}
}

// IsTransient walks the error chain looking for a retryable collaborator failure.
func IsTransient(err error) bool {
	var te interface{ Transient() bool }
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}
