package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDependency matches every *DependencyError.
	ErrDependency = errors.New("dependency unavailable")
	// ErrNoNotifications matches a *DispatchError: not a single notification
	// could be written for a batch.
	ErrNoNotifications = errors.New("no notifications created")
)

// ValidationError reports bad input such as an unknown blood type or
// out-of-range coordinates. Callers must not continue a search after one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a *ValidationError.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DependencyError wraps a failure of the store or a transport.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDependency) hold.
func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

// ItemFailure is the failed outcome for a single donor in a batch.
type ItemFailure struct {
	DonorID string `json:"donor_id"`
	Err     error  `json:"-"`
	Message string `json:"message"`
}

// DispatchError is returned when a dispatch batch produced zero notifications.
// It usually signals a systemic problem such as a schema mismatch.
type DispatchError struct {
	RequestID string
	Failures  []ItemFailure
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dispatch for request %s created no notifications (%d failed)", e.RequestID, len(e.Failures))
	if len(e.Failures) > 0 && e.Failures[0].Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Failures[0].Err.Error())
	}
	return b.String()
}

// Is makes errors.Is(err, ErrNoNotifications) hold.
func (e *DispatchError) Is(target error) bool { return target == ErrNoNotifications }
