package store

import "fmt"

// NotFoundError is returned when a lookup by identity or prefix matches no
// row (spec.md §4.B, §7).
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// AmbiguousError is returned by FindByPrefix when two or more rows share a
// prefix (spec.md §4.B).
type AmbiguousError struct {
	Entity  string
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s prefix %q is ambiguous, matches: %v", e.Entity, e.Prefix, e.Matches)
}

// IsAmbiguous reports whether err is an AmbiguousError.
func IsAmbiguous(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}

// ConflictError reports a unique-constraint violation, or a
// compare-and-swap status update that found a status other than the
// expected one (spec.md §7: fatal to the current operation). Foreign-key
// violations are reported as InvalidError, not ConflictError.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	_, ok := err.(*ConflictError)
	return ok
}

// InvalidError wraps a domain-rule violation (e.g. self-dependency, a
// reference to a missing row) that is neither a conflict nor an I/O failure.
type InvalidError struct {
	Entity string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s invalid: %s", e.Entity, e.Reason)
}

// IsInvalid reports whether err is an InvalidError.
func IsInvalid(err error) bool {
	_, ok := err.(*InvalidError)
	return ok
}

// BackendError wraps an underlying storage I/O failure. Per spec.md §7,
// callers that see a BackendError should exit the process with code 3.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("store backend error during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsBackend reports whether err is a BackendError.
func IsBackend(err error) bool {
	_, ok := err.(*BackendError)
	return ok
}
