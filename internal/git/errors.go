package git

import "fmt"

// GitError is the single error type every adapter operation fails with
// (spec.md §4.C: "All operations fail with a single GitError{command,
// stderr}").
type GitError struct {
	Command string
	Stderr  string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s: %s", e.Command, e.Stderr)
}

// IsGitError reports whether err is a GitError.
func IsGitError(err error) bool {
	_, ok := err.(*GitError)
	return ok
}
