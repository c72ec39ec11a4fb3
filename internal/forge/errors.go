package forge

import "fmt"

// ForgeError is the error every adapter operation fails with when the
// underlying `gh` invocation fails (spec.md §4.D, §7).
type ForgeError struct {
	Command string
	Stderr  string
}

func (e *ForgeError) Error() string {
	return fmt.Sprintf("gh %s: %s", e.Command, e.Stderr)
}

// IsForgeError reports whether err is a ForgeError.
func IsForgeError(err error) bool {
	_, ok := err.(*ForgeError)
	return ok
}
