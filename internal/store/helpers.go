package store

import "strings"

// isUniqueConstraintErr reports whether err came from a UNIQUE constraint
// violation. modernc.org/sqlite surfaces these as plain string-formatted
// errors rather than a typed sentinel, so this matches on message content
// the same way the teacher's code treats CombinedOutput text.
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyErr reports whether err came from a FOREIGN KEY constraint
// violation.
func isForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
