package store

import "fmt"

// prefixTables maps an entity name to its table and id column, so
// FindByPrefix can be written once and reused for every entity (spec.md
// §4.B: find_by_prefix(entity, prefix)).
var prefixTables = map[string]string{
	"project": "projects",
	"plan":    "plans",
	"task":    "tasks",
	"slot":    "slots",
	"pr":      "prs",
}

// FindByPrefix resolves a short or full identity prefix to the unique
// matching row's full id. It fails with AmbiguousError when two or more
// rows share the prefix, or NotFoundError when none do.
func (s *Store) FindByPrefix(entity, prefix string) (string, error) {
	table, ok := prefixTables[entity]
	if !ok {
		return "", &InvalidError{Entity: entity, Reason: "unknown entity for prefix lookup"}
	}

	rows, err := s.Query(fmt.Sprintf(`SELECT id FROM %s WHERE id LIKE ? || '%%' ORDER BY id`, table), prefix)
	if err != nil {
		return "", &BackendError{Op: "FindByPrefix", Err: err}
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var rowID string
		if err := rows.Scan(&rowID); err != nil {
			return "", &BackendError{Op: "FindByPrefix", Err: err}
		}
		matches = append(matches, rowID)
	}
	if err := rows.Err(); err != nil {
		return "", &BackendError{Op: "FindByPrefix", Err: err}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Entity: entity, ID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Entity: entity, Prefix: prefix, Matches: matches}
	}
}
