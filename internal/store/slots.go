package store

import (
	"database/sql"

	"github.com/taskctl/taskctl/internal/id"
)

// CreateSlot registers a new worktree-backed execution slot for a project.
func (s *Store) CreateSlot(projectID, name, path string) (*Slot, error) {
	slot := &Slot{
		ID:        id.New("slot"),
		ProjectID: projectID,
		Name:      name,
		Path:      path,
		Status:    SlotStatusAvailable,
		CreatedAt: id.NowUTC(),
	}

	_, err := s.Exec(
		`INSERT INTO slots (id, project_id, name, path, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.ProjectID, slot.Name, slot.Path, slot.Status, slot.CreatedAt,
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return nil, &InvalidError{Entity: "slot", Reason: "unknown project_id: " + projectID}
		}
		return nil, &BackendError{Op: "CreateSlot", Err: err}
	}
	return slot, nil
}

func scanSlot(row interface{ Scan(dest ...any) error }) (*Slot, error) {
	slot := &Slot{}
	err := row.Scan(&slot.ID, &slot.ProjectID, &slot.Name, &slot.Path, &slot.Branch, &slot.Status, &slot.TaskID, &slot.CreatedAt)
	return slot, err
}

const selectSlotColumns = `id, project_id, name, path, branch, status, task_id, created_at`

// GetSlotByID retrieves a slot by its full identity.
func (s *Store) GetSlotByID(slotID string) (*Slot, error) {
	row := s.QueryRow(`SELECT `+selectSlotColumns+` FROM slots WHERE id = ?`, slotID)
	slot, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "slot", ID: slotID}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetSlotByID", Err: err}
	}
	return slot, nil
}

// ListSlotsByProject returns every slot belonging to a project.
func (s *Store) ListSlotsByProject(projectID string) ([]*Slot, error) {
	rows, err := s.Query(`SELECT `+selectSlotColumns+` FROM slots WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, &BackendError{Op: "ListSlotsByProject", Err: err}
	}
	defer rows.Close()

	var out []*Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, &BackendError{Op: "ListSlotsByProject", Err: err}
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// ListAvailableSlots returns available slots for a project, ordered by
// name (spec.md §4.F: "slots by name").
func (s *Store) ListAvailableSlots(projectID string) ([]*Slot, error) {
	rows, err := s.Query(
		`SELECT `+selectSlotColumns+` FROM slots WHERE project_id = ? AND status = ? ORDER BY name`,
		projectID, SlotStatusAvailable,
	)
	if err != nil {
		return nil, &BackendError{Op: "ListAvailableSlots", Err: err}
	}
	defer rows.Close()

	var out []*Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, &BackendError{Op: "ListAvailableSlots", Err: err}
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// AssignSlot marks a slot assigned to taskID with the given branch. Used
// only inside the single store transaction the scheduler's Assign drives
// (spec.md §4.F, §4.I assignment symmetry).
func (s *Store) AssignSlot(tx *sql.Tx, slotID, taskID, branch string) error {
	res, err := tx.Exec(
		`UPDATE slots SET status = ?, task_id = ?, branch = ? WHERE id = ? AND status = ?`,
		SlotStatusAssigned, taskID, branch, slotID, SlotStatusAvailable,
	)
	if err != nil {
		return &BackendError{Op: "AssignSlot", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &ConflictError{Entity: "slot", Reason: "slot is not available: " + slotID}
	}
	return nil
}

// TransitionSlotStatus performs a compare-and-swap status update, matching
// the teacher's TransitionTaskStatus CAS idiom (internal/db/tasks.go).
func (s *Store) TransitionSlotStatus(slotID, from, to string) error {
	res, err := s.Exec(`UPDATE slots SET status = ? WHERE id = ? AND status = ?`, to, slotID, from)
	if err != nil {
		return &BackendError{Op: "TransitionSlotStatus", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		current, getErr := s.GetSlotByID(slotID)
		if getErr != nil {
			return getErr
		}
		return &ConflictError{Entity: "slot", Reason: "expected status " + from + " but found " + current.Status}
	}
	return nil
}

// TransitionSlotStatusTx is TransitionSlotStatus scoped to a caller's
// transaction, used when a slot's status must advance atomically with
// other store mutations (spec.md §4.I).
func (s *Store) TransitionSlotStatusTx(tx *sql.Tx, slotID, from, to string) error {
	res, err := tx.Exec(`UPDATE slots SET status = ? WHERE id = ? AND status = ?`, to, slotID, from)
	if err != nil {
		return &BackendError{Op: "TransitionSlotStatusTx", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &ConflictError{Entity: "slot", Reason: "expected status " + from + " to transition to " + to}
	}
	return nil
}

// ReleaseSlot clears a slot's task_id and branch and returns it to
// available (spec.md §4.I: "Slot -> available must clear task_id and
// branch").
func (s *Store) ReleaseSlot(slotID string) error {
	res, err := s.Exec(
		`UPDATE slots SET status = ?, task_id = NULL, branch = NULL WHERE id = ?`,
		SlotStatusAvailable, slotID,
	)
	if err != nil {
		return &BackendError{Op: "ReleaseSlot", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "slot", ID: slotID}
	}
	return nil
}

// ReleaseSlotTx is ReleaseSlot scoped to a caller's transaction, used when
// a task's completion and its slot's release must commit atomically
// (spec.md §9 open question: slot release is immediate, not settled).
func (s *Store) ReleaseSlotTx(tx *sql.Tx, slotID string) error {
	res, err := tx.Exec(
		`UPDATE slots SET status = ?, task_id = NULL, branch = NULL WHERE id = ?`,
		SlotStatusAvailable, slotID,
	)
	if err != nil {
		return &BackendError{Op: "ReleaseSlotTx", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "slot", ID: slotID}
	}
	return nil
}
