package store

import (
	"database/sql"

	"github.com/taskctl/taskctl/internal/id"
)

const selectTaskColumns = `id, plan_id, title, description, status, level, estimated_lines, branch_name, slot_id, session_id, created_at`

func scanTask(row interface{ Scan(dest ...any) error }) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.PlanID, &t.Title, &t.Description, &t.Status, &t.Level,
		&t.EstimatedLines, &t.BranchName, &t.SlotID, &t.SessionID, &t.CreatedAt)
	return t, err
}

// CreateTaskInput is the set of fields the planner/persistence flow
// supplies when inserting a task (spec.md §4.G persistence flow).
type CreateTaskInput struct {
	PlanID         string
	Title          string
	Description    string
	Status         string
	Level          int64
	EstimatedLines int64
}

// CreateTask inserts a new task.
func (s *Store) CreateTask(in CreateTaskInput) (*Task, error) {
	t := &Task{
		ID:          id.New("task"),
		PlanID:      in.PlanID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Level:       in.Level,
		CreatedAt:   id.NowUTC(),
	}
	if in.EstimatedLines > 0 {
		t.EstimatedLines = sql.NullInt64{Int64: in.EstimatedLines, Valid: true}
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}

	_, err := s.Exec(
		`INSERT INTO tasks (id, plan_id, title, description, status, level, estimated_lines, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PlanID, t.Title, t.Description, t.Status, t.Level, t.EstimatedLines, t.CreatedAt,
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return nil, &InvalidError{Entity: "task", Reason: "unknown plan_id: " + in.PlanID}
		}
		return nil, &BackendError{Op: "CreateTask", Err: err}
	}
	return t, nil
}

// GetTaskByID retrieves a task by its full identity.
func (s *Store) GetTaskByID(taskID string) (*Task, error) {
	row := s.QueryRow(`SELECT `+selectTaskColumns+` FROM tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetTaskByID", Err: err}
	}
	return t, nil
}

// GetTaskByBranchName looks up the task owning a branch (spec.md §4.B,
// backed by idx_tasks_branch_name).
func (s *Store) GetTaskByBranchName(branch string) (*Task, error) {
	row := s.QueryRow(`SELECT `+selectTaskColumns+` FROM tasks WHERE branch_name = ?`, branch)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "task", ID: branch}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetTaskByBranchName", Err: err}
	}
	return t, nil
}

// GetTaskBySessionID looks up the task owning a session id (spec.md §4.B,
// backed by idx_tasks_session_id). Always empty in this build since the
// session slot variant is not implemented (SPEC_FULL.md design note).
func (s *Store) GetTaskBySessionID(sessionID string) (*Task, error) {
	row := s.QueryRow(`SELECT `+selectTaskColumns+` FROM tasks WHERE session_id = ?`, sessionID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "task", ID: sessionID}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetTaskBySessionID", Err: err}
	}
	return t, nil
}

// ListTasksByPlan returns every task in a plan, ordered by (level, id) to
// match the scheduler's deterministic ready ordering (spec.md §4.F).
func (s *Store) ListTasksByPlan(planID string) ([]*Task, error) {
	rows, err := s.Query(`SELECT `+selectTaskColumns+` FROM tasks WHERE plan_id = ? ORDER BY level, id`, planID)
	if err != nil {
		return nil, &BackendError{Op: "ListTasksByPlan", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// ListTasksByStatus returns every task in a plan with the given status.
func (s *Store) ListTasksByStatus(planID, status string) ([]*Task, error) {
	rows, err := s.Query(
		`SELECT `+selectTaskColumns+` FROM tasks WHERE plan_id = ? AND status = ? ORDER BY level, id`,
		planID, status,
	)
	if err != nil {
		return nil, &BackendError{Op: "ListTasksByStatus", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// ListTasksByLevel returns every task in a plan at the given level.
func (s *Store) ListTasksByLevel(planID string, level int64) ([]*Task, error) {
	rows, err := s.Query(
		`SELECT `+selectTaskColumns+` FROM tasks WHERE plan_id = ? AND level = ? ORDER BY id`,
		planID, level,
	)
	if err != nil {
		return nil, &BackendError{Op: "ListTasksByLevel", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// TaskFilter narrows ListTasksFiltered's result set; a zero-value field is
// "unfiltered" (spec.md §4.H list_tasks({plan_id?, status?, level?})).
type TaskFilter struct {
	PlanID string
	Status string
	Level  *int64
}

// ListTasksFiltered returns tasks across every plan, narrowed by whichever
// of TaskFilter's fields are set, backing the query surface's
// list_tasks({plan_id?, status?, level?}).
func (s *Store) ListTasksFiltered(f TaskFilter) ([]*Task, error) {
	query := `SELECT ` + selectTaskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.PlanID != "" {
		query += ` AND plan_id = ?`
		args = append(args, f.PlanID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Level != nil {
		query += ` AND level = ?`
		args = append(args, *f.Level)
	}
	query += ` ORDER BY level, id`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, &BackendError{Op: "ListTasksFiltered", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func scanTaskRows(rows *sql.Rows) ([]*Task, error) {
	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &BackendError{Op: "scanTaskRows", Err: err}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskBranch sets or clears a task's branch_name (spec.md invariant
// 1: set whenever active, cleared on return to pending/ready or on
// completion).
func (s *Store) UpdateTaskBranch(tx *sql.Tx, taskID, branch string) error {
	var val sql.NullString
	if branch != "" {
		val = sql.NullString{String: branch, Valid: true}
	}
	res, err := tx.Exec(`UPDATE tasks SET branch_name = ? WHERE id = ?`, val, taskID)
	if err != nil {
		return &BackendError{Op: "UpdateTaskBranch", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "task", ID: taskID}
	}
	return nil
}

// AssignTaskSlot sets a task's status, branch_name and slot_id inside the
// caller's transaction, compare-and-swapping on the ready status like its
// sibling transition helpers (spec.md §4.F assign, §4.I assignment
// symmetry).
func (s *Store) AssignTaskSlot(tx *sql.Tx, taskID, status, branch, slotID string) error {
	res, err := tx.Exec(
		`UPDATE tasks SET status = ?, branch_name = ?, slot_id = ? WHERE id = ? AND status = ?`,
		status, branch, slotID, taskID, TaskStatusReady,
	)
	if err != nil {
		return &BackendError{Op: "AssignTaskSlot", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &ConflictError{Entity: "task", Reason: "expected status " + TaskStatusReady + ": " + taskID}
	}
	return nil
}

// TransitionTaskStatus performs a compare-and-swap status update: it
// succeeds only if the task's current status matches from, matching the
// teacher's TransitionTaskStatus (internal/db/tasks.go).
func (s *Store) TransitionTaskStatus(taskID, from, to string) error {
	res, err := s.Exec(`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`, to, taskID, from)
	if err != nil {
		return &BackendError{Op: "TransitionTaskStatus", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		current, getErr := s.GetTaskByID(taskID)
		if getErr != nil {
			return getErr
		}
		return &ConflictError{Entity: "task", Reason: "expected status " + from + " but found " + current.Status}
	}
	return nil
}

// TransitionTaskStatusTx is TransitionTaskStatus scoped to a caller's
// transaction, used when task/slot/PR updates must commit atomically.
func (s *Store) TransitionTaskStatusTx(tx *sql.Tx, taskID, from, to string) error {
	res, err := tx.Exec(`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`, to, taskID, from)
	if err != nil {
		return &BackendError{Op: "TransitionTaskStatusTx", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &ConflictError{Entity: "task", Reason: "expected status " + from + " for task " + taskID}
	}
	return nil
}

// ClearTaskSlot clears a task's slot_id and branch_name, used when a task
// completes and its slot is released (spec.md invariant 1 & 2).
func (s *Store) ClearTaskSlot(tx *sql.Tx, taskID string) error {
	res, err := tx.Exec(`UPDATE tasks SET slot_id = NULL, branch_name = NULL WHERE id = ?`, taskID)
	if err != nil {
		return &BackendError{Op: "ClearTaskSlot", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "task", ID: taskID}
	}
	return nil
}

// DeleteTask removes a task, first cascading to its dependency edges
// (teacher's internal/db/tasks.go DeleteTask deletes edges before the
// row; the FK ON DELETE CASCADE here makes that automatic, but we keep
// the explicit edge delete for clarity and to work with stores running
// foreign_keys=OFF).
func (s *Store) DeleteTask(taskID string) error {
	tx, err := s.Begin()
	if err != nil {
		return &BackendError{Op: "DeleteTask", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM task_deps WHERE task_id = ? OR depends_on_id = ?`, taskID, taskID); err != nil {
		return &BackendError{Op: "DeleteTask", Err: err}
	}

	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, taskID)
	if err != nil {
		return &BackendError{Op: "DeleteTask", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "task", ID: taskID}
	}

	if err := tx.Commit(); err != nil {
		return &BackendError{Op: "DeleteTask", Err: err}
	}
	return nil
}
