package store

import (
	"database/sql"

	"github.com/taskctl/taskctl/internal/id"
)

// CreatePlan inserts a new plan in draft status.
func (s *Store) CreatePlan(projectID, title, description, sourceBranch string) (*Plan, error) {
	p := &Plan{
		ID:           id.New("plan"),
		ProjectID:    projectID,
		Title:        title,
		SourceBranch: sourceBranch,
		Status:       PlanStatusDraft,
		CreatedAt:    id.NowUTC(),
	}
	if description != "" {
		p.Description = sql.NullString{String: description, Valid: true}
	}

	_, err := s.Exec(
		`INSERT INTO plans (id, project_id, title, description, source_branch, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Title, p.Description, p.SourceBranch, p.Status, p.CreatedAt,
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return nil, &InvalidError{Entity: "plan", Reason: "unknown project_id: " + projectID}
		}
		return nil, &BackendError{Op: "CreatePlan", Err: err}
	}
	return p, nil
}

func scanPlan(row interface {
	Scan(dest ...any) error
}) (*Plan, error) {
	p := &Plan{}
	err := row.Scan(&p.ID, &p.ProjectID, &p.Title, &p.Description, &p.SourceBranch, &p.Status, &p.CreatedAt)
	return p, err
}

// GetPlanByID retrieves a plan by its full identity.
func (s *Store) GetPlanByID(planID string) (*Plan, error) {
	row := s.QueryRow(
		`SELECT id, project_id, title, description, source_branch, status, created_at FROM plans WHERE id = ?`,
		planID,
	)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "plan", ID: planID}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetPlanByID", Err: err}
	}
	return p, nil
}

// ListPlansByProject returns every plan belonging to a project, optionally
// filtered by status.
func (s *Store) ListPlansByProject(projectID, status string) ([]*Plan, error) {
	query := `SELECT id, project_id, title, description, source_branch, status, created_at FROM plans WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, &BackendError{Op: "ListPlansByProject", Err: err}
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, &BackendError{Op: "ListPlansByProject", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPlans returns every plan across every project, optionally filtered
// by status, for the query surface's list_plans({status?}) (spec.md §4.H,
// which has no project_id filter, unlike ListPlansByProject above).
func (s *Store) ListPlans(status string) ([]*Plan, error) {
	query := `SELECT id, project_id, title, description, source_branch, status, created_at FROM plans`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, &BackendError{Op: "ListPlans", Err: err}
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, &BackendError{Op: "ListPlans", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePlanStatus sets a plan's status unconditionally. Transition
// validity is the state machine's responsibility (internal/statemachine),
// not the store's.
func (s *Store) UpdatePlanStatus(planID, status string) error {
	res, err := s.Exec(`UPDATE plans SET status = ? WHERE id = ?`, status, planID)
	if err != nil {
		return &BackendError{Op: "UpdatePlanStatus", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "plan", ID: planID}
	}
	return nil
}

// DeletePlan removes a plan, cascading to its tasks, dependencies and PRs.
func (s *Store) DeletePlan(planID string) error {
	res, err := s.Exec(`DELETE FROM plans WHERE id = ?`, planID)
	if err != nil {
		return &BackendError{Op: "DeletePlan", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "plan", ID: planID}
	}
	return nil
}
