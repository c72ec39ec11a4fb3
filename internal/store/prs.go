package store

import (
	"database/sql"

	"github.com/taskctl/taskctl/internal/id"
)

const selectPRColumns = `id, task_id, number, url, status, base_branch, head_branch, created_at`

func scanPR(row interface{ Scan(dest ...any) error }) (*PullRequest, error) {
	p := &PullRequest{}
	err := row.Scan(&p.ID, &p.TaskID, &p.Number, &p.URL, &p.Status, &p.BaseBranch, &p.HeadBranch, &p.CreatedAt)
	return p, err
}

// CreatePullRequest records a forge-side PR bound 1:1 to a task (spec.md
// §3 invariant 6: head equals the task's branch, base equals the plan's
// source branch).
func (s *Store) CreatePullRequest(taskID string, number int64, url, status, base, head string) (*PullRequest, error) {
	p := &PullRequest{
		ID:         id.New("pr"),
		TaskID:     taskID,
		Number:     number,
		URL:        url,
		Status:     status,
		BaseBranch: base,
		HeadBranch: head,
		CreatedAt:  id.NowUTC(),
	}

	_, err := s.Exec(
		`INSERT INTO prs (id, task_id, number, url, status, base_branch, head_branch, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TaskID, p.Number, p.URL, p.Status, p.BaseBranch, p.HeadBranch, p.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, &ConflictError{Entity: "pr", Reason: "task already has a PR: " + taskID}
		}
		if isForeignKeyErr(err) {
			return nil, &InvalidError{Entity: "pr", Reason: "unknown task_id: " + taskID}
		}
		return nil, &BackendError{Op: "CreatePullRequest", Err: err}
	}
	return p, nil
}

// GetPullRequestByTask retrieves the PR bound to a task, if any.
func (s *Store) GetPullRequestByTask(taskID string) (*PullRequest, error) {
	row := s.QueryRow(`SELECT `+selectPRColumns+` FROM prs WHERE task_id = ?`, taskID)
	p, err := scanPR(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "pr", ID: taskID}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetPullRequestByTask", Err: err}
	}
	return p, nil
}

// UpdatePullRequestStatus stores status unchanged as a PR's status. It does
// no forge -> internal translation; callers pass an internal status.
func (s *Store) UpdatePullRequestStatus(taskID, status string) error {
	res, err := s.Exec(`UPDATE prs SET status = ? WHERE task_id = ?`, status, taskID)
	if err != nil {
		return &BackendError{Op: "UpdatePullRequestStatus", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "pr", ID: taskID}
	}
	return nil
}
