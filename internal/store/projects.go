package store

import (
	"database/sql"
	"fmt"

	"github.com/taskctl/taskctl/internal/id"
)

// CreateProject inserts a new project, generating its identity.
func (s *Store) CreateProject(name, repoPath, mainBranch string) (*Project, error) {
	p := &Project{
		ID:         id.New("project"),
		Name:       name,
		RepoPath:   repoPath,
		MainBranch: mainBranch,
		CreatedAt:  id.NowUTC(),
	}
	if p.MainBranch == "" {
		p.MainBranch = "main"
	}

	_, err := s.Exec(
		`INSERT INTO projects (id, name, repo_path, main_branch, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.RepoPath, p.MainBranch, p.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, &ConflictError{Entity: "project", Reason: fmt.Sprintf("repo_path already managed: %s", repoPath)}
		}
		return nil, &BackendError{Op: "CreateProject", Err: err}
	}
	return p, nil
}

// GetProjectByID retrieves a project by its full identity.
func (s *Store) GetProjectByID(projectID string) (*Project, error) {
	p := &Project{}
	err := s.QueryRow(
		`SELECT id, name, repo_path, remote_url, main_branch, max_concurrency, created_at FROM projects WHERE id = ?`,
		projectID,
	).Scan(&p.ID, &p.Name, &p.RepoPath, &p.RemoteURL, &p.MainBranch, &p.MaxConcurrency, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "project", ID: projectID}
	}
	if err != nil {
		return nil, &BackendError{Op: "GetProjectByID", Err: err}
	}
	return p, nil
}

// ListProjects returns every managed project.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.Query(
		`SELECT id, name, repo_path, remote_url, main_branch, max_concurrency, created_at FROM projects ORDER BY created_at`,
	)
	if err != nil {
		return nil, &BackendError{Op: "ListProjects", Err: err}
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.RepoPath, &p.RemoteURL, &p.MainBranch, &p.MaxConcurrency, &p.CreatedAt); err != nil {
			return nil, &BackendError{Op: "ListProjects", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetProjectMaxConcurrency updates a project's slot concurrency cap.
func (s *Store) SetProjectMaxConcurrency(projectID string, max int64) error {
	res, err := s.Exec(`UPDATE projects SET max_concurrency = ? WHERE id = ?`, max, projectID)
	if err != nil {
		return &BackendError{Op: "SetProjectMaxConcurrency", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "project", ID: projectID}
	}
	return nil
}

// DeleteProject removes a project, cascading to its plans and slots
// (spec.md §4.B cascade policy).
func (s *Store) DeleteProject(projectID string) error {
	res, err := s.Exec(`DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return &BackendError{Op: "DeleteProject", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "project", ID: projectID}
	}
	return nil
}
