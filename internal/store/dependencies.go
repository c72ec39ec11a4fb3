package store

// AddTaskDependency inserts a directed edge taskID -> dependsOnID (task
// depends on dependsOnID). Rejects self-loops and duplicates (spec.md §3
// TaskDependency invariants); cycle rejection itself is the dependency
// graph component's job (internal/graph), not the store's.
func (s *Store) AddTaskDependency(taskID, dependsOnID string) error {
	if taskID == dependsOnID {
		return &InvalidError{Entity: "task_dependency", Reason: "self-dependency: " + taskID}
	}

	_, err := s.Exec(`INSERT INTO task_deps (task_id, depends_on_id) VALUES (?, ?)`, taskID, dependsOnID)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return &ConflictError{Entity: "task_dependency", Reason: "duplicate edge " + taskID + " -> " + dependsOnID}
		}
		if isForeignKeyErr(err) {
			return &InvalidError{Entity: "task_dependency", Reason: "unknown task id in edge " + taskID + " -> " + dependsOnID}
		}
		return &BackendError{Op: "AddTaskDependency", Err: err}
	}
	return nil
}

// RemoveTaskDependency deletes a single edge.
func (s *Store) RemoveTaskDependency(taskID, dependsOnID string) error {
	res, err := s.Exec(`DELETE FROM task_deps WHERE task_id = ? AND depends_on_id = ?`, taskID, dependsOnID)
	if err != nil {
		return &BackendError{Op: "RemoveTaskDependency", Err: err}
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "task_dependency", ID: taskID + " -> " + dependsOnID}
	}
	return nil
}

// GetDependencies returns the tasks that taskID directly depends on
// (spec.md §4.B get_dependencies).
func (s *Store) GetDependencies(taskID string) ([]*Task, error) {
	rows, err := s.Query(
		`SELECT `+selectTaskColumns+` FROM tasks
		 WHERE id IN (SELECT depends_on_id FROM task_deps WHERE task_id = ?)
		 ORDER BY level, id`,
		taskID,
	)
	if err != nil {
		return nil, &BackendError{Op: "GetDependencies", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// GetDependents returns the tasks that directly depend on taskID
// (spec.md §4.B get_dependents).
func (s *Store) GetDependents(taskID string) ([]*Task, error) {
	rows, err := s.Query(
		`SELECT `+selectTaskColumns+` FROM tasks
		 WHERE id IN (SELECT task_id FROM task_deps WHERE depends_on_id = ?)
		 ORDER BY level, id`,
		taskID,
	)
	if err != nil {
		return nil, &BackendError{Op: "GetDependents", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// ListDependencyEdges returns every dependency edge within a plan, used by
// internal/graph to build the DAG.
func (s *Store) ListDependencyEdges(planID string) ([]TaskDependency, error) {
	rows, err := s.Query(
		`SELECT d.task_id, d.depends_on_id FROM task_deps d
		 JOIN tasks t ON t.id = d.task_id
		 WHERE t.plan_id = ?`,
		planID,
	)
	if err != nil {
		return nil, &BackendError{Op: "ListDependencyEdges", Err: err}
	}
	defer rows.Close()

	var out []TaskDependency
	for rows.Next() {
		var d TaskDependency
		if err := rows.Scan(&d.TaskID, &d.DependsOnID); err != nil {
			return nil, &BackendError{Op: "ListDependencyEdges", Err: err}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// IsTaskReady reports whether every dependency of taskID is completed,
// using a NOT EXISTS subquery in the style of the teacher's
// GetTasksReadyToAutoStart (internal/db/tasks.go).
func (s *Store) IsTaskReady(taskID string) (bool, error) {
	var ready bool
	err := s.QueryRow(
		`SELECT NOT EXISTS (
			SELECT 1 FROM task_deps d
			JOIN tasks dep ON dep.id = d.depends_on_id
			WHERE d.task_id = ? AND dep.status != ?
		)`,
		taskID, TaskStatusCompleted,
	).Scan(&ready)
	if err != nil {
		return false, &BackendError{Op: "IsTaskReady", Err: err}
	}
	return ready, nil
}

// ListReadyTasks returns every pending/ready task in a plan whose
// dependencies are all completed, ordered (level, id) per spec.md §4.F.
func (s *Store) ListReadyTasks(planID string) ([]*Task, error) {
	rows, err := s.Query(
		`SELECT `+selectTaskColumns+` FROM tasks t
		 WHERE t.plan_id = ? AND t.status IN (?, ?)
		 AND NOT EXISTS (
			SELECT 1 FROM task_deps d
			JOIN tasks dep ON dep.id = d.depends_on_id
			WHERE d.task_id = t.id AND dep.status != ?
		 )
		 ORDER BY t.level, t.id`,
		planID, TaskStatusPending, TaskStatusReady, TaskStatusCompleted,
	)
	if err != nil {
		return nil, &BackendError{Op: "ListReadyTasks", Err: err}
	}
	defer rows.Close()
	return scanTaskRows(rows)
}
