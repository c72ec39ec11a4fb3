// Package query implements the read-only projections shared by the CLI
// and the MCP server (spec.md §4.H): pure functions over a store snapshot,
// never mutating it. Every lookup accepts an identity prefix (spec.md
// §4.B) and reports AmbiguousError/NotFoundError rather than guessing.
package query

import (
	"github.com/taskctl/taskctl/internal/store"
)

// Progress is the {total, completed, in_progress, pending, percent} tuple
// spec.md §4.H requires on every plan projection.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"in_progress"`
	Pending    int     `json:"pending"`
	Percent    float64 `json:"percent"`
}

func computeProgress(tasks []*store.Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case store.TaskStatusCompleted:
			p.Completed++
		case store.TaskStatusAssigned, store.TaskStatusInProgress, store.TaskStatusPRCreated, store.TaskStatusInReview:
			p.InProgress++
		default:
			p.Pending++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// TaskView is a task projected for display: level/status/branch/session
// are always included, matching spec.md §4.H's plan_with_progress shape.
type TaskView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Level      int64  `json:"level"`
	BranchName string `json:"branch_name,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

func taskView(t *store.Task) TaskView {
	v := TaskView{ID: t.ID, Title: t.Title, Status: t.Status, Level: t.Level}
	if t.BranchName.Valid {
		v.BranchName = t.BranchName.String
	}
	if t.SessionID.Valid {
		v.SessionID = t.SessionID.String
	}
	return v
}

// EdgeView is one dependency edge rendered for display.
type EdgeView struct {
	TaskID      string `json:"task_id"`
	DependsOnID string `json:"depends_on_id"`
}

// PlanWithProgress is spec.md §4.H's plan_with_progress(plan_id) result.
type PlanWithProgress struct {
	Plan     *store.Plan `json:"plan"`
	Tasks    []TaskView  `json:"tasks"`
	Edges    []EdgeView  `json:"edges"`
	Progress Progress    `json:"progress"`
}

// Surface wraps a store with the read projections spec.md §4.H names. It
// holds no state of its own beyond the store reference, so results are
// always a pure function of the current snapshot (spec.md §9: "callers
// must not cache results across invocations").
type Surface struct {
	store *store.Store
}

// New returns a query surface over s.
func New(s *store.Store) *Surface {
	return &Surface{store: s}
}

func (q *Surface) resolvePlan(prefix string) (*store.Plan, error) {
	full, err := q.store.FindByPrefix("plan", prefix)
	if err != nil {
		return nil, err
	}
	return q.store.GetPlanByID(full)
}

func (q *Surface) resolveTask(prefix string) (*store.Task, error) {
	full, err := q.store.FindByPrefix("task", prefix)
	if err != nil {
		return nil, err
	}
	return q.store.GetTaskByID(full)
}

// PlanWithProgress implements spec.md §4.H plan_with_progress.
func (q *Surface) PlanWithProgress(planPrefix string) (*PlanWithProgress, error) {
	plan, err := q.resolvePlan(planPrefix)
	if err != nil {
		return nil, err
	}

	tasks, err := q.store.ListTasksByPlan(plan.ID)
	if err != nil {
		return nil, err
	}
	edges, err := q.store.ListDependencyEdges(plan.ID)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView(t))
	}
	edgeViews := make([]EdgeView, 0, len(edges))
	for _, e := range edges {
		edgeViews = append(edgeViews, EdgeView{TaskID: e.TaskID, DependsOnID: e.DependsOnID})
	}

	return &PlanWithProgress{
		Plan:     plan,
		Tasks:    views,
		Edges:    edgeViews,
		Progress: computeProgress(tasks),
	}, nil
}

// NeighbourTask is a dependency/dependent rendered in a task's neighbour
// set: {id, title, status} per spec.md §4.H.
type NeighbourTask struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func neighbourTask(t *store.Task) NeighbourTask {
	return NeighbourTask{ID: t.ID, Title: t.Title, Status: t.Status}
}

// TaskWithNeighbours is spec.md §4.H's task_with_neighbours(task_id) result.
type TaskWithNeighbours struct {
	Task         *store.Task        `json:"task"`
	Dependencies []NeighbourTask    `json:"dependencies"`
	Dependents   []NeighbourTask    `json:"dependents"`
	PR           *store.PullRequest `json:"pr,omitempty"`
	Plan         *store.Plan        `json:"plan"`
}

// TaskWithNeighbours implements spec.md §4.H task_with_neighbours.
func (q *Surface) TaskWithNeighbours(taskPrefix string) (*TaskWithNeighbours, error) {
	task, err := q.resolveTask(taskPrefix)
	if err != nil {
		return nil, err
	}

	plan, err := q.store.GetPlanByID(task.PlanID)
	if err != nil {
		return nil, err
	}

	deps, err := q.store.GetDependencies(task.ID)
	if err != nil {
		return nil, err
	}
	dependents, err := q.store.GetDependents(task.ID)
	if err != nil {
		return nil, err
	}

	depViews := make([]NeighbourTask, 0, len(deps))
	for _, d := range deps {
		depViews = append(depViews, neighbourTask(d))
	}
	dependentViews := make([]NeighbourTask, 0, len(dependents))
	for _, d := range dependents {
		dependentViews = append(dependentViews, neighbourTask(d))
	}

	var pr *store.PullRequest
	if p, err := q.store.GetPullRequestByTask(task.ID); err == nil {
		pr = p
	} else if !store.IsNotFound(err) {
		return nil, err
	}

	return &TaskWithNeighbours{
		Task:         task,
		Dependencies: depViews,
		Dependents:   dependentViews,
		PR:           pr,
		Plan:         plan,
	}, nil
}

// CurrentTask implements spec.md §4.H current_task(branch_name?, session_id?):
// located by session first, then branch; nil if neither matches (spec.md
// §8 scenario 6).
func (q *Surface) CurrentTask(branch, sessionID string) (*TaskWithNeighbours, error) {
	var task *store.Task
	var err error

	if sessionID != "" {
		task, err = q.store.GetTaskBySessionID(sessionID)
		if err != nil && !store.IsNotFound(err) {
			return nil, err
		}
	}
	if task == nil && branch != "" {
		task, err = q.store.GetTaskByBranchName(branch)
		if err != nil && !store.IsNotFound(err) {
			return nil, err
		}
	}
	if task == nil {
		return nil, nil
	}
	return q.TaskWithNeighbours(task.ID)
}

// ListTasksFilter mirrors store.TaskFilter but accepts identity prefixes,
// matching spec.md §4.H's list_tasks({plan_id?, status?, level?}).
type ListTasksFilter struct {
	PlanID string
	Status string
	Level  *int64
}

// ListTasks implements spec.md §4.H list_tasks.
func (q *Surface) ListTasks(f ListTasksFilter) ([]TaskView, error) {
	filter := store.TaskFilter{Status: f.Status, Level: f.Level}
	if f.PlanID != "" {
		plan, err := q.resolvePlan(f.PlanID)
		if err != nil {
			return nil, err
		}
		filter.PlanID = plan.ID
	}

	tasks, err := q.store.ListTasksFiltered(filter)
	if err != nil {
		return nil, err
	}
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskView(t))
	}
	return out, nil
}

// ListPlans implements spec.md §4.H list_plans({status?}).
func (q *Surface) ListPlans(status string) ([]*store.Plan, error) {
	return q.store.ListPlans(status)
}
