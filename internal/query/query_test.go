package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskctl/taskctl/internal/store"
)

func setupTestDB(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taskctl.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedDiamond builds the A -> {B, C} -> D diamond from spec.md §8.
func seedDiamond(t *testing.T, s *store.Store) (plan *store.Plan, ids map[string]string) {
	t.Helper()
	project, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	plan, err = s.CreatePlan(project.ID, "Diamond plan", "", "main")
	require.NoError(t, err)

	levels := map[string]int64{"A": 0, "B": 1, "C": 1, "D": 2}
	ids = map[string]string{}
	for _, name := range []string{"A", "B", "C", "D"} {
		task, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: name, Status: store.TaskStatusPending, Level: levels[name]})
		require.NoError(t, err)
		ids[name] = task.ID
	}
	require.NoError(t, s.AddTaskDependency(ids["B"], ids["A"]))
	require.NoError(t, s.AddTaskDependency(ids["C"], ids["A"]))
	require.NoError(t, s.AddTaskDependency(ids["D"], ids["B"]))
	require.NoError(t, s.AddTaskDependency(ids["D"], ids["C"]))
	return plan, ids
}

func TestPlanWithProgressEmptyPlan(t *testing.T) {
	s := setupTestDB(t)
	project, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(project.ID, "Empty", "", "main")
	require.NoError(t, err)

	q := New(s)
	result, err := q.PlanWithProgress(plan.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Tasks)
	assert.Empty(t, result.Edges)
	assert.Equal(t, float64(0), result.Progress.Percent)
}

func TestPlanWithProgressAcceptsPrefix(t *testing.T) {
	s := setupTestDB(t)
	plan, _ := seedDiamond(t, s)

	q := New(s)
	result, err := q.PlanWithProgress(plan.ID[:10])
	require.NoError(t, err)
	assert.Len(t, result.Tasks, 4)
	assert.Len(t, result.Edges, 4)
}

func TestPlanWithProgressAmbiguousPrefix(t *testing.T) {
	s := setupTestDB(t)
	project, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	_, err = s.CreatePlan(project.ID, "Plan A", "", "main")
	require.NoError(t, err)
	_, err = s.CreatePlan(project.ID, "Plan B", "", "main")
	require.NoError(t, err)

	q := New(s)
	_, err = q.PlanWithProgress("")
	require.Error(t, err)
	assert.True(t, store.IsAmbiguous(err))
}

func TestTaskWithNeighboursReportsDependenciesAndDependents(t *testing.T) {
	s := setupTestDB(t)
	_, ids := seedDiamond(t, s)

	q := New(s)
	view, err := q.TaskWithNeighbours(ids["D"])
	require.NoError(t, err)
	require.Len(t, view.Dependencies, 2)
	assert.Empty(t, view.Dependents)
	assert.Nil(t, view.PR)

	viewA, err := q.TaskWithNeighbours(ids["A"])
	require.NoError(t, err)
	assert.Empty(t, viewA.Dependencies)
	assert.Len(t, viewA.Dependents, 2)
}

func TestCurrentTaskScenario6(t *testing.T) {
	s := setupTestDB(t)
	project, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(project.ID, "Plan", "", "main")
	require.NoError(t, err)
	task, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "T", Status: store.TaskStatusAssigned})
	require.NoError(t, err)

	_, err = s.Exec(`UPDATE tasks SET branch_name = ?, session_id = ? WHERE id = ?`, "feature/p/t-slug", "ses_x", task.ID)
	require.NoError(t, err)

	q := New(s)

	byBoth, err := q.CurrentTask("other", "ses_x")
	require.NoError(t, err)
	require.NotNil(t, byBoth)
	assert.Equal(t, task.ID, byBoth.Task.ID)

	byBranch, err := q.CurrentTask("feature/p/t-slug", "")
	require.NoError(t, err)
	require.NotNil(t, byBranch)
	assert.Equal(t, task.ID, byBranch.Task.ID)

	none, err := q.CurrentTask("none", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListTasksFilterByLevel(t *testing.T) {
	s := setupTestDB(t)
	plan, _ := seedDiamond(t, s)

	level0 := int64(0)
	q := New(s)
	tasks, err := q.ListTasks(ListTasksFilter{PlanID: plan.ID, Level: &level0})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Title)
}
