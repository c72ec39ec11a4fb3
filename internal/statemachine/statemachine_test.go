package statemachine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskctl/taskctl/internal/store"
)

func setupTestDB(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "taskctl.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestValidateTaskTransitionTable(t *testing.T) {
	require.NoError(t, ValidateTaskTransition(store.TaskStatusPending, store.TaskStatusReady))
	require.NoError(t, ValidateTaskTransition(store.TaskStatusReady, store.TaskStatusAssigned))
	err := ValidateTaskTransition(store.TaskStatusPending, store.TaskStatusCompleted)
	require.Error(t, err)
	require.True(t, IsInvalidTransition(err))
}

func TestGuardReadyTaskRequiresCompletedDeps(t *testing.T) {
	s := setupTestDB(t)
	proj, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(proj.ID, "Plan", "", "main")
	require.NoError(t, err)

	a, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "A", Status: store.TaskStatusReady})
	require.NoError(t, err)
	b, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "B", Status: store.TaskStatusPending})
	require.NoError(t, err)
	require.NoError(t, s.AddTaskDependency(b.ID, a.ID))

	g := NewGuard(s)

	err = g.ReadyTask(b.ID)
	require.Error(t, err)
	var depErr *DependencyUnmetError
	require.ErrorAs(t, err, &depErr)

	require.NoError(t, s.TransitionTaskStatus(a.ID, store.TaskStatusReady, store.TaskStatusCompleted))
	require.NoError(t, g.ReadyTask(b.ID))
}

func TestGuardCompleteTaskRequiresMergedPR(t *testing.T) {
	s := setupTestDB(t)
	proj, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(proj.ID, "Plan", "", "main")
	require.NoError(t, err)
	task, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "A", Status: store.TaskStatusInReview})
	require.NoError(t, err)

	g := NewGuard(s)

	err = g.CompleteTask(task.ID, false)
	require.Error(t, err)
	require.True(t, IsPRRequired(err))

	require.NoError(t, g.CompleteTask(task.ID, true))
}

func TestGuardCompleteTaskWithMergedPR(t *testing.T) {
	s := setupTestDB(t)
	proj, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(proj.ID, "Plan", "", "main")
	require.NoError(t, err)
	task, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "A", Status: store.TaskStatusInReview})
	require.NoError(t, err)
	_, err = s.CreatePullRequest(task.ID, 1, "https://example.com/pr/1", store.PRStatusMerged, "main", "feature/x")
	require.NoError(t, err)

	g := NewGuard(s)
	require.NoError(t, g.CompleteTask(task.ID, false))
}
