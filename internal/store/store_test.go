package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a temp-file sqlite store and runs migrations, matching
// the teacher's setupTestDB helper convention used across internal/db's
// _test.go files.
func setupTestDB(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taskctl.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustProject(t *testing.T, s *Store) *Project {
	t.Helper()
	p, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	return p
}

func mustPlan(t *testing.T, s *Store, projectID string) *Plan {
	t.Helper()
	p, err := s.CreatePlan(projectID, "Demo plan", "", "main")
	require.NoError(t, err)
	return p
}

func TestOpenAcquiresExclusiveLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "taskctl.db")
	first, err := Open(dbPath)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(dbPath)
	require.Error(t, err)
}

func TestProjectCRUD(t *testing.T) {
	s := setupTestDB(t)

	p, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "")
	require.NoError(t, err)
	require.Equal(t, "main", p.MainBranch)

	got, err := s.GetProjectByID(p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)

	_, err = s.GetProjectByID("project_doesnotexist")
	require.True(t, IsNotFound(err))
}

func TestPlanAndTaskLifecycle(t *testing.T) {
	s := setupTestDB(t)
	proj := mustProject(t, s)
	plan := mustPlan(t, s, proj.ID)

	t1, err := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "t1", Status: TaskStatusReady, Level: 0})
	require.NoError(t, err)
	t2, err := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "t2", Status: TaskStatusPending, Level: 1})
	require.NoError(t, err)

	require.NoError(t, s.AddTaskDependency(t2.ID, t1.ID))

	deps, err := s.GetDependencies(t2.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	require.Equal(t, t1.ID, deps[0].ID)

	dependents, err := s.GetDependents(t1.ID)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	require.Equal(t, t2.ID, dependents[0].ID)

	ready, err := s.IsTaskReady(t2.ID)
	require.NoError(t, err)
	require.False(t, ready)

	require.NoError(t, s.TransitionTaskStatus(t1.ID, TaskStatusReady, TaskStatusCompleted))

	ready, err = s.IsTaskReady(t2.ID)
	require.NoError(t, err)
	require.True(t, ready)
}

func TestAddTaskDependencyRejectsSelfLoop(t *testing.T) {
	s := setupTestDB(t)
	proj := mustProject(t, s)
	plan := mustPlan(t, s, proj.ID)
	task, err := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "solo"})
	require.NoError(t, err)

	err = s.AddTaskDependency(task.ID, task.ID)
	require.True(t, IsInvalid(err))
}

func TestAddTaskDependencyRejectsDuplicate(t *testing.T) {
	s := setupTestDB(t)
	proj := mustProject(t, s)
	plan := mustPlan(t, s, proj.ID)
	a, err := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "a"})
	require.NoError(t, err)
	b, err := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.AddTaskDependency(a.ID, b.ID))
	err = s.AddTaskDependency(a.ID, b.ID)
	require.True(t, IsConflict(err))
}

func TestTransitionTaskStatusIsCAS(t *testing.T) {
	s := setupTestDB(t)
	proj := mustProject(t, s)
	plan := mustPlan(t, s, proj.ID)
	task, err := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "x", Status: TaskStatusReady})
	require.NoError(t, err)

	err = s.TransitionTaskStatus(task.ID, TaskStatusPending, TaskStatusAssigned)
	require.True(t, IsConflict(err))

	require.NoError(t, s.TransitionTaskStatus(task.ID, TaskStatusReady, TaskStatusAssigned))
}

func TestFindByPrefix(t *testing.T) {
	s := setupTestDB(t)
	proj := mustProject(t, s)

	got, err := s.FindByPrefix("project", proj.ID[:len("project_")+4])
	require.NoError(t, err)
	require.Equal(t, proj.ID, got)

	_, err = s.FindByPrefix("project", "project_zzzzzzzzzzzz")
	require.True(t, IsNotFound(err))
}

func TestFindByPrefixAmbiguous(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.Exec(`INSERT INTO projects (id, name, repo_path, main_branch, created_at) VALUES (?, ?, ?, ?, ?)`,
		"project_AAAA1111", "one", "/tmp/one", "main", "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	_, err = s.Exec(`INSERT INTO projects (id, name, repo_path, main_branch, created_at) VALUES (?, ?, ?, ?, ?)`,
		"project_AAAA2222", "two", "/tmp/two", "main", "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = s.FindByPrefix("project", "project_AAAA")
	require.True(t, IsAmbiguous(err))
}

func TestListReadyTasksDiamond(t *testing.T) {
	s := setupTestDB(t)
	proj := mustProject(t, s)
	plan := mustPlan(t, s, proj.ID)

	a, _ := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "A", Status: TaskStatusReady, Level: 0})
	b, _ := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "B", Status: TaskStatusPending, Level: 1})
	c, _ := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "C", Status: TaskStatusPending, Level: 1})
	d, _ := s.CreateTask(CreateTaskInput{PlanID: plan.ID, Title: "D", Status: TaskStatusPending, Level: 2})

	require.NoError(t, s.AddTaskDependency(b.ID, a.ID))
	require.NoError(t, s.AddTaskDependency(c.ID, a.ID))
	require.NoError(t, s.AddTaskDependency(d.ID, b.ID))
	require.NoError(t, s.AddTaskDependency(d.ID, c.ID))

	ready, err := s.ListReadyTasks(plan.ID)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	require.Equal(t, a.ID, ready[0].ID)

	require.NoError(t, s.TransitionTaskStatus(a.ID, TaskStatusReady, TaskStatusCompleted))
	require.NoError(t, s.TransitionTaskStatus(b.ID, TaskStatusPending, TaskStatusReady))
	require.NoError(t, s.TransitionTaskStatus(c.ID, TaskStatusPending, TaskStatusReady))

	ready, err = s.ListReadyTasks(plan.ID)
	require.NoError(t, err)
	require.Len(t, ready, 2)
}
