package scheduler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/statemachine"
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

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644))
	run("add", "README.md")
	run("commit", "-m", "initial")
	return dir
}

// newSlot creates a worktree backing a new slot so Assign's branch
// checkout/create calls have a real working tree to operate on.
func newSlot(t *testing.T, s *store.Store, g *git.Adapter, projectID, repo, name string) *store.Slot {
	t.Helper()
	ctx := context.Background()
	wtPath := filepath.Join(t.TempDir(), name)
	require.NoError(t, g.AddWorktree(ctx, repo, wtPath, "slot-"+name, "main"))
	require.NoError(t, g.CheckoutBranch(ctx, wtPath, "main"))
	slot, err := s.CreateSlot(projectID, name, wtPath)
	require.NoError(t, err)
	return slot
}

func TestScheduleUnderCap(t *testing.T) {
	s := setupTestDB(t)
	g := git.NewAdapter()
	repo := initRepo(t)
	ctx := context.Background()

	proj, err := s.CreateProject("demo", repo, "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(proj.ID, "Plan", "", "main")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := s.CreateTask(store.CreateTaskInput{
			PlanID: plan.ID, Title: "task", Status: store.TaskStatusReady, Level: 0,
		})
		require.NoError(t, err)
	}

	newSlot(t, s, g, proj.ID, repo, "slot1")
	newSlot(t, s, g, proj.ID, repo, "slot2")

	sched := New(s, g)
	st, err := sched.Initialise(ctx, plan.ID)
	require.NoError(t, err)

	batch, err := sched.NextBatch(ctx, st, proj.ID, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, sched.Assign(ctx, st, proj.ID, batch))

	slots, err := s.ListAvailableSlots(proj.ID)
	require.NoError(t, err)
	require.Len(t, slots, 0)

	remaining, err := sched.NextBatch(ctx, st, proj.ID, 2)
	require.NoError(t, err)
	require.Len(t, remaining, 0) // no slots left, even though 2 tasks remain ready
}

func TestAssignStartCompleteUnblocksDependent(t *testing.T) {
	s := setupTestDB(t)
	g := git.NewAdapter()
	repo := initRepo(t)
	ctx := context.Background()

	proj, err := s.CreateProject("demo", repo, "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(proj.ID, "Plan", "", "main")
	require.NoError(t, err)

	a, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "A", Status: store.TaskStatusReady, Level: 0})
	require.NoError(t, err)
	b, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "B", Status: store.TaskStatusPending, Level: 1})
	require.NoError(t, err)
	require.NoError(t, s.AddTaskDependency(b.ID, a.ID))

	newSlot(t, s, g, proj.ID, repo, "slot1")

	sched := New(s, g)
	st, err := sched.Initialise(ctx, plan.ID)
	require.NoError(t, err)

	batch, err := sched.NextBatch(ctx, st, proj.ID, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, a.ID, batch[0].TaskID)

	require.NoError(t, sched.Assign(ctx, st, proj.ID, batch))
	require.NoError(t, sched.Start(st, a.ID))
	require.NoError(t, sched.MarkPRCreated(st, a.ID))

	require.NoError(t, s.TransitionTaskStatus(a.ID, store.TaskStatusPRCreated, store.TaskStatusInReview))

	_, err = s.CreatePullRequest(a.ID, 1, "https://example.com/pr/1", store.PRStatusMerged, "main", "feature/a")
	require.NoError(t, err)

	require.NoError(t, sched.Complete(st, a.ID, false))

	require.False(t, sched.IsComplete(st))

	slot, err := s.GetSlotByID(batch[0].SlotID)
	require.NoError(t, err)
	require.Equal(t, store.SlotStatusAvailable, slot.Status)
	require.False(t, slot.TaskID.Valid)

	next, err := sched.NextBatch(ctx, st, proj.ID, 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, b.ID, next[0].TaskID)

	progress := sched.Progress(st)
	require.Equal(t, 1, progress.Completed)
	require.Equal(t, 2, progress.Total)
}

func TestCompleteRequiresMergedPRUnlessForced(t *testing.T) {
	s := setupTestDB(t)
	g := git.NewAdapter()
	repo := initRepo(t)
	ctx := context.Background()

	proj, err := s.CreateProject("demo", repo, "main")
	require.NoError(t, err)
	plan, err := s.CreatePlan(proj.ID, "Plan", "", "main")
	require.NoError(t, err)
	a, err := s.CreateTask(store.CreateTaskInput{PlanID: plan.ID, Title: "A", Status: store.TaskStatusReady, Level: 0})
	require.NoError(t, err)
	newSlot(t, s, g, proj.ID, repo, "slot1")

	sched := New(s, g)
	st, err := sched.Initialise(ctx, plan.ID)
	require.NoError(t, err)

	batch, err := sched.NextBatch(ctx, st, proj.ID, 1)
	require.NoError(t, err)
	require.NoError(t, sched.Assign(ctx, st, proj.ID, batch))
	require.NoError(t, sched.Start(st, a.ID))
	require.NoError(t, sched.MarkPRCreated(st, a.ID))
	require.NoError(t, s.TransitionTaskStatus(a.ID, store.TaskStatusPRCreated, store.TaskStatusInReview))

	err = sched.Complete(st, a.ID, false)
	require.Error(t, err)
	require.True(t, statemachine.IsPRRequired(err))

	task, err := s.GetTaskByID(a.ID)
	require.NoError(t, err)
	require.Equal(t, store.TaskStatusInReview, task.Status)

	require.NoError(t, sched.Complete(st, a.ID, true))

	slot, err := s.GetSlotByID(batch[0].SlotID)
	require.NoError(t, err)
	require.Equal(t, store.SlotStatusAvailable, slot.Status)
}

func TestBranchNameFormat(t *testing.T) {
	name := BranchName("plan_01ARZ3NDEKTSV4RRFFQ69G5FAV", "task_01ARZ3NDEKTSV4RRFFQ69G5FAW", "Add OAuth Login Flow!!!")
	require.Contains(t, name, "feature/")
	require.Contains(t, name, "add-oauth-login-flow")
}

func TestSlugifyTruncatesAndTrims(t *testing.T) {
	slug := slugify("  ---Some Very Long Title That Exceeds Thirty Characters For Sure---  ")
	require.LessOrEqual(t, len(slug), 30)
	require.NotContains(t, slug, " ")
}
