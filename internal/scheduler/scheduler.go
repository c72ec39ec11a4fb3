// Package scheduler is the central coordinator: it computes the ready set
// for a plan, assigns ready tasks onto available slots, and drives the
// task/slot lifecycle forward as work progresses (spec.md §4.F).
package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/graph"
	"github.com/taskctl/taskctl/internal/id"
	"github.com/taskctl/taskctl/internal/statemachine"
	"github.com/taskctl/taskctl/internal/store"
)

// ScheduledTask pairs a ready task with the slot it would run in.
type ScheduledTask struct {
	TaskID string
	SlotID string
	Branch string
}

// State is the scheduler's per-invocation working set, rebuilt by
// Initialise from the store every time (spec.md §4.F: "derivable from the
// store but cached per invocation").
type State struct {
	mu sync.Mutex

	planID       string
	sourceBranch string
	graph        *graph.Graph
	completed    map[string]bool
	inProgress   map[string]bool   // task ids currently assigned/in_progress/pr_created/in_review
	assignment   map[string]string // task id -> slot id
}

// SourceBranch returns the plan's source branch, the base every task's PR
// is opened against (spec.md §3 invariant 6).
func (st *State) SourceBranch() string {
	return st.sourceBranch
}

// PlanID returns the plan this state was initialised for.
func (st *State) PlanID() string {
	return st.planID
}

// Scheduler wires the store and git adapter together to drive plan
// execution, mirroring the teacher's mutex-guarded Scheduler
// (internal/orchestrator/scheduler.go) stripped of its priority heap —
// spec.md §4.F has no priority tier, only a flat (level, id) order.
type Scheduler struct {
	store *store.Store
	git   *git.Adapter
}

// New returns a scheduler over store and git.
func New(s *store.Store, g *git.Adapter) *Scheduler {
	return &Scheduler{store: s, git: g}
}

// Initialise reads a plan's tasks and edges, builds the dependency graph,
// and partitions existing task statuses into completed/in-progress/
// assignment sets (spec.md §4.F initialise). It does not reconcile partial
// state: no status is changed, and a task still ready whose branch already
// exists stays ready until Assign picks it up again.
func (s *Scheduler) Initialise(ctx context.Context, planID string) (*State, error) {
	plan, err := s.store.GetPlanByID(planID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListTasksByPlan(planID)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.ListDependencyEdges(planID)
	if err != nil {
		return nil, err
	}

	nodes := make([]graph.Node, 0, len(tasks))
	for _, t := range tasks {
		nodes = append(nodes, graph.Node{ID: t.ID, Status: t.Status})
	}
	gedges := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		gedges = append(gedges, graph.Edge{Task: e.TaskID, DependsOn: e.DependsOnID})
	}

	g, err := graph.Build(nodes, gedges)
	if err != nil {
		return nil, err
	}

	st := &State{
		planID:       planID,
		sourceBranch: plan.SourceBranch,
		graph:        g,
		completed:    make(map[string]bool),
		inProgress:   make(map[string]bool),
		assignment:   make(map[string]string),
	}

	for _, t := range tasks {
		switch t.Status {
		case store.TaskStatusCompleted:
			st.completed[t.ID] = true
		case store.TaskStatusAssigned, store.TaskStatusInProgress, store.TaskStatusPRCreated, store.TaskStatusInReview:
			st.inProgress[t.ID] = true
			if t.SlotID.Valid {
				st.assignment[t.ID] = t.SlotID.String
			}
		}
	}

	return st, nil
}

// NextBatch computes the ready set minus in-progress tasks, fetches
// available slots, and zips them up to the project's concurrency cap.
// It is a pure function of state and current store snapshot: calling it
// repeatedly without Assign returns the same batch (spec.md §8 round-trip
// law, §4.F "dry run").
func (s *Scheduler) NextBatch(ctx context.Context, st *State, projectID string, maxConcurrent int) ([]ScheduledTask, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	ready := st.graph.Ready(st.completed)
	var candidates []string
	for _, taskID := range ready {
		if st.inProgress[taskID] {
			continue
		}
		candidates = append(candidates, taskID)
	}

	slots, err := s.store.ListAvailableSlots(projectID)
	if err != nil {
		return nil, err
	}

	capacity := maxConcurrent - len(st.inProgress)
	if capacity < 0 {
		capacity = 0
	}
	if len(slots) < capacity {
		capacity = len(slots)
	}
	if len(candidates) < capacity {
		capacity = len(candidates)
	}

	batch := make([]ScheduledTask, 0, capacity)
	for i := 0; i < capacity; i++ {
		plan, err := s.store.GetPlanByID(st.planID)
		if err != nil {
			return nil, err
		}
		task, err := s.store.GetTaskByID(candidates[i])
		if err != nil {
			return nil, err
		}
		batch = append(batch, ScheduledTask{
			TaskID: candidates[i],
			SlotID: slots[i].ID,
			Branch: BranchName(plan.ID, task.ID, task.Title),
		})
	}
	return batch, nil
}

// Assign checks out each scheduled task's branch in its slot and, on
// success, persists the slot+task assignment in a single transaction
// (spec.md §4.F assign, §8 "assignment symmetry"). Per-slot git work runs
// concurrently via an errgroup (spec.md §5: "may drive several per-slot
// work items ... in parallel"); every store mutation still flows through
// one transaction per pairing, so read-modify-write races cannot occur
// across pairings either.
func (s *Scheduler) Assign(ctx context.Context, st *State, projectID string, batch []ScheduledTask) error {
	project, err := s.store.GetProjectByID(projectID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sch := range batch {
		sch := sch
		g.Go(func() error {
			return s.assignOne(gctx, st, project, sch)
		})
	}
	return g.Wait()
}

func (s *Scheduler) assignOne(ctx context.Context, st *State, project *store.Project, sch ScheduledTask) error {
	slot, err := s.store.GetSlotByID(sch.SlotID)
	if err != nil {
		return err
	}

	if err := s.checkoutTaskBranch(ctx, slot.Path, project.MainBranch, sch.Branch); err != nil {
		return err
	}

	tx, err := s.store.Begin()
	if err != nil {
		return &store.BackendError{Op: "Assign", Err: err}
	}
	defer tx.Rollback()

	if err := s.store.AssignSlot(tx, sch.SlotID, sch.TaskID, sch.Branch); err != nil {
		return err
	}
	if err := s.store.AssignTaskSlot(tx, sch.TaskID, store.TaskStatusAssigned, sch.Branch, sch.SlotID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &store.BackendError{Op: "Assign", Err: err}
	}

	st.mu.Lock()
	st.inProgress[sch.TaskID] = true
	st.assignment[sch.TaskID] = sch.SlotID
	st.mu.Unlock()
	return nil
}

// checkoutTaskBranch checks out the main branch in the slot, creates the
// task branch from it and checks the task branch out. If the branch cannot
// be created (e.g. it already exists from a previous, partially-completed
// run) it falls back to a plain checkout, first confirming no other task
// already owns that branch (spec.md §5).
func (s *Scheduler) checkoutTaskBranch(ctx context.Context, slotPath, mainBranch, branch string) error {
	if err := s.git.CheckoutBranch(ctx, slotPath, mainBranch); err != nil {
		return err
	}
	if err := s.git.CreateBranch(ctx, slotPath, branch, mainBranch); err != nil {
		if owner, lookupErr := s.store.GetTaskByBranchName(branch); lookupErr == nil && owner != nil {
			return &store.ConflictError{Entity: "task", Reason: "branch already owned by task " + owner.ID}
		}
	}
	return s.git.CheckoutBranch(ctx, slotPath, branch)
}

// Start transitions a task assigned -> in_progress and its slot
// assigned -> in_progress. This is always an explicit caller action, never
// inferred from another event (spec.md §9 open question).
func (s *Scheduler) Start(st *State, taskID string) error {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	if !task.SlotID.Valid {
		return &store.InvalidError{Entity: "task", Reason: "task has no assigned slot: " + taskID}
	}

	if err := s.store.TransitionTaskStatus(taskID, store.TaskStatusAssigned, store.TaskStatusInProgress); err != nil {
		return err
	}
	return s.store.TransitionSlotStatus(task.SlotID.String, store.SlotStatusAssigned, store.SlotStatusInProgress)
}

// MarkPRCreated transitions a task in_progress -> pr_created and its slot
// in_progress -> pr_pending.
func (s *Scheduler) MarkPRCreated(st *State, taskID string) error {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	if !task.SlotID.Valid {
		return &store.InvalidError{Entity: "task", Reason: "task has no assigned slot: " + taskID}
	}

	if err := s.store.TransitionTaskStatus(taskID, store.TaskStatusInProgress, store.TaskStatusPRCreated); err != nil {
		return err
	}
	return s.store.TransitionSlotStatus(task.SlotID.String, store.SlotStatusInProgress, store.SlotStatusPRPending)
}

// Complete moves a task to completed and its slot through completed back
// to available, in one transaction (spec.md §9 open question: slot
// release is immediate, not settled). It requires a merged PR unless
// force is set (spec.md §4.I), enforced by statemachine.Guard before any
// row is touched. The task moves out of in_progress/assignment and into
// completed, so the next NextBatch call sees any newly-unblocked
// dependents.
func (s *Scheduler) Complete(st *State, taskID string, force bool) error {
	if err := statemachine.NewGuard(s.store).CompleteTask(taskID, force); err != nil {
		return err
	}

	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	// Read the slot before Begin: the store holds a single connection, so a
	// non-transactional read while the transaction is open would block.
	var slot *store.Slot
	if task.SlotID.Valid {
		slot, err = s.store.GetSlotByID(task.SlotID.String)
		if err != nil {
			return err
		}
	}

	tx, err := s.store.Begin()
	if err != nil {
		return &store.BackendError{Op: "Complete", Err: err}
	}
	defer tx.Rollback()

	if err := s.store.ClearTaskSlot(tx, taskID); err != nil {
		return err
	}
	if slot != nil {
		if err := s.store.TransitionSlotStatusTx(tx, slot.ID, slot.Status, store.SlotStatusCompleted); err != nil {
			return err
		}
		if err := s.store.ReleaseSlotTx(tx, slot.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return &store.BackendError{Op: "Complete", Err: err}
	}

	st.mu.Lock()
	delete(st.inProgress, taskID)
	delete(st.assignment, taskID)
	st.completed[taskID] = true
	st.mu.Unlock()
	return nil
}

// UpdatePlanProgress moves the plan to completed when every task is
// completed, or to in_progress while any work is active or done.
func (s *Scheduler) UpdatePlanProgress(ctx context.Context, st *State) error {
	st.mu.Lock()
	completed := len(st.completed)
	inProgress := len(st.inProgress)
	totalNodes := completedPlusPendingCount(st)
	st.mu.Unlock()

	switch {
	case completed == totalNodes && totalNodes > 0:
		return s.store.UpdatePlanStatus(st.planID, store.PlanStatusCompleted)
	case inProgress+completed > 0:
		return s.store.UpdatePlanStatus(st.planID, store.PlanStatusInProgress)
	}
	return nil
}

func completedPlusPendingCount(st *State) int {
	count := 0
	for level := 0; level <= st.graph.MaxLevel(); level++ {
		count += len(st.graph.AtLevel(level))
	}
	return count
}

// HasWorkAvailable reports whether any task is ready or in progress.
func (s *Scheduler) HasWorkAvailable(st *State) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.inProgress) > 0 {
		return true
	}
	return len(st.graph.Ready(st.completed)) > 0
}

// IsComplete reports whether every task in the plan is completed.
func (s *Scheduler) IsComplete(st *State) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.completed) == completedPlusPendingCount(st)
}

// Progress reports total/completed/in-progress/pending counts.
type Progress struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
}

func (s *Scheduler) Progress(st *State) Progress {
	st.mu.Lock()
	defer st.mu.Unlock()
	total := completedPlusPendingCount(st)
	completed := len(st.completed)
	inProgress := len(st.inProgress)
	return Progress{
		Total:      total,
		Completed:  completed,
		InProgress: inProgress,
		Pending:    total - completed - inProgress,
	}
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases title, collapses runs of non-alphanumerics to a
// single "-", trims leading/trailing "-", and truncates to 30 characters
// (spec.md §4.F branch-naming rule).
func slugify(title string) string {
	lower := strings.ToLower(title)
	slug := slugNonAlnum.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	return slug
}

// BranchName computes "feature/<plan-short>/<task-short>-<slug>" (spec.md
// §4.F). Slug collisions are tolerated; the short ids disambiguate.
func BranchName(planID, taskID, title string) string {
	return fmt.Sprintf("feature/%s/%s-%s", id.Short(planID), id.Short(taskID), slugify(title))
}
