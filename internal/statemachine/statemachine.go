// Package statemachine holds the status transition tables named in
// spec.md §3 and a Guard for the task moves to ready and to completed
// (spec.md §4.I).
package statemachine

import (
	"fmt"

	"github.com/taskctl/taskctl/internal/store"
)

// InvalidTransitionError is returned when a status change is not a valid
// edge in the entity's lifecycle (spec.md §4.I).
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError,
// matching the teacher's IsInvalidTransition helper (internal/task/state.go).
func IsInvalidTransition(err error) bool {
	_, ok := err.(*InvalidTransitionError)
	return ok
}

// DependencyUnmetError is returned when a task would transition to ready
// or assigned while a dependency is not completed (spec.md invariant 3).
type DependencyUnmetError struct {
	TaskID       string
	DependsOnID  string
}

func (e *DependencyUnmetError) Error() string {
	return fmt.Sprintf("task %s has unmet dependency %s", e.TaskID, e.DependsOnID)
}

// PRRequiredError is returned when a task tries to complete without a
// merged PR and without the administrative force flag (spec.md §4.I).
type PRRequiredError struct {
	TaskID string
}

func (e *PRRequiredError) Error() string {
	return fmt.Sprintf("task %s has no merged pull request; pass force to bypass", e.TaskID)
}

// IsPRRequired reports whether err is a PRRequiredError.
func IsPRRequired(err error) bool {
	_, ok := err.(*PRRequiredError)
	return ok
}

// taskTransitions encodes the Task lifecycle from spec.md §3.
var taskTransitions = map[string][]string{
	store.TaskStatusPending:    {store.TaskStatusReady, store.TaskStatusBlocked},
	store.TaskStatusReady:      {store.TaskStatusAssigned, store.TaskStatusBlocked},
	store.TaskStatusAssigned:   {store.TaskStatusInProgress},
	store.TaskStatusInProgress: {store.TaskStatusPRCreated},
	store.TaskStatusPRCreated:  {store.TaskStatusInReview},
	store.TaskStatusInReview:   {store.TaskStatusCompleted},
	store.TaskStatusBlocked:    {store.TaskStatusReady},
	store.TaskStatusCompleted:  {},
}

// slotTransitions encodes the Slot lifecycle from spec.md §3.
var slotTransitions = map[string][]string{
	store.SlotStatusAvailable:  {store.SlotStatusAssigned},
	store.SlotStatusAssigned:   {store.SlotStatusInProgress, store.SlotStatusError},
	store.SlotStatusInProgress: {store.SlotStatusPRPending, store.SlotStatusError},
	store.SlotStatusPRPending:  {store.SlotStatusCompleted, store.SlotStatusError},
	store.SlotStatusCompleted:  {store.SlotStatusAvailable},
	store.SlotStatusError:      {store.SlotStatusAvailable},
}

// planTransitions encodes the Plan lifecycle from spec.md §3: archived is
// a terminal sink reachable from any non-terminal state.
var planTransitions = map[string][]string{
	store.PlanStatusDraft:      {store.PlanStatusPlanning, store.PlanStatusArchived},
	store.PlanStatusPlanning:   {store.PlanStatusReady, store.PlanStatusDraft, store.PlanStatusArchived},
	store.PlanStatusReady:      {store.PlanStatusInProgress, store.PlanStatusArchived},
	store.PlanStatusInProgress: {store.PlanStatusCompleted, store.PlanStatusArchived},
	store.PlanStatusCompleted:  {store.PlanStatusArchived},
	store.PlanStatusArchived:   {},
}

// prTransitions encodes the PullRequest lifecycle from spec.md §3.
var prTransitions = map[string][]string{
	store.PRStatusDraft:    {store.PRStatusOpen, store.PRStatusClosed},
	store.PRStatusOpen:     {store.PRStatusInReview, store.PRStatusClosed, store.PRStatusMerged},
	store.PRStatusInReview: {store.PRStatusApproved, store.PRStatusClosed, store.PRStatusMerged},
	store.PRStatusApproved: {store.PRStatusMerged, store.PRStatusClosed},
	store.PRStatusMerged:   {},
	store.PRStatusClosed:   {},
}

func allowed(table map[string][]string, from, to string) bool {
	for _, candidate := range table[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTaskTransition checks a Task status edge against spec.md §3.
func ValidateTaskTransition(from, to string) error {
	if !allowed(taskTransitions, from, to) {
		return &InvalidTransitionError{Entity: "task", From: from, To: to}
	}
	return nil
}

// ValidateSlotTransition checks a Slot status edge against spec.md §3.
func ValidateSlotTransition(from, to string) error {
	if !allowed(slotTransitions, from, to) {
		return &InvalidTransitionError{Entity: "slot", From: from, To: to}
	}
	return nil
}

// ValidatePlanTransition checks a Plan status edge against spec.md §3.
func ValidatePlanTransition(from, to string) error {
	if !allowed(planTransitions, from, to) {
		return &InvalidTransitionError{Entity: "plan", From: from, To: to}
	}
	return nil
}

// ValidatePRTransition checks a PullRequest status edge against spec.md §3.
func ValidatePRTransition(from, to string) error {
	if !allowed(prTransitions, from, to) {
		return &InvalidTransitionError{Entity: "pr", From: from, To: to}
	}
	return nil
}

// Guard wraps a *store.Store and performs two task moves, each checked
// against the task lifecycle table: ReadyTask (every dependency completed)
// and CompleteTask (a merged PR, or force). Other status changes do not go
// through Guard; it does not check for a slot row before task->assigned or
// for a PR row before task->pr_created.
type Guard struct {
	store *store.Store
}

// NewGuard wraps a store with transition validation.
func NewGuard(s *store.Store) *Guard {
	return &Guard{store: s}
}

// ReadyTask moves a task pending/blocked -> ready, enforcing spec.md
// invariant 3: every dependency must be completed.
func (g *Guard) ReadyTask(taskID string) error {
	task, err := g.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	if err := ValidateTaskTransition(task.Status, store.TaskStatusReady); err != nil {
		return err
	}

	deps, err := g.store.GetDependencies(taskID)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if d.Status != store.TaskStatusCompleted {
			return &DependencyUnmetError{TaskID: taskID, DependsOnID: d.ID}
		}
	}

	return g.store.TransitionTaskStatus(taskID, task.Status, store.TaskStatusReady)
}

// CompleteTask moves a task in_review -> completed. It requires a merged
// PR unless force is set, matching the teacher's CanComplete checklist
// gate (internal/task/state.go), adapted from "checklist" to "merged PR".
func (g *Guard) CompleteTask(taskID string, force bool) error {
	task, err := g.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	if err := ValidateTaskTransition(task.Status, store.TaskStatusCompleted); err != nil {
		return err
	}

	if !force {
		pr, err := g.store.GetPullRequestByTask(taskID)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		if pr == nil || pr.Status != store.PRStatusMerged {
			return &PRRequiredError{TaskID: taskID}
		}
	}

	return g.store.TransitionTaskStatus(taskID, task.Status, store.TaskStatusCompleted)
}
