package store

import "database/sql"

// Plan status lifecycle (spec.md §3): draft -> planning -> ready ->
// in_progress -> completed, with archived reachable from any non-terminal
// state.
const (
	PlanStatusDraft      = "draft"
	PlanStatusPlanning   = "planning"
	PlanStatusReady      = "ready"
	PlanStatusInProgress = "in_progress"
	PlanStatusCompleted  = "completed"
	PlanStatusArchived   = "archived"
)

// Task status lifecycle (spec.md §3): pending -> ready -> assigned ->
// in_progress -> pr_created -> in_review -> completed, with blocked
// reachable from pending/ready.
const (
	TaskStatusPending    = "pending"
	TaskStatusReady      = "ready"
	TaskStatusAssigned   = "assigned"
	TaskStatusInProgress = "in_progress"
	TaskStatusPRCreated  = "pr_created"
	TaskStatusInReview   = "in_review"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocked    = "blocked"
)

// Slot status lifecycle (spec.md §3): available -> assigned -> in_progress
// -> pr_pending -> completed -> available, with error reachable from any
// active state.
const (
	SlotStatusAvailable  = "available"
	SlotStatusAssigned   = "assigned"
	SlotStatusInProgress = "in_progress"
	SlotStatusPRPending  = "pr_pending"
	SlotStatusCompleted  = "completed"
	SlotStatusError      = "error"
)

// PullRequest status lifecycle (spec.md §3): draft -> open -> in_review ->
// approved -> merged, with closed reachable from open/in_review.
const (
	PRStatusDraft    = "draft"
	PRStatusOpen     = "open"
	PRStatusInReview = "in_review"
	PRStatusApproved = "approved"
	PRStatusMerged   = "merged"
	PRStatusClosed   = "closed"
)

// Project is one managed repository.
type Project struct {
	ID              string
	Name            string
	RepoPath        string
	RemoteURL       sql.NullString
	MainBranch      string
	MaxConcurrency  sql.NullInt64
	CreatedAt       string
}

// Plan is a cohesive unit of work owned by a project.
type Plan struct {
	ID           string
	ProjectID    string
	Title        string
	Description  sql.NullString
	SourceBranch string
	Status       string
	CreatedAt    string
}

// Task is a leaf unit of work owned by a plan.
type Task struct {
	ID               string
	PlanID           string
	Title            string
	Description      string
	Status           string
	Level            int64
	EstimatedLines   sql.NullInt64
	BranchName       sql.NullString
	SlotID           sql.NullString
	SessionID        sql.NullString
	CreatedAt        string
}

// TaskDependency is a directed edge: TaskID depends on DependsOnID.
type TaskDependency struct {
	TaskID       string
	DependsOnID  string
}

// Slot is a reusable workspace bound to a project (the worktree-pool slot
// variant, spec.md §9).
type Slot struct {
	ID        string
	ProjectID string
	Name      string
	Path      string
	Branch    sql.NullString
	Status    string
	TaskID    sql.NullString
	CreatedAt string
}

// PullRequest is a forge-side artefact bound 1:1 to a task.
type PullRequest struct {
	ID          string
	TaskID      string
	Number      int64
	URL         string
	Status      string
	BaseBranch  string
	HeadBranch  string
	CreatedAt   string
}
