package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/forge"
	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/scheduler"
	"github.com/taskctl/taskctl/internal/store"
)

// runPR dispatches the pull-request lifecycle subcommands that drive a
// task from in_progress through merge (spec.md §1: "through to
// pull-request merge", §2 "forge adapter creates PR").
func runPR(args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: taskctl pr <create|merge|close|ready> [options]\n")
		return &store.InvalidError{Entity: "pr", Reason: "a subcommand is required"}
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return runPRCreate(rest)
	case "merge":
		return runPRMerge(rest)
	case "close":
		return runPRClose(rest)
	case "ready":
		return runPRReady(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown pr subcommand: %s\n", sub)
		return &store.InvalidError{Entity: "pr", Reason: "unknown subcommand: " + sub}
	}
}

type prContext struct {
	logger  *zap.SugaredLogger
	store   *store.Store
	task    *store.Task
	project *store.Project
	plan    *store.Plan
	forge   *forge.Adapter
}

func openPRContext(taskID string) (*prContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	fullTaskID, err := s.FindByPrefix("task", taskID)
	if err != nil {
		return nil, err
	}
	task, err := s.GetTaskByID(fullTaskID)
	if err != nil {
		return nil, err
	}
	plan, err := s.GetPlanByID(task.PlanID)
	if err != nil {
		return nil, err
	}
	project, err := s.GetProjectByID(plan.ProjectID)
	if err != nil {
		return nil, err
	}

	return &prContext{
		logger:  logger,
		store:   s,
		task:    task,
		project: project,
		plan:    plan,
		forge:   forge.NewAdapter(project.RepoPath),
	}, nil
}

func (c *prContext) close() {
	_ = c.logger.Sync()
	_ = c.store.Close()
}

// runPRCreate opens a pull request for an in_progress task's branch and
// advances the task/slot to pr_created (spec.md §4.D CreatePR, §4.F
// MarkPRCreated).
func runPRCreate(args []string) error {
	fs := flag.NewFlagSet("pr create", flag.ContinueOnError)
	taskID := fs.String("task", "", "Task id or prefix")
	title := fs.String("title", "", "Pull request title")
	body := fs.String("body", "", "Pull request body")
	draft := fs.Bool("draft", false, "Open the pull request as a draft")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" || *title == "" {
		return &store.InvalidError{Entity: "pr", Reason: "-task and -title are required"}
	}

	c, err := openPRContext(*taskID)
	if err != nil {
		return err
	}
	defer c.close()

	if !c.task.BranchName.Valid {
		return &store.InvalidError{Entity: "task", Reason: "task has no branch to open a PR from: " + c.task.ID}
	}

	ctx := context.Background()
	forgePR, err := c.forge.CreatePR(ctx, forge.CreatePROptions{
		Title: *title,
		Body:  *body,
		Base:  c.plan.SourceBranch,
		Head:  c.task.BranchName.String,
		Draft: *draft,
	})
	if err != nil {
		return err
	}

	status := forge.TranslateStatus(*forgePR)
	if _, err := c.store.CreatePullRequest(c.task.ID, forgePR.Number, forgePR.URL, status, c.plan.SourceBranch, c.task.BranchName.String); err != nil {
		return err
	}

	sched := scheduler.New(c.store, git.NewAdapter())
	st, err := sched.Initialise(ctx, c.task.PlanID)
	if err != nil {
		return err
	}
	if err := sched.MarkPRCreated(st, c.task.ID); err != nil {
		return err
	}

	c.logger.Infow("pull request created", "task_id", c.task.ID, "pr_number", forgePR.Number, "url", forgePR.URL)
	fmt.Printf("Opened PR #%d for task %s: %s\n", forgePR.Number, c.task.ID, forgePR.URL)
	return nil
}

// runPRMerge merges the task's pull request and completes the task
// (spec.md §4.D MergePR, §4.I completion rule).
func runPRMerge(args []string) error {
	fs := flag.NewFlagSet("pr merge", flag.ContinueOnError)
	taskID := fs.String("task", "", "Task id or prefix")
	method := fs.String("method", "squash", "Merge method: squash, rebase, or merge")
	deleteBranch := fs.Bool("delete-branch", false, "Delete the head branch after merging")
	force := fs.Bool("force", false, "Complete the task even without a merged PR on record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return &store.InvalidError{Entity: "pr", Reason: "-task is required"}
	}

	c, err := openPRContext(*taskID)
	if err != nil {
		return err
	}
	defer c.close()

	pr, err := c.store.GetPullRequestByTask(c.task.ID)
	if err != nil {
		return err
	}

	var mergeMethod forge.MergeMethod
	switch *method {
	case "rebase":
		mergeMethod = forge.MergeRebase
	case "merge":
		mergeMethod = forge.MergeMerge
	default:
		mergeMethod = forge.MergeSquash
	}

	ctx := context.Background()
	if err := c.forge.MergePR(ctx, pr.Number, forge.MergePROptions{Method: mergeMethod, DeleteBranch: *deleteBranch}); err != nil {
		return err
	}
	if err := c.store.UpdatePullRequestStatus(c.task.ID, store.PRStatusMerged); err != nil {
		return err
	}
	if c.task.Status == store.TaskStatusPRCreated {
		if err := c.store.TransitionTaskStatus(c.task.ID, store.TaskStatusPRCreated, store.TaskStatusInReview); err != nil {
			return err
		}
	}

	sched := scheduler.New(c.store, git.NewAdapter())
	st, err := sched.Initialise(ctx, c.task.PlanID)
	if err != nil {
		return err
	}
	if err := sched.Complete(st, c.task.ID, *force); err != nil {
		return err
	}

	c.logger.Infow("pull request merged", "task_id", c.task.ID, "pr_number", pr.Number)
	fmt.Printf("Merged PR #%d, task %s completed\n", pr.Number, c.task.ID)
	return nil
}

// runPRClose closes the task's pull request without merging it.
func runPRClose(args []string) error {
	fs := flag.NewFlagSet("pr close", flag.ContinueOnError)
	taskID := fs.String("task", "", "Task id or prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return &store.InvalidError{Entity: "pr", Reason: "-task is required"}
	}

	c, err := openPRContext(*taskID)
	if err != nil {
		return err
	}
	defer c.close()

	pr, err := c.store.GetPullRequestByTask(c.task.ID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := c.forge.ClosePR(ctx, pr.Number); err != nil {
		return err
	}
	if err := c.store.UpdatePullRequestStatus(c.task.ID, store.PRStatusClosed); err != nil {
		return err
	}

	c.logger.Infow("pull request closed", "task_id", c.task.ID, "pr_number", pr.Number)
	fmt.Printf("Closed PR #%d for task %s\n", pr.Number, c.task.ID)
	return nil
}

// runPRReady converts the task's draft pull request to ready-for-review.
func runPRReady(args []string) error {
	fs := flag.NewFlagSet("pr ready", flag.ContinueOnError)
	taskID := fs.String("task", "", "Task id or prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return &store.InvalidError{Entity: "pr", Reason: "-task is required"}
	}

	c, err := openPRContext(*taskID)
	if err != nil {
		return err
	}
	defer c.close()

	pr, err := c.store.GetPullRequestByTask(c.task.ID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := c.forge.MarkReady(ctx, pr.Number); err != nil {
		return err
	}
	if err := c.store.UpdatePullRequestStatus(c.task.ID, store.PRStatusOpen); err != nil {
		return err
	}

	c.logger.Infow("pull request marked ready", "task_id", c.task.ID, "pr_number", pr.Number)
	fmt.Printf("PR #%d for task %s is ready for review\n", pr.Number, c.task.ID)
	return nil
}
