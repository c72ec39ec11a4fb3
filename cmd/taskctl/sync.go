package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/forge"
	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/scheduler"
	"github.com/taskctl/taskctl/internal/statemachine"
	"github.com/taskctl/taskctl/internal/store"
)

// runSync reconciles every in-flight task's pull request against the
// forge, advances the task to completed on merge, and readies any
// dependent whose dependencies are now all satisfied (spec.md §8 scenario
// 4: "sync sets PR status merged and task status completed; dependent
// task t2 moves from pending to ready").
func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	planID := fs.String("plan", "", "Plan id or prefix to reconcile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planID == "" {
		return &store.InvalidError{Entity: "plan", Reason: "-plan is required"}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	fullPlanID, err := s.FindByPrefix("plan", *planID)
	if err != nil {
		return err
	}
	plan, err := s.GetPlanByID(fullPlanID)
	if err != nil {
		return err
	}
	project, err := s.GetProjectByID(plan.ProjectID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	forgeAdapter := forge.NewAdapter(project.RepoPath)
	sched := scheduler.New(s, git.NewAdapter())
	state, err := sched.Initialise(ctx, plan.ID)
	if err != nil {
		return err
	}
	guard := statemachine.NewGuard(s)

	tasks, err := s.ListTasksByPlan(plan.ID)
	if err != nil {
		return err
	}

	var completed []string
	for _, t := range tasks {
		if t.Status != store.TaskStatusPRCreated && t.Status != store.TaskStatusInReview {
			continue
		}
		pr, err := s.GetPullRequestByTask(t.ID)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return err
		}

		forgePR, err := forgeAdapter.GetPR(ctx, pr.Number)
		if err != nil {
			return err
		}
		translated := forge.TranslateStatus(*forgePR)
		if translated != pr.Status {
			if err := s.UpdatePullRequestStatus(t.ID, translated); err != nil {
				return err
			}
			logger.Infow("pr status synced", "task_id", t.ID, "pr_number", pr.Number, "status", translated)
		}

		if translated != store.PRStatusMerged {
			continue
		}

		if t.Status == store.TaskStatusPRCreated {
			if err := s.TransitionTaskStatus(t.ID, store.TaskStatusPRCreated, store.TaskStatusInReview); err != nil {
				return err
			}
		}
		if err := sched.Complete(state, t.ID, false); err != nil {
			return err
		}
		logger.Infow("task completed on merge", "task_id", t.ID, "pr_number", pr.Number)
		completed = append(completed, t.ID)
		fmt.Printf("Task %s completed (PR #%d merged)\n", t.ID, pr.Number)
	}

	for _, taskID := range completed {
		dependents, err := s.GetDependents(taskID)
		if err != nil {
			return err
		}
		for _, d := range dependents {
			if d.Status != store.TaskStatusPending {
				continue
			}
			if err := guard.ReadyTask(d.ID); err != nil {
				if isDependencyUnmet(err) {
					continue
				}
				return err
			}
			logger.Infow("dependent task readied", "task_id", d.ID)
			fmt.Printf("Task %s is now ready\n", d.ID)
		}
	}

	return sched.UpdatePlanProgress(ctx, state)
}
