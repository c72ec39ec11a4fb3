package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/scheduler"
	"github.com/taskctl/taskctl/internal/statemachine"
	"github.com/taskctl/taskctl/internal/store"
)

// runSchedule readies any pending task whose dependencies are all
// completed, then assigns as many ready tasks onto available slots as
// the project's concurrency cap allows (spec.md §4.F).
func runSchedule(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	planID := fs.String("plan", "", "Plan id or prefix to schedule")
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

	guard := statemachine.NewGuard(s)
	tasks, err := s.ListTasksByStatus(plan.ID, store.TaskStatusPending)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := guard.ReadyTask(t.ID); err != nil {
			if isDependencyUnmet(err) {
				continue
			}
			return err
		}
		logger.Infow("task readied", "task_id", t.ID)
	}

	ctx := context.Background()
	sched := scheduler.New(s, git.NewAdapter())
	state, err := sched.Initialise(ctx, plan.ID)
	if err != nil {
		return err
	}

	maxConcurrency := int64(3)
	if project.MaxConcurrency.Valid {
		maxConcurrency = project.MaxConcurrency.Int64
	}

	batch, err := sched.NextBatch(ctx, state, project.ID, int(maxConcurrency))
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		fmt.Println("No ready tasks to assign")
		return nil
	}
	if err := sched.Assign(ctx, state, project.ID, batch); err != nil {
		return err
	}

	for _, sch := range batch {
		logger.Infow("task assigned", "task_id", sch.TaskID, "slot_id", sch.SlotID, "branch", sch.Branch)
		fmt.Printf("Assigned %s -> slot %s (%s)\n", sch.TaskID, sch.SlotID, sch.Branch)
	}
	return sched.UpdatePlanProgress(ctx, state)
}
