package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/scheduler"
	"github.com/taskctl/taskctl/internal/store"
)

// runStart drives an assigned task into in_progress, the caller-declared
// signal that implementation work on the task's branch has begun (spec.md
// §9 open question: never inferred from another event).
func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	taskID := fs.String("task", "", "Task id or prefix to start")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return &store.InvalidError{Entity: "task", Reason: "-task is required"}
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

	fullTaskID, err := s.FindByPrefix("task", *taskID)
	if err != nil {
		return err
	}
	task, err := s.GetTaskByID(fullTaskID)
	if err != nil {
		return err
	}

	sched := scheduler.New(s, git.NewAdapter())
	st, err := sched.Initialise(context.Background(), task.PlanID)
	if err != nil {
		return err
	}
	if err := sched.Start(st, fullTaskID); err != nil {
		return err
	}

	logger.Infow("task started", "task_id", fullTaskID)
	fmt.Printf("Task %s is now in_progress\n", fullTaskID)
	return nil
}
