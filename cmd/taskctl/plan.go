package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/planner"
	"github.com/taskctl/taskctl/internal/store"
)

// runPlan creates a draft plan (if -plan is absent) and asks the planner
// to decompose -prompt into tasks (spec.md §4.G).
func runPlan(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	project := fs.String("project", "", "Project id or prefix")
	planID := fs.String("plan", "", "Existing plan id to re-run; creates a new plan if empty")
	title := fs.String("title", "New plan", "Title for a newly created plan")
	sourceBranch := fs.String("source-branch", "", "Source branch tasks branch from (defaults to the project's main branch)")
	prompt := fs.String("prompt", "", "Prompt describing the change to decompose")
	maxLines := fs.Int("max-lines", 0, "Target maximum lines per task (0 = no target)")
	promptTemplate := fs.String("prompt-template", "", "Path to a YAML prompt template (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prompt == "" {
		return &store.InvalidError{Entity: "plan", Reason: "-prompt is required"}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.AnthropicKey == "" {
		return &store.InvalidError{Entity: "plan", Reason: "ANTHROPIC_API_KEY is not set"}
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

	proj, err := resolveProject(s, *project)
	if err != nil {
		return err
	}

	branch := *sourceBranch
	if branch == "" {
		branch = proj.MainBranch
	}

	var plan *store.Plan
	if *planID != "" {
		fullID, err := s.FindByPrefix("plan", *planID)
		if err != nil {
			return err
		}
		plan, err = s.GetPlanByID(fullID)
		if err != nil {
			return err
		}
	} else {
		plan, err = s.CreatePlan(proj.ID, *title, "", branch)
		if err != nil {
			return err
		}
	}

	tpl, err := planner.LoadPromptTemplate(*promptTemplate)
	if err != nil {
		return err
	}
	transport := planner.NewAnthropicTransport(cfg.AnthropicKey, tpl, logger)

	input := planner.Input{Prompt: *prompt, MaxLinesPerTask: *maxLines}
	result, translation, err := planner.Generate(context.Background(), s, transport, plan.ID, input)
	if err != nil {
		return err
	}

	logger.Infow("plan decomposed", "plan_id", plan.ID, "task_count", len(result.Tasks))
	fmt.Printf("Plan %s ready with %d tasks\n", plan.ID, len(result.Tasks))
	for _, t := range result.Tasks {
		fmt.Printf("  %s  %s\n", translation[t.ID], t.Title)
	}
	if result.Summary != "" {
		fmt.Println(result.Summary)
	}
	return nil
}

// resolveProject resolves a project prefix, or the sole registered
// project if prefix is empty.
func resolveProject(s *store.Store, prefix string) (*store.Project, error) {
	if prefix != "" {
		fullID, err := s.FindByPrefix("project", prefix)
		if err != nil {
			return nil, err
		}
		return s.GetProjectByID(fullID)
	}
	projects, err := s.ListProjects()
	if err != nil {
		return nil, err
	}
	switch len(projects) {
	case 0:
		return nil, &store.NotFoundError{Entity: "project", ID: "(none registered)"}
	case 1:
		return projects[0], nil
	default:
		return nil, &store.InvalidError{Entity: "project", Reason: "multiple projects registered; pass -project"}
	}
}
