package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/store"
)

// runInit registers a project against a git repository (spec.md §4.A
// Project.create), creating the store if it does not already exist.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	name := fs.String("name", "", "Project name (defaults to the repo directory name)")
	repoPath := fs.String("repo", ".", "Path to the git repository to register")
	mainBranch := fs.String("main-branch", "main", "The branch tasks are decomposed against and PRs target")
	maxConcurrency := fs.Int64("max-concurrency", 3, "Maximum number of tasks the scheduler runs at once")
	if err := fs.Parse(args); err != nil {
		return err
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

	ctx := context.Background()
	gitAdapter := git.NewAdapter()
	if !gitAdapter.IsRepo(ctx, *repoPath) {
		return &store.InvalidError{Entity: "project", Reason: "not a git repository: " + *repoPath}
	}

	projectName := *name
	if projectName == "" {
		root, err := gitAdapter.RepoRoot(ctx, *repoPath)
		if err != nil {
			return err
		}
		projectName = filepath.Base(root)
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if err := s.Migrate(); err != nil {
		return err
	}

	project, err := s.CreateProject(projectName, *repoPath, *mainBranch)
	if err != nil {
		return err
	}
	if err := s.SetProjectMaxConcurrency(project.ID, *maxConcurrency); err != nil {
		return err
	}

	logger.Infow("project registered", "project_id", project.ID, "name", project.Name, "repo_path", project.RepoPath)
	fmt.Printf("Registered project %s (%s)\n", project.Name, project.ID)
	return nil
}
