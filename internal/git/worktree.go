package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// WorktreeInfo describes one entry of `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path       string
	Branch     string
	CommitHash string
	Bare       bool
}

// AddWorktree creates a worktree at path bound to branch. If branch
// already exists locally, the worktree is attached to it; otherwise it is
// created fresh. This mirrors the teacher's create-or-reuse fallback
// (internal/git/worktree.go Create), narrowed to take the final branch
// name and base directly rather than deriving them from a task id —
// branch naming is the scheduler's job (spec.md §4.F).
func (a *Adapter) AddWorktree(ctx context.Context, repo, path, branch, base string) error {
	if a.BranchExists(ctx, repo, branch) {
		_, err := run(ctx, repo, DefaultTimeout, "worktree", "add", path, branch)
		return err
	}
	if base == "" {
		base = "HEAD"
	}
	_, err := run(ctx, repo, DefaultTimeout, "worktree", "add", path, "-b", branch, base)
	return err
}

// RemoveWorktree removes a worktree, forcing removal even with
// uncommitted changes (the scheduler owns the slot's lifecycle and is
// responsible for deciding whether that's safe).
func (a *Adapter) RemoveWorktree(ctx context.Context, repo, path string) error {
	_, err := run(ctx, repo, DefaultTimeout, "worktree", "remove", "--force", path)
	return err
}

// PruneWorktrees removes administrative files for worktrees whose
// directory has been deleted outside of git.
func (a *Adapter) PruneWorktrees(ctx context.Context, repo string) error {
	_, err := run(ctx, repo, DefaultTimeout, "worktree", "prune")
	return err
}

// ListWorktrees returns every worktree registered against repo.
func (a *Adapter) ListWorktrees(ctx context.Context, repo string) ([]WorktreeInfo, error) {
	out, err := run(ctx, repo, DefaultTimeout, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

func parseWorktreeList(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current WorktreeInfo

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if current.Path != "" {
				worktrees = append(worktrees, current)
			}
			current = WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			current.CommitHash = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "bare":
			current.Bare = true
		case line == "detached":
			current.Branch = "(detached)"
		}
	}
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}
	return worktrees
}

// WorktreeExists reports whether path looks like a live worktree: it
// exists on disk and has a .git file pointing back at its parent repo.
func (a *Adapter) WorktreeExists(path string) bool {
	info, err := osStat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = osStat(filepath.Join(path, ".git"))
	return err == nil
}

// SlotPath computes the expected worktree path for a project+task pairing,
// matching the teacher's naming convention (internal/git/worktree.go
// GetWorktreePath): "<worktree-base>/<project-name>-task-<short-task-id>".
func SlotPath(worktreeBase, projectPath, shortTaskID string) string {
	projectName := filepath.Base(projectPath)
	return filepath.Join(worktreeBase, fmt.Sprintf("%s-task-%s", projectName, shortTaskID))
}
