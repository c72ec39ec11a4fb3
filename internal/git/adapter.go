// Package git is a side-effecting façade over the git binary: worktree
// create/remove, branch create/checkout, remote push/fetch, branch
// existence, dirty/ahead/behind detection (spec.md §4.C).
package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Adapter is the git façade. It carries no state beyond what every
// operation needs: a repo path is passed explicitly to each call, the
// same way the teacher's Operations type is stateless
// (internal/git/operations.go).
type Adapter struct{}

// NewAdapter returns a ready-to-use git adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// IsRepo reports whether path is inside a git working tree.
func (a *Adapter) IsRepo(ctx context.Context, path string) bool {
	_, err := run(ctx, path, DefaultTimeout, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// RepoRoot returns the top-level directory of the working tree containing
// path (may be a worktree's own root, not the main checkout).
func (a *Adapter) RepoRoot(ctx context.Context, path string) (string, error) {
	out, err := run(ctx, path, DefaultTimeout, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// MainRepoPath resolves any worktree back to its parent repository's
// common git directory, and returns the directory that owns it.
func (a *Adapter) MainRepoPath(ctx context.Context, path string) (string, error) {
	out, err := run(ctx, path, DefaultTimeout, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	commonDir := strings.TrimSpace(out)
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(path, commonDir)
	}
	// The common dir for the main worktree is "<repo>/.git"; its parent is
	// the main repo's working directory.
	return filepath.Dir(commonDir), nil
}

// RemoteURL returns the URL configured for a remote (default "origin").
func (a *Adapter) RemoteURL(ctx context.Context, path, remote string) (string, error) {
	if remote == "" {
		remote = "origin"
	}
	out, err := run(ctx, path, DefaultTimeout, "remote", "get-url", remote)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BranchExists reports whether name exists as a local branch.
func (a *Adapter) BranchExists(ctx context.Context, path, name string) bool {
	_, err := run(ctx, path, DefaultTimeout, "rev-parse", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// CreateBranch creates a new branch from base (defaulting to HEAD) without
// checking it out.
func (a *Adapter) CreateBranch(ctx context.Context, path, name, base string) error {
	args := []string{"branch", name}
	if base != "" {
		args = append(args, base)
	}
	_, err := run(ctx, path, DefaultTimeout, args...)
	return err
}

// CheckoutBranch switches the working tree at path to an existing branch.
func (a *Adapter) CheckoutBranch(ctx context.Context, path, name string) error {
	_, err := run(ctx, path, DefaultTimeout, "checkout", name)
	return err
}

// CurrentBranch returns the checked-out branch name, or "HEAD" when
// detached.
func (a *Adapter) CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := run(ctx, path, DefaultTimeout, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Dirty reports whether a working tree has uncommitted changes. Best
// effort: on failure it returns false rather than propagating an error,
// per spec.md §4.C's "best effort" note on introspection helpers.
func (a *Adapter) Dirty(ctx context.Context, path string) bool {
	out, err := run(ctx, path, DefaultTimeout, "status", "--porcelain")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) != ""
}

// AheadBehind returns how many commits the current branch is ahead of and
// behind its upstream. When no upstream is configured, both values are
// returned as -1 and ok is false rather than failing (spec.md §4.C:
// "when upstream is unknown, return 'unknown' rather than failing").
func (a *Adapter) AheadBehind(ctx context.Context, path string) (ahead, behind int, ok bool) {
	out, err := run(ctx, path, DefaultTimeout, "rev-list", "--left-right", "--count", "@{upstream}...HEAD")
	if err != nil {
		return -1, -1, false
	}
	parts := strings.Fields(out)
	if len(parts) != 2 {
		return -1, -1, false
	}
	var b, ah int
	if _, err := sscanInt(parts[0], &b); err != nil {
		return -1, -1, false
	}
	if _, err := sscanInt(parts[1], &ah); err != nil {
		return -1, -1, false
	}
	return ah, b, true
}

func sscanInt(s string, out *int) (int, error) {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, &GitError{Command: "parse", Stderr: "not a number: " + s}
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	*out = n
	return n, nil
}

// Push pushes branch to remote, optionally setting the upstream. Uses
// --force-with-lease rather than --force when force is requested, so a
// push never silently clobbers a branch another task owns
// (internal/git/operations.go Push).
func (a *Adapter) Push(ctx context.Context, path, remote, branch string, setUpstream, force bool) error {
	if remote == "" {
		remote = "origin"
	}
	args := []string{"push"}
	if force {
		args = append(args, "--force-with-lease")
	}
	if setUpstream {
		args = append(args, "-u")
	}
	args = append(args, remote)
	if branch != "" {
		args = append(args, branch)
	}
	_, err := run(ctx, path, NetworkTimeout, args...)
	return err
}

// Fetch fetches from remote (default "origin").
func (a *Adapter) Fetch(ctx context.Context, path, remote string) error {
	if remote == "" {
		remote = "origin"
	}
	_, err := run(ctx, path, NetworkTimeout, "fetch", remote)
	return err
}

// Pull pulls the current branch from remote.
func (a *Adapter) Pull(ctx context.Context, path, remote string) error {
	if remote == "" {
		remote = "origin"
	}
	_, err := run(ctx, path, NetworkTimeout, "pull", remote)
	return err
}

// osStat is a var so tests can stub it without touching the real filesystem.
var osStat = os.Stat
