// Package forge is a side-effecting façade over the `gh` code-host CLI:
// create/read/merge/close a pull request, mark ready, and translate
// forge status to internal status (spec.md §4.D).
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Timeout is the default budget for a `gh` invocation (spec.md §5: "forge
// commands get 60 s").
const Timeout = 60 * time.Second

const prJSONFields = "number,title,url,state,headRefName,baseRefName,isDraft,reviewDecision"

// Adapter wraps `gh` invocations for one repository, identified by the
// directory `gh` should run in (it resolves the owner/repo from the git
// remote the same way the CLI does interactively).
type Adapter struct {
	dir string
}

// NewAdapter returns an adapter scoped to repoDir.
func NewAdapter(repoDir string) *Adapter {
	return &Adapter{dir: repoDir}
}

func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "gh", args...)
	cmd.Dir = a.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	commandStr := "gh " + strings.Join(args, " ")

	if runCtx.Err() != nil {
		return "", &ForgeError{Command: commandStr, Stderr: "timed out: " + runCtx.Err().Error()}
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", &ForgeError{Command: commandStr, Stderr: msg}
	}
	return stdout.String(), nil
}

// runWithRetry wraps run with a bounded exponential backoff, used only for
// idempotent reads (spec.md §7: "never retried silently" on the write
// path — mutating calls always go through run directly, never this).
func (a *Adapter) runWithRetry(ctx context.Context, args ...string) (string, error) {
	var out string
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)

	err := backoff.Retry(func() error {
		var runErr error
		out, runErr = a.run(ctx, args...)
		return runErr
	}, backoff.WithContext(policy, ctx))

	return out, err
}

// AvailabilityCheck reports whether the gh CLI is installed and
// authenticated.
func (a *Adapter) AvailabilityCheck(ctx context.Context) error {
	_, err := a.run(ctx, "auth", "status")
	return err
}

// CreatePR opens a new pull request and returns its forge representation.
func (a *Adapter) CreatePR(ctx context.Context, opts CreatePROptions) (*PullRequest, error) {
	args := []string{"pr", "create",
		"--title", opts.Title,
		"--body", opts.Body,
		"--base", opts.Base,
		"--head", opts.Head,
	}
	if opts.Draft {
		args = append(args, "--draft")
	}

	out, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSpace(out)
	return a.GetPRByURL(ctx, url)
}

// GetPR retrieves a pull request by number.
func (a *Adapter) GetPR(ctx context.Context, number int64) (*PullRequest, error) {
	return a.viewPR(ctx, strconv.FormatInt(number, 10))
}

// GetPRByURL retrieves a pull request freshly created by CreatePR, which
// only returns the PR's URL on stdout.
func (a *Adapter) GetPRByURL(ctx context.Context, url string) (*PullRequest, error) {
	return a.viewPR(ctx, url)
}

func (a *Adapter) viewPR(ctx context.Context, ref string) (*PullRequest, error) {
	out, err := a.runWithRetry(ctx, "pr", "view", ref, "--json", prJSONFields)
	if err != nil {
		return nil, err
	}
	var pr PullRequest
	if jsonErr := json.Unmarshal([]byte(out), &pr); jsonErr != nil {
		return nil, &ForgeError{Command: "pr view", Stderr: fmt.Sprintf("malformed JSON: %v", jsonErr)}
	}
	return &pr, nil
}

// ListPRs lists pull requests filtered by state ("open", "closed",
// "merged", or "" for all).
func (a *Adapter) ListPRs(ctx context.Context, state string) ([]PullRequest, error) {
	args := []string{"pr", "list", "--json", prJSONFields}
	if state != "" {
		args = append(args, "--state", state)
	}

	out, err := a.runWithRetry(ctx, args...)
	if err != nil {
		return nil, err
	}
	var prs []PullRequest
	if jsonErr := json.Unmarshal([]byte(out), &prs); jsonErr != nil {
		return nil, &ForgeError{Command: "pr list", Stderr: fmt.Sprintf("malformed JSON: %v", jsonErr)}
	}
	return prs, nil
}

// MergePR merges a pull request using the requested method.
func (a *Adapter) MergePR(ctx context.Context, number int64, opts MergePROptions) error {
	args := []string{"pr", "merge", strconv.FormatInt(number, 10)}
	switch opts.Method {
	case MergeRebase:
		args = append(args, "--rebase")
	case MergeMerge:
		args = append(args, "--merge")
	default:
		args = append(args, "--squash")
	}
	if opts.DeleteBranch {
		args = append(args, "--delete-branch")
	}
	_, err := a.run(ctx, args...)
	return err
}

// ClosePR closes a pull request without merging it.
func (a *Adapter) ClosePR(ctx context.Context, number int64) error {
	_, err := a.run(ctx, "pr", "close", strconv.FormatInt(number, 10))
	return err
}

// MarkReady converts a draft pull request to ready-for-review.
func (a *Adapter) MarkReady(ctx context.Context, number int64) error {
	_, err := a.run(ctx, "pr", "ready", strconv.FormatInt(number, 10))
	return err
}
