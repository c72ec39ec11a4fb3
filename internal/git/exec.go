package git

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"
)

// maxOutputBytes bounds subprocess output buffers so a chatty git
// diagnostic (e.g. a giant diff on stderr) cannot grow memory unbounded
// or deadlock a pipe (spec.md §4.C: "bounded ... to avoid deadlock on
// verbose diagnostics").
const maxOutputBytes = 10 * 1024 * 1024

// Default command timeouts (spec.md §5): git commands get 60s, network
// push/pull/fetch get 300s.
const (
	DefaultTimeout = 60 * time.Second
	NetworkTimeout = 300 * time.Second
)

// run executes git in dir with args, bounding stdout/stderr to
// maxOutputBytes and honouring ctx for cancellation/timeout. Any non-zero
// exit, or ctx expiry, surfaces as a *GitError.
func run(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &boundedWriter{buf: &stdout, limit: maxOutputBytes}
	cmd.Stderr = &boundedWriter{buf: &stderr, limit: maxOutputBytes}

	err := cmd.Run()
	commandStr := "git " + strings.Join(args, " ")

	if runCtx.Err() != nil {
		return "", &GitError{Command: commandStr, Stderr: "timed out: " + runCtx.Err().Error()}
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", &GitError{Command: commandStr, Stderr: msg}
	}

	return stdout.String(), nil
}

// boundedWriter discards writes past limit instead of growing forever,
// rather than failing the command outright — a truncated diagnostic is
// still useful, an OOM'd process is not.
type boundedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		_, _ = w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}

var _ io.Writer = (*boundedWriter)(nil)
