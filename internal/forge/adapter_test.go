package forge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGh writes an executable shell script named "gh" into a temp
// directory and prepends that directory to PATH. It
// lets the adapter tests exercise the real os/exec plumbing without a
// network or a real code host, the same trick the git adapter tests use
// with a real git binary.
func fakeGh(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake gh script is POSIX shell only")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "gh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))

	oldPath := os.Getenv("PATH")
	require.NoError(t, os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath))
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })
}

func TestAvailabilityCheckSucceeds(t *testing.T) {
	fakeGh(t, `exit 0`)
	a := NewAdapter(t.TempDir())
	require.NoError(t, a.AvailabilityCheck(context.Background()))
}

func TestAvailabilityCheckFails(t *testing.T) {
	fakeGh(t, `echo "not logged in" 1>&2; exit 1`)
	a := NewAdapter(t.TempDir())
	err := a.AvailabilityCheck(context.Background())
	require.Error(t, err)
	require.True(t, IsForgeError(err))
}

func TestGetPRTranslatesJSON(t *testing.T) {
	fakeGh(t, fmt.Sprintf(`cat <<'EOF'
{"number":42,"title":"add thing","url":"https://example.com/pr/42","state":"OPEN","headRefName":"feature/x","baseRefName":"main","isDraft":false,"reviewDecision":"APPROVED"}
EOF
`))
	a := NewAdapter(t.TempDir())
	pr, err := a.GetPR(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), pr.Number)
	require.Equal(t, StatusApproved, TranslateStatus(*pr))
}

func TestListPRsParsesArray(t *testing.T) {
	fakeGh(t, `cat <<'EOF'
[
  {"number":1,"title":"a","url":"u1","state":"OPEN","headRefName":"h1","baseRefName":"main","isDraft":true,"reviewDecision":""},
  {"number":2,"title":"b","url":"u2","state":"MERGED","headRefName":"h2","baseRefName":"main","isDraft":false,"reviewDecision":"APPROVED"}
]
EOF
`)
	a := NewAdapter(t.TempDir())
	prs, err := a.ListPRs(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, prs, 2)
	require.Equal(t, StatusDraft, TranslateStatus(prs[0]))
	require.Equal(t, StatusMerged, TranslateStatus(prs[1]))
}

func TestCreatePRFetchesCreatedPR(t *testing.T) {
	fakeGh(t, `
if [ "$1" = "pr" ] && [ "$2" = "create" ]; then
  echo "https://example.com/pr/7"
  exit 0
fi
if [ "$1" = "pr" ] && [ "$2" = "view" ]; then
  cat <<'EOF'
{"number":7,"title":"t","url":"https://example.com/pr/7","state":"OPEN","headRefName":"feature/y","baseRefName":"main","isDraft":true,"reviewDecision":""}
EOF
  exit 0
fi
exit 1
`)
	a := NewAdapter(t.TempDir())
	pr, err := a.CreatePR(context.Background(), CreatePROptions{
		Title: "t", Body: "b", Base: "main", Head: "feature/y", Draft: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), pr.Number)
	require.True(t, pr.IsDraft)
}

func TestMergePRUsesRequestedMethod(t *testing.T) {
	fakeGh(t, `
if [ "$1" = "pr" ] && [ "$2" = "merge" ]; then
  for arg in "$@"; do
    if [ "$arg" = "--rebase" ]; then exit 0; fi
  done
  exit 1
fi
exit 1
`)
	a := NewAdapter(t.TempDir())
	err := a.MergePR(context.Background(), 7, MergePROptions{Method: MergeRebase})
	require.NoError(t, err)
}

func TestClosePRAndMarkReady(t *testing.T) {
	fakeGh(t, `exit 0`)
	a := NewAdapter(t.TempDir())
	require.NoError(t, a.ClosePR(context.Background(), 7))
	require.NoError(t, a.MarkReady(context.Background(), 7))
}

func TestViewPRMalformedJSON(t *testing.T) {
	fakeGh(t, `echo "not json"`)
	a := NewAdapter(t.TempDir())
	_, err := a.GetPR(context.Background(), 1)
	require.Error(t, err)
	require.True(t, IsForgeError(err))
}
