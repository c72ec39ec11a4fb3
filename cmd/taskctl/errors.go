package main

import (
	"github.com/taskctl/taskctl/internal/forge"
	"github.com/taskctl/taskctl/internal/git"
	"github.com/taskctl/taskctl/internal/graph"
	"github.com/taskctl/taskctl/internal/planner"
	"github.com/taskctl/taskctl/internal/statemachine"
	"github.com/taskctl/taskctl/internal/store"
)

// Exit codes per spec.md §6.
const (
	exitOK                = 0
	exitUserError         = 1
	exitExternalFailure   = 2
	exitInternalInvariant = 3
)

// exitCodeFor classifies an error into spec.md §6's exit code taxonomy.
// User-facing misuse (not found, ambiguous identity, conflicting state,
// invalid input, rejected transitions, cycles, malformed planner replies)
// exits 1. Failures of an external process (git, gh) exit 2. Anything
// else, including a store backend fault, is an internal invariant
// violation and exits 3.
func exitCodeFor(err error) int {
	switch {
	case store.IsNotFound(err), store.IsAmbiguous(err), store.IsConflict(err), store.IsInvalid(err):
		return exitUserError
	case statemachine.IsInvalidTransition(err), statemachine.IsPRRequired(err):
		return exitUserError
	case isDependencyUnmet(err):
		return exitUserError
	case graph.IsCycle(err):
		return exitUserError
	case planner.IsDependencyError(err):
		return exitUserError
	case isPlannerParseOrSchema(err):
		return exitUserError
	case git.IsGitError(err), forge.IsForgeError(err):
		return exitExternalFailure
	case store.IsBackend(err):
		return exitInternalInvariant
	default:
		return exitInternalInvariant
	}
}

func isDependencyUnmet(err error) bool {
	_, ok := err.(*statemachine.DependencyUnmetError)
	return ok
}

func isPlannerParseOrSchema(err error) bool {
	switch err.(type) {
	case *planner.ParseError, *planner.SchemaError:
		return true
	default:
		return false
	}
}
