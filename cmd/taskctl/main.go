// Command taskctl wires the task coordination core together: the store,
// git/forge adapters, dependency graph, scheduler, planner and query
// surface (spec.md §1). The command-line rendering itself is out of
// scope (spec.md §1); this stays a thin flag-based dispatcher in the
// teacher's manual-switch style (cmd/dex/main.go), not a rendering layer.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags, matching the teacher's
// convention (cmd/dex/main.go: -ldflags="-X main.version=...").
var version = "0.1.0-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, "taskctl - task decomposition and coordination\n\n")
	fmt.Fprintf(os.Stderr, "Usage: taskctl <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  init       Register a project against a git repository\n")
	fmt.Fprintf(os.Stderr, "  plan       Ask the planner to decompose a prompt into tasks\n")
	fmt.Fprintf(os.Stderr, "  schedule   Assign ready tasks onto available slots\n")
	fmt.Fprintf(os.Stderr, "  start      Mark an assigned task's slot as in_progress\n")
	fmt.Fprintf(os.Stderr, "  pr         Create, merge, close, or ready a task's pull request\n")
	fmt.Fprintf(os.Stderr, "  sync       Reconcile task/PR status against the forge\n")
	fmt.Fprintf(os.Stderr, "  mcp        Serve the read-only query surface over stdio\n")
	fmt.Fprintf(os.Stderr, "  version    Show version information\n")
	fmt.Fprintf(os.Stderr, "\nRun 'taskctl <command> -h' for command-specific options.\n")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitUserError)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = runInit(args)
	case "plan":
		err = runPlan(args)
	case "schedule":
		err = runSchedule(args)
	case "start":
		err = runStart(args)
	case "pr":
		err = runPR(args)
	case "sync":
		err = runSync(args)
	case "mcp":
		err = runMCP(args)
	case "version":
		fmt.Printf("taskctl v%s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(exitUserError)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
