// Package planner is the contract with an external LLM that turns a
// prompt into a task decomposition (spec.md §4.G). Prompt content and JSON
// parsing of the planner's raw reply are out of scope (spec.md §1); this
// package specifies only the input/output contract, its validation rules,
// and the persistence flow that hands a validated plan to the store.
package planner

import (
	"context"
	"fmt"

	"github.com/taskctl/taskctl/internal/graph"
	"github.com/taskctl/taskctl/internal/store"
)

// ContextFile is a truncated snippet of project context handed to the
// planner alongside the prompt.
type ContextFile struct {
	Path    string
	Content string
}

// Input is the planner's contract input (spec.md §4.G).
type Input struct {
	Prompt          string
	ProjectDigest   string
	ContextFiles    []ContextFile
	MaxLinesPerTask int
}

// RawTask is one task exactly as the planner's transport returns it,
// before validation. ID is an opaque token local to the planner's
// response, used only to resolve DependsOn (spec.md §4.G).
type RawTask struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EstimatedLines int      `json:"estimated_lines"`
	DependsOn      []string `json:"depends_on"`
}

// RawResult is the planner transport's parsed response, before validation.
type RawResult struct {
	Tasks   []RawTask `json:"tasks"`
	Summary string    `json:"summary"`
}

// Transport is the contract an external LLM-backed implementation
// satisfies (internal/planner/anthropic.go is the concrete realisation).
type Transport interface {
	Generate(ctx context.Context, input Input) (*RawResult, error)
}

// ParseError is returned when the planner's reply is not valid JSON.
type ParseError struct{ Err error }

func (e *ParseError) Error() string { return fmt.Sprintf("planner: malformed JSON reply: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError is returned when the reply is valid JSON but lacks the
// required task array.
type SchemaError struct{ Reason string }

func (e *SchemaError) Error() string { return fmt.Sprintf("planner: schema error: %s", e.Reason) }

// DependencyError is returned when validation finds a depends_on target
// that is not present anywhere in the response.
type DependencyError struct {
	TaskID   string
	MissingID string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("planner: task %s depends on unknown id %s", e.TaskID, e.MissingID)
}

// IsDependencyError reports whether err is a DependencyError.
func IsDependencyError(err error) bool {
	_, ok := err.(*DependencyError)
	return ok
}

const (
	defaultEstimatedLines = 50
)

// ValidatedTask is one task after spec.md §4.G's validation pass: dedup'd
// dependencies, empty ids auto-assigned, self-references dropped, missing
// fields defaulted.
type ValidatedTask struct {
	ID             string
	Title          string
	Description    string
	EstimatedLines int
	DependsOn      []string
}

// Result is a validated, ready-to-persist plan decomposition.
type Result struct {
	Tasks   []ValidatedTask
	Summary string
}

// Validate applies spec.md §4.G's validation rules to a raw planner reply:
//   - every depends_on target must be present in the response (DependencyError)
//   - duplicate dependency ids are collapsed
//   - self-references are dropped silently
//   - an empty id is auto-assigned (task_001, task_002, ...)
//   - missing estimated_lines defaults to 50, missing description to title
func Validate(raw *RawResult) (*Result, error) {
	if raw == nil || len(raw.Tasks) == 0 {
		return nil, &SchemaError{Reason: "response has no tasks"}
	}

	ids := make(map[string]bool, len(raw.Tasks))
	autoCounter := 0
	assignedIDs := make([]string, len(raw.Tasks))
	for i, t := range raw.Tasks {
		tid := t.ID
		if tid == "" {
			autoCounter++
			tid = fmt.Sprintf("task_%03d", autoCounter)
			for ids[tid] {
				autoCounter++
				tid = fmt.Sprintf("task_%03d", autoCounter)
			}
		}
		assignedIDs[i] = tid
		ids[tid] = true
	}

	out := make([]ValidatedTask, 0, len(raw.Tasks))
	for i, t := range raw.Tasks {
		tid := assignedIDs[i]

		title := t.Title
		if title == "" {
			title = tid
		}
		desc := t.Description
		if desc == "" {
			desc = title
		}
		lines := t.EstimatedLines
		if lines <= 0 {
			lines = defaultEstimatedLines
		}

		seen := make(map[string]bool, len(t.DependsOn))
		var deps []string
		for _, dep := range t.DependsOn {
			if dep == tid || dep == "" {
				continue
			}
			if !ids[dep] {
				return nil, &DependencyError{TaskID: tid, MissingID: dep}
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
		}

		out = append(out, ValidatedTask{
			ID:             tid,
			Title:          title,
			Description:    desc,
			EstimatedLines: lines,
			DependsOn:      deps,
		})
	}

	return &Result{Tasks: out, Summary: raw.Summary}, nil
}

// Persist writes a validated result into the store under planID, following
// spec.md §4.G's two-pass flow: insert every task first (status=ready if
// its computed level is 0, else pending), then insert the edges. Levels
// are computed over the planner's opaque ids before any store identity
// exists, then translated once tasks are inserted.
func Persist(s *store.Store, planID string, result *Result) (map[string]string, error) {
	nodes := make([]graph.Node, 0, len(result.Tasks))
	var edges []graph.Edge
	for _, t := range result.Tasks {
		nodes = append(nodes, graph.Node{ID: t.ID, Status: store.TaskStatusPending})
		for _, dep := range t.DependsOn {
			edges = append(edges, graph.Edge{Task: t.ID, DependsOn: dep})
		}
	}

	g, err := graph.Build(nodes, edges)
	if err != nil {
		return nil, err
	}

	translation := make(map[string]string, len(result.Tasks))
	for _, t := range result.Tasks {
		level, _ := g.Level(t.ID)
		status := store.TaskStatusPending
		if level == 0 {
			status = store.TaskStatusReady
		}

		created, err := s.CreateTask(store.CreateTaskInput{
			PlanID:         planID,
			Title:          t.Title,
			Description:    t.Description,
			Status:         status,
			Level:          int64(level),
			EstimatedLines: int64(t.EstimatedLines),
		})
		if err != nil {
			return nil, err
		}
		translation[t.ID] = created.ID
	}

	for _, t := range result.Tasks {
		for _, dep := range t.DependsOn {
			if err := s.AddTaskDependency(translation[t.ID], translation[dep]); err != nil {
				return nil, err
			}
		}
	}

	return translation, nil
}

// Generate runs the full planning flow: transitions the plan draft ->
// planning, invokes the transport, validates its reply, persists the
// result, and moves the plan planning -> ready. On any failure the plan
// is restored to draft (spec.md §4.G persistence flow).
func Generate(ctx context.Context, s *store.Store, transport Transport, planID string, input Input) (*Result, map[string]string, error) {
	if err := s.UpdatePlanStatus(planID, store.PlanStatusPlanning); err != nil {
		return nil, nil, err
	}

	raw, err := transport.Generate(ctx, input)
	if err != nil {
		_ = s.UpdatePlanStatus(planID, store.PlanStatusDraft)
		return nil, nil, err
	}

	result, err := Validate(raw)
	if err != nil {
		_ = s.UpdatePlanStatus(planID, store.PlanStatusDraft)
		return nil, nil, err
	}

	translation, err := Persist(s, planID, result)
	if err != nil {
		_ = s.UpdatePlanStatus(planID, store.PlanStatusDraft)
		return nil, nil, err
	}

	if err := s.UpdatePlanStatus(planID, store.PlanStatusReady); err != nil {
		return nil, nil, err
	}

	return result, translation, nil
}
