package query

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Request is one stdio-framed JSON-RPC request (spec.md §6: "Stdio-framed
// JSON-RPC request/response surface").
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response. Unlike a protocol-level fault, a
// domain error is carried in Result as {"error": "..."} (spec.md §6: "so
// the client can render them inline") rather than in Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is only used for protocol-level faults (unparseable request,
// unknown method) — never for a domain NotFound/Ambiguous, which is
// rendered inline per spec.md §6.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeParse          = -32700
	errCodeMethodNotFound = -32601
	errCodeInvalidParams  = -32602
)

// errorResult is the inline {"error": "..."} shape every domain failure
// is wrapped in (spec.md §6).
type errorResult struct {
	Error string `json:"error"`
}

// Server is a single-threaded cooperative stdio MCP reader (spec.md §5:
// "never mutate [the store] in Phase 1"). Requests are served strictly in
// arrival order off a bufio.Scanner loop, grounded on
// emergent-company-specmcp's internal/mcp/server.go stdio transport,
// narrowed to the five read methods spec.md §6 names instead of a full
// tools/prompts/resources registry.
type Server struct {
	surface *Surface
	logger  *zap.SugaredLogger
}

// NewServer returns an MCP server over surface.
func NewServer(surface *Surface, logger *zap.SugaredLogger) *Server {
	return &Server{surface: surface, logger: logger}
}

// Run reads JSON-RPC requests from r and writes responses to w until r is
// exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handle(line)
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("mcp: writing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("mcp: reading request stream: %w", err)
	}
	return nil
}

// RunStdio is the cmd/taskctl entry point: serve over os.Stdin/os.Stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("mcp server listening on stdio")
	}
	return s.Run(ctx, os.Stdin, os.Stdout)
}

func (s *Server) handle(line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{JSONRPC: "2.0", Error: &RPCError{Code: errCodeParse, Message: "parse error: " + err.Error()}}
	}

	result, rpcErr := s.dispatch(&req)
	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) dispatch(req *Request) (any, *RPCError) {
	switch req.Method {
	case "get_plan":
		return s.getPlan(req.Params)
	case "list_plans":
		return s.listPlans(req.Params)
	case "get_task":
		return s.getTask(req.Params)
	case "list_tasks":
		return s.listTasks(req.Params)
	case "get_current_task":
		return s.getCurrentTask(req.Params)
	default:
		if s.logger != nil {
			s.logger.Warnw("mcp: unknown method", "method", req.Method)
		}
		return nil, &RPCError{Code: errCodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func asErrorResult(err error) any { return errorResult{Error: err.Error()} }

type planIDParams struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) getPlan(params json.RawMessage) (any, *RPCError) {
	var p planIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: errCodeInvalidParams, Message: err.Error()}
	}
	result, err := s.surface.PlanWithProgress(p.PlanID)
	if err != nil {
		return asErrorResult(err), nil
	}
	return result, nil
}

type listPlansParams struct {
	Status string `json:"status"`
}

func (s *Server) listPlans(params json.RawMessage) (any, *RPCError) {
	var p listPlansParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: errCodeInvalidParams, Message: err.Error()}
		}
	}
	plans, err := s.surface.ListPlans(p.Status)
	if err != nil {
		return asErrorResult(err), nil
	}
	return plans, nil
}

type taskIDParams struct {
	TaskID string `json:"task_id"`
}

func (s *Server) getTask(params json.RawMessage) (any, *RPCError) {
	var p taskIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: errCodeInvalidParams, Message: err.Error()}
	}
	result, err := s.surface.TaskWithNeighbours(p.TaskID)
	if err != nil {
		return asErrorResult(err), nil
	}
	return result, nil
}

type listTasksParams struct {
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
	Level  *int64 `json:"level"`
}

func (s *Server) listTasks(params json.RawMessage) (any, *RPCError) {
	var p listTasksParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: errCodeInvalidParams, Message: err.Error()}
		}
	}
	tasks, err := s.surface.ListTasks(ListTasksFilter{PlanID: p.PlanID, Status: p.Status, Level: p.Level})
	if err != nil {
		return asErrorResult(err), nil
	}
	return tasks, nil
}

type currentTaskParams struct {
	Branch    string `json:"branch"`
	SessionID string `json:"session_id"`
}

func (s *Server) getCurrentTask(params json.RawMessage) (any, *RPCError) {
	var p currentTaskParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: errCodeInvalidParams, Message: err.Error()}
		}
	}
	result, err := s.surface.CurrentTask(p.Branch, p.SessionID)
	if err != nil {
		return asErrorResult(err), nil
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}
