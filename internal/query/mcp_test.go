package query

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskctl/taskctl/internal/store"
)

func TestServerGetPlanNotFoundIsInlineError(t *testing.T) {
	s := setupTestDB(t)
	srv := NewServer(New(s), nil)

	var out bytes.Buffer
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"get_plan","params":{"plan_id":"ghost"}}` + "\n")
	require.NoError(t, srv.Run(context.Background(), in, &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Nil(t, resp.Error, "domain errors are inline, not protocol faults")

	resultBytes, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var er errorResult
	require.NoError(t, json.Unmarshal(resultBytes, &er))
	assert.Contains(t, er.Error, "not found")
}

func TestServerUnknownMethodIsProtocolFault(t *testing.T) {
	s := setupTestDB(t)
	srv := NewServer(New(s), nil)

	var out bytes.Buffer
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"nope"}` + "\n")
	require.NoError(t, srv.Run(context.Background(), in, &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, errCodeMethodNotFound, resp.Error.Code)
}

func TestServerListPlans(t *testing.T) {
	s := setupTestDB(t)
	project, err := s.CreateProject("demo", filepath.Join(t.TempDir(), "repo"), "main")
	require.NoError(t, err)
	_, err = s.CreatePlan(project.ID, "Plan A", "", "main")
	require.NoError(t, err)

	srv := NewServer(New(s), nil)
	var out bytes.Buffer
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"list_plans","params":{}}` + "\n")
	require.NoError(t, srv.Run(context.Background(), in, &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Nil(t, resp.Error)

	var plans []*store.Plan
	resultBytes, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resultBytes, &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "Plan A", plans[0].Title)
}
