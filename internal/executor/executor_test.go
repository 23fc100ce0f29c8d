package executor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/activityclient"
	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/engine/inmem"
	"github.com/shankarbhavani/workflow-builder/internal/executor"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

type stubResolver struct{ actions map[string]*model.Action }

func (s stubResolver) Get(_ context.Context, name string) (*model.Action, error) {
	return s.actions[name], nil
}

type nullLogs struct{}

func (nullLogs) AppendExecutionLog(_ context.Context, _ model.ExecutionLog) error { return nil }

func newTestEngine(t *testing.T, resolver executor.ActionResolver) engine.Engine {
	t.Helper()
	eng := inmem.New(nil, nil, nil)
	ctx := context.Background()
	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{Name: executor.WorkflowName, Handler: executor.Workflow}))
	act := &executor.ActionActivity{Resolver: resolver, Invoker: activityclient.New(), Logs: nullLogs{}}
	require.NoError(t, eng.RegisterActivity(ctx, engine.ActivityDefinition{Name: executor.ActionActivityName, Handler: act.Handle}))
	return eng
}

func TestWorkflow_TwoNodeTopologicalInterpolatesPriorResult(t *testing.T) {
	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":"hi"}`))
	}))
	defer serverA.Close()

	var receivedMsg string
	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data map[string]any `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if v, ok := body.Data["msg"].(string); ok {
			receivedMsg = v
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer serverB.Close()

	resolver := stubResolver{actions: map[string]*model.Action{
		"action-a": {ActionName: "action-a", Endpoint: serverA.URL, IsActive: true},
		"action-b": {ActionName: "action-b", Endpoint: serverB.URL, IsActive: true},
	}}
	eng := newTestEngine(t, resolver)

	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "action-a"}},
			{ID: "b", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "action-b", Config: map[string]any{"msg": "{{results.a.data.value}}"}}},
		},
		Edges: []model.Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "exec-1",
		Workflow: executor.WorkflowName,
		Input:    executor.Input{ExecutionID: "exec-1", Graph: g, Inputs: map[string]any{}},
	})
	require.NoError(t, err)

	var out executor.Output
	require.NoError(t, handle.Wait(context.Background(), &out))

	assert.Equal(t, model.ExecutionStatusCompleted, out.Status)
	assert.Equal(t, "hi", receivedMsg)
}

func TestWorkflow_FailedActionMarksExecutionFailedButContinues(t *testing.T) {
	serverFail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer serverFail.Close()

	var bCalled bool
	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bCalled = true
		_, _ = w.Write([]byte(`{}`))
	}))
	defer serverB.Close()

	resolver := stubResolver{actions: map[string]*model.Action{
		"will-fail": {ActionName: "will-fail", Endpoint: serverFail.URL, IsActive: true},
		"action-b":  {ActionName: "action-b", Endpoint: serverB.URL, IsActive: true},
	}}
	eng := newTestEngine(t, resolver)

	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "will-fail"}},
			{ID: "b", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "action-b"}},
		},
	}

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "exec-2",
		Workflow: executor.WorkflowName,
		Input:    executor.Input{ExecutionID: "exec-2", Graph: g, Inputs: map[string]any{}},
	})
	require.NoError(t, err)

	var out executor.Output
	require.NoError(t, handle.Wait(context.Background(), &out))

	assert.Equal(t, model.ExecutionStatusFailed, out.Status)
	assert.Equal(t, "a", out.FailedNode)
	assert.True(t, bCalled, "independent node b must still run despite a's failure")
}

func TestWorkflow_ConditionNodeEvaluatesAgainstAccumulatedState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}))
	defer server.Close()

	resolver := stubResolver{actions: map[string]*model.Action{
		"check": {ActionName: "check", Endpoint: server.URL, IsActive: true},
	}}
	eng := newTestEngine(t, resolver)

	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "check"}},
			{ID: "c", Type: model.NodeTypeCondition, Condition: &model.ConditionData{
				Condition: model.CondExpr{Left: "results.a.data.status", Operator: "eq", Right: "ready"},
			}},
		},
		Edges: []model.Edge{{ID: "e1", Source: "a", Target: "c"}},
	}

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "exec-3",
		Workflow: executor.WorkflowName,
		Input:    executor.Input{ExecutionID: "exec-3", Graph: g, Inputs: map[string]any{}},
	})
	require.NoError(t, err)

	var out executor.Output
	require.NoError(t, handle.Wait(context.Background(), &out))

	require.Equal(t, model.ExecutionStatusCompleted, out.Status)
	cResult := out.Results["c"].(map[string]any)
	assert.Equal(t, true, cResult["result"])
}

func TestWorkflow_CancelledMidFlightStopsDispatch(t *testing.T) {
	block := make(chan struct{})
	var bCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bCalled = true
		_, _ = w.Write([]byte(`{}`))
	}))
	defer serverB.Close()

	resolver := stubResolver{actions: map[string]*model.Action{
		"slow":     {ActionName: "slow", Endpoint: server.URL, IsActive: true},
		"action-b": {ActionName: "action-b", Endpoint: serverB.URL, IsActive: true},
	}}
	eng := newTestEngine(t, resolver)

	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "slow"}},
			{ID: "b", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "action-b"}},
		},
		Edges: []model.Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	ctx := context.Background()
	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "exec-4",
		Workflow: executor.WorkflowName,
		Input:    executor.Input{ExecutionID: "exec-4", Graph: g, Inputs: map[string]any{}},
	})
	require.NoError(t, err)

	// Cancel while node a's activity is still in flight; the cancellation
	// is only observed between node dispatches, so node a still completes
	// but node b must never be reached.
	require.NoError(t, handle.Cancel(ctx))
	close(block)

	var out executor.Output
	require.NoError(t, handle.Wait(ctx, &out))
	assert.Equal(t, model.ExecutionStatusCancelled, out.Status)
	assert.False(t, bCalled, "node b must not run once cancellation is observed before its dispatch")
}
