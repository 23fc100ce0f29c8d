package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/graph"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

type stubResolver struct {
	active map[string]bool
}

func (s stubResolver) IsActive(_ context.Context, actionName string) (bool, error) {
	return s.active[actionName], nil
}

func actionNode(id, actionName string) model.Node {
	return model.Node{ID: id, Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: actionName}}
}

func TestValidate_SingleActionHappyPath(t *testing.T) {
	g := model.Graph{Nodes: []model.Node{actionNode("a", "ping")}}
	resolver := stubResolver{active: map[string]bool{"ping": true}}

	ok, errs := graph.Validate(context.Background(), g, resolver)

	require.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidate_TwoNodeTopological(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{actionNode("a", "ping"), actionNode("b", "notify")},
		Edges: []model.Edge{{ID: "e1", Source: "a", Target: "b", Type: model.EdgeTypeDefault}},
	}
	resolver := stubResolver{active: map[string]bool{"ping": true, "notify": true}}

	ok, errs := graph.Validate(context.Background(), g, resolver)

	require.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidate_CycleRejected(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{actionNode("a", "ping"), actionNode("b", "notify")},
		Edges: []model.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}
	resolver := stubResolver{active: map[string]bool{"ping": true, "notify": true}}

	ok, errs := graph.Validate(context.Background(), g, resolver)

	require.False(t, ok)
	assert.Contains(t, errs, "Workflow contains cycles")
}

func TestValidate_EmptyNodes(t *testing.T) {
	ok, errs := graph.Validate(context.Background(), model.Graph{}, nil)

	require.False(t, ok)
	assert.Contains(t, errs, "Workflow must contain at least one node")
}

func TestValidate_DanglingEdge(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{actionNode("a", "ping")},
		Edges: []model.Edge{{ID: "e1", Source: "a", Target: "missing"}},
	}

	ok, errs := graph.Validate(context.Background(), g, nil)

	require.False(t, ok)
	assert.Contains(t, errs, `edge "e1" references unknown target node "missing"`)
}

func TestValidate_NoSinkOrSource(t *testing.T) {
	// A 3-cycle has every node with in-degree 1 and out-degree 1: no
	// source, no sink, plus the cycle error — all three must be reported
	// since checks accumulate rather than short-circuit.
	g := model.Graph{
		Nodes: []model.Node{actionNode("a", "ping"), actionNode("b", "ping"), actionNode("c", "ping")},
		Edges: []model.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
			{ID: "e3", Source: "c", Target: "a"},
		},
	}
	resolver := stubResolver{active: map[string]bool{"ping": true}}

	ok, errs := graph.Validate(context.Background(), g, resolver)

	require.False(t, ok)
	assert.Contains(t, errs, "Workflow contains cycles")
	assert.Contains(t, errs, "Workflow must have at least one start node (in-degree 0)")
	assert.Contains(t, errs, "Workflow must have at least one end node (out-degree 0)")
}

func TestValidate_InactiveAction(t *testing.T) {
	g := model.Graph{Nodes: []model.Node{actionNode("a", "retired-action")}}
	resolver := stubResolver{active: map[string]bool{}}

	ok, errs := graph.Validate(context.Background(), g, resolver)

	require.False(t, ok)
	assert.Contains(t, errs, `node "a" references unknown or inactive action "retired-action"`)
}

func TestValidate_SelfLoopEdgeStillAccumulatesIndependentErrors(t *testing.T) {
	// source == target is technically disallowed at the model/API layer
	// (spec.md §3), but the validator's job is to report every problem it
	// can detect rather than assume upstream invariants hold.
	g := model.Graph{
		Nodes: []model.Node{actionNode("a", "ping")},
		Edges: []model.Edge{{ID: "e1", Source: "a", Target: "a"}},
	}
	resolver := stubResolver{active: map[string]bool{"ping": true}}

	ok, errs := graph.Validate(context.Background(), g, resolver)

	require.False(t, ok)
	assert.Contains(t, errs, "Workflow contains cycles")
}
