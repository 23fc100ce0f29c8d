// Package graph implements the DAG Validator (C2): given a workflow's
// (nodes, edges) and a catalog lookup, decide whether the graph is a legal
// DAG with at least one start node and one end node and no dangling
// references.
package graph

import (
	"context"
	"fmt"

	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// ActionResolver resolves an action name to an active catalog entry. The
// validator only needs existence/activity, not the full Action.
type ActionResolver interface {
	IsActive(ctx context.Context, actionName string) (bool, error)
}

// color marks a node's DFS state for the iterative cycle check
// (spec.md §9: "iterative DFS with an explicit recursion stack to avoid
// stack overflow on large graphs").
type color int

const (
	white color = iota // unvisited
	grey               // on the current DFS stack
	black              // fully processed
)

// Validate runs the five ordered, fully-accumulating checks of spec.md
// §4.1 and returns every violation found (no short-circuiting). A nil
// resolver skips check 5 (action-name resolution).
func Validate(ctx context.Context, g model.Graph, resolver ActionResolver) (bool, []string) {
	var errs []string

	// 1. nodes non-empty.
	if len(g.Nodes) == 0 {
		errs = append(errs, "Workflow must contain at least one node")
	}

	nodeIndex := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		nodeIndex[n.ID] = i
	}

	// 2. every edge endpoint refers to an existing node id.
	for _, e := range g.Edges {
		if _, ok := nodeIndex[e.Source]; !ok {
			errs = append(errs, fmt.Sprintf("edge %q references unknown source node %q", e.ID, e.Source))
		}
		if _, ok := nodeIndex[e.Target]; !ok {
			errs = append(errs, fmt.Sprintf("edge %q references unknown target node %q", e.ID, e.Target))
		}
	}

	adjacency := buildAdjacency(g, nodeIndex)

	// 3. DAG-ness via iterative DFS with an explicit recursion stack.
	if hasCycle(g.Nodes, adjacency) {
		errs = append(errs, "Workflow contains cycles")
	}

	// 4. at least one in-degree-0 node and one out-degree-0 node.
	inDegree := make(map[string]int, len(g.Nodes))
	outDegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
		outDegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		if _, ok := nodeIndex[e.Source]; !ok {
			continue
		}
		if _, ok := nodeIndex[e.Target]; !ok {
			continue
		}
		outDegree[e.Source]++
		inDegree[e.Target]++
	}
	if len(g.Nodes) > 0 {
		if !hasValue(inDegree, 0) {
			errs = append(errs, "Workflow must have at least one start node (in-degree 0)")
		}
		if !hasValue(outDegree, 0) {
			errs = append(errs, "Workflow must have at least one end node (out-degree 0)")
		}
	}

	// 5. every action node's data.action_name resolves to an active
	// catalog entry.
	if resolver != nil {
		for _, n := range g.Nodes {
			if n.Type != model.NodeTypeAction || n.Action == nil {
				continue
			}
			active, err := resolver.IsActive(ctx, n.Action.ActionName)
			if err != nil {
				errs = append(errs, fmt.Sprintf("node %q: failed to resolve action %q: %v", n.ID, n.Action.ActionName, err))
				continue
			}
			if !active {
				errs = append(errs, fmt.Sprintf("node %q references unknown or inactive action %q", n.ID, n.Action.ActionName))
			}
		}
	}

	return len(errs) == 0, errs
}

func buildAdjacency(g model.Graph, nodeIndex map[string]int) map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		adj[n.ID] = nil
	}
	for _, e := range g.Edges {
		if _, ok := nodeIndex[e.Source]; !ok {
			continue
		}
		if _, ok := nodeIndex[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	return adj
}

// hasCycle detects a back edge using an iterative DFS with an explicit
// stack, visiting nodes in insertion order so the result is deterministic.
func hasCycle(nodes []model.Node, adj map[string][]string) bool {
	colors := make(map[string]color, len(nodes))
	for _, n := range nodes {
		colors[n.ID] = white
	}

	type frame struct {
		node string
		idx  int // next child index to visit
	}

	for _, start := range nodes {
		if colors[start.ID] != white {
			continue
		}
		stack := []frame{{node: start.ID}}
		colors[start.ID] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := adj[top.node]
			if top.idx >= len(children) {
				colors[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.idx]
			top.idx++
			switch colors[child] {
			case grey:
				return true
			case white:
				colors[child] = grey
				stack = append(stack, frame{node: child})
			}
		}
	}
	return false
}

func hasValue(m map[string]int, v int) bool {
	for _, x := range m {
		if x == v {
			return true
		}
	}
	return false
}
