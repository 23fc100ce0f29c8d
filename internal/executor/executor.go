// Package executor implements the DAG Executor (C5): a deterministic
// engine.WorkflowFunc that walks a workflow's (nodes, edges) in Kahn order,
// dispatches each node by type, and accumulates results into a shared
// state map. Action nodes are dispatched through engine.WorkflowContext's
// activity boundary so their HTTP I/O never runs inside the orchestration
// plane; condition and loop nodes are evaluated inline since they touch
// only already-accumulated state.
package executor

import (
	"fmt"

	"github.com/shankarbhavani/workflow-builder/internal/cond"
	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/interpolate"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// WorkflowName is the name this workflow is registered under with
// engine.Engine.RegisterWorkflow.
const WorkflowName = "workflow.execute"

// ActionActivityName is the name the action-invocation activity is
// registered under with engine.Engine.RegisterActivity.
const ActionActivityName = "workflow.invoke_action"

// Input is the WorkflowFunc's input, carrying everything the execution
// needs: the graph shape frozen at execution time (so a later edit to the
// workflow definition doesn't change a running execution) and the caller's
// inputs.
type Input struct {
	ExecutionID string
	Graph       model.Graph
	Inputs      map[string]any
}

// Output is the workflow's terminal result, mirroring spec.md §4.4's
// {status, data, errors} shape.
type Output struct {
	Status     model.ExecutionStatus
	Results    map[string]any
	FailedNode string
	Errors     []string
}

// ActionActivityInput is the payload handed to the action-invocation
// activity. Config is the already-interpolated node configuration —
// interpolation is pure and deterministic, so it runs in the workflow
// before the activity boundary, never inside the activity itself.
type ActionActivityInput struct {
	ExecutionID string
	NodeID      string
	ActionName  string
	Inputs      map[string]any
	Config      map[string]any
}

// ActionActivityOutput is the activity's result, decoded back into the
// workflow via WorkflowContext.ExecuteActivity.
type ActionActivityOutput struct {
	Status model.StepStatus
	Data   map[string]any
	Error  string
}

// Workflow is the engine.WorkflowFunc entry point for C5. It must remain
// deterministic: nodes are iterated in a stable, precomputed order, no
// wall-clock or random reads occur outside WorkflowContext.Now, and all
// network I/O happens behind ExecuteActivity.
func Workflow(ctx engine.WorkflowContext, rawInput any) (any, error) {
	input, ok := rawInput.(Input)
	if !ok {
		inputPtr, ok := rawInput.(*Input)
		if !ok {
			return nil, fmt.Errorf("executor: unexpected workflow input type %T", rawInput)
		}
		input = *inputPtr
	}

	order, skipped := kahnOrder(input.Graph)
	logger := ctx.Logger()
	for _, id := range skipped {
		logger.Warn(ctx.Context(), "node omitted from topological order, appended by insertion order", "node_id", id)
	}

	state := map[string]any{
		"inputs":  input.Inputs,
		"results": map[string]any{},
	}
	results := state["results"].(map[string]any)

	nodeByID := make(map[string]model.Node, len(input.Graph.Nodes))
	for _, n := range input.Graph.Nodes {
		nodeByID[n.ID] = n
	}

	var failedNode string
	var errs []string

	for _, id := range order {
		if ctx.Cancelled() {
			return Output{Status: model.ExecutionStatusCancelled, Results: results}, nil
		}
		node, ok := nodeByID[id]
		if !ok {
			continue
		}

		switch node.Type {
		case model.NodeTypeAction:
			status, data, errMsg := dispatchAction(ctx, input.ExecutionID, node, state)
			results[node.ID] = map[string]any{"status": string(status), "data": data, "error": errMsg}
			if status == model.StepStatusFailed {
				if failedNode == "" {
					failedNode = node.ID
				}
				errs = append(errs, fmt.Sprintf("node %q: %s", node.ID, errMsg))
			}

		case model.NodeTypeCondition:
			result, err := dispatchCondition(node, state)
			if err != nil {
				results[node.ID] = map[string]any{"status": string(model.StepStatusFailed), "error": err.Error()}
				if failedNode == "" {
					failedNode = node.ID
				}
				errs = append(errs, fmt.Sprintf("node %q: %s", node.ID, err.Error()))
				continue
			}
			results[node.ID] = map[string]any{"status": string(model.StepStatusSuccess), "result": result}

		case model.NodeTypeLoop:
			partner := structuralPartner(node.ID, order, input.Graph)
			items, skippedLoop := resolveLoopCollection(node, state)
			if skippedLoop {
				results[node.ID] = map[string]any{"status": string(model.StepStatusSkipped), "result": []any{}}
				continue
			}
			var iterResults []any
			for _, item := range items {
				if partner == nil {
					break
				}
				iterState := cloneStateWithLoopItem(state, item)
				status, data, errMsg := dispatchAction(ctx, input.ExecutionID, *partner, iterState)
				iterResults = append(iterResults, map[string]any{"status": string(status), "data": data, "error": errMsg})
				if status == model.StepStatusFailed && failedNode == "" {
					failedNode = partner.ID
					errs = append(errs, fmt.Sprintf("node %q: %s", partner.ID, errMsg))
				}
			}
			results[node.ID] = map[string]any{"status": string(model.StepStatusSuccess), "result": iterResults}

		default:
			results[node.ID] = map[string]any{"status": string(model.StepStatusSkipped), "error": fmt.Sprintf("unknown node type %q", node.Type)}
		}
	}

	out := Output{Status: model.ExecutionStatusCompleted, Results: results}
	if failedNode != "" {
		out.Status = model.ExecutionStatusFailed
		out.FailedNode = failedNode
		out.Errors = errs
	}
	return out, nil
}

func dispatchAction(ctx engine.WorkflowContext, executionID string, node model.Node, state map[string]any) (model.StepStatus, map[string]any, string) {
	if node.Action == nil {
		return model.StepStatusFailed, nil, fmt.Sprintf("node %q is type action but has no action data", node.ID)
	}
	interpolated := interpolate.Config(node.Action.Config, state)
	config, _ := interpolated.(map[string]any)

	req := engine.ActivityRequest{
		Name: ActionActivityName,
		Input: ActionActivityInput{
			ExecutionID: executionID,
			NodeID:      node.ID,
			ActionName:  node.Action.ActionName,
			Inputs:      asMap(state["inputs"]),
			Config:      config,
		},
		RetryPolicy:  engine.DefaultActivityRetryPolicy(),
		StartToClose: engine.DefaultActivityStartToClose,
	}

	var out ActionActivityOutput
	if err := ctx.ExecuteActivity(ctx.Context(), req, &out); err != nil {
		return model.StepStatusFailed, nil, err.Error()
	}
	return out.Status, out.Data, out.Error
}

// dispatchCondition resolves expr.Left as a dot-path into state (falling
// back to treating it as a literal when the path does not resolve) and
// evaluates it against expr.Right via the comparator in internal/cond.
func dispatchCondition(node model.Node, state map[string]any) (bool, error) {
	if node.Condition == nil {
		return false, fmt.Errorf("node is type condition but has no condition data")
	}
	expr := node.Condition.Condition
	left, ok := resolvePath(state, expr.Left)
	if !ok {
		left = expr.Left
	}
	return cond.Evaluate(expr, left)
}

func resolveLoopCollection(node model.Node, state map[string]any) ([]any, bool) {
	if node.Loop == nil {
		return nil, true
	}
	val, ok := resolvePath(state, node.Loop.Collection)
	if !ok {
		return nil, true
	}
	items, ok := val.([]any)
	if !ok {
		return nil, true
	}
	return items, false
}

func resolvePath(state map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	var cur any = state
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

func cloneStateWithLoopItem(state map[string]any, item any) map[string]any {
	clone := make(map[string]any, len(state)+1)
	for k, v := range state {
		clone[k] = v
	}
	clone["loop_item"] = item
	return clone
}

// structuralPartner returns the single action node immediately following
// loopID in topological order with no other predecessor — the loop's body
// node per spec.md §9 open question 2's one-level resolution.
func structuralPartner(loopID string, order []string, g model.Graph) *model.Node {
	idx := -1
	for i, id := range order {
		if id == loopID {
			idx = i
			break
		}
	}
	if idx == -1 || idx+1 >= len(order) {
		return nil
	}
	candidateID := order[idx+1]

	predecessors := map[string]int{}
	for _, e := range g.Edges {
		predecessors[e.Target]++
	}
	if predecessors[candidateID] != 1 {
		return nil
	}

	hasLoopEdge := false
	for _, e := range g.Edges {
		if e.Source == loopID && e.Target == candidateID {
			hasLoopEdge = true
			break
		}
	}
	if !hasLoopEdge {
		return nil
	}

	for _, n := range g.Nodes {
		if n.ID == candidateID && n.Type == model.NodeTypeAction {
			node := n
			return &node
		}
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// kahnOrder produces a total order over g.Nodes consistent with g.Edges
// using Kahn's algorithm, with insertion-order tie-breaking among ready
// nodes. Any node left unvisited (disconnected participant of a cycle that
// should have been rejected by the validator, but defended here anyway) is
// appended afterward in insertion order and reported in the second return
// value so the caller can log it.
func kahnOrder(g model.Graph) (order []string, skipped []string) {
	indexOf := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		indexOf[n.ID] = i
	}

	inDegree := make(map[string]int, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		if _, ok := indexOf[e.Source]; !ok {
			continue
		}
		if _, ok := indexOf[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	var ready []string
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	visited := make(map[string]bool, len(g.Nodes))
	for len(ready) > 0 {
		// Insertion-order tie-break: pick the lowest-index ready node.
		bestIdx, bestPos := -1, -1
		for pos, id := range ready {
			if bestIdx == -1 || indexOf[id] < bestIdx {
				bestIdx = indexOf[id]
				bestPos = pos
			}
		}
		next := ready[bestPos]
		ready = append(ready[:bestPos], ready[bestPos+1:]...)

		order = append(order, next)
		visited[next] = true

		for _, child := range adj[next] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) < len(g.Nodes) {
		for _, n := range g.Nodes {
			if !visited[n.ID] {
				order = append(order, n.ID)
				skipped = append(skipped, n.ID)
			}
		}
	}
	return order, skipped
}
