package temporal

import (
	"context"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/telemetry"
)

type temporalWorkflowContext struct {
	eng        *Engine
	ctx        workflow.Context
	workflowID string
	runID      string
}

func newTemporalWorkflowContext(e *Engine, ctx workflow.Context) *temporalWorkflowContext {
	info := workflow.GetInfo(ctx)
	wfCtx := &temporalWorkflowContext{
		eng:        e,
		ctx:        ctx,
		workflowID: info.WorkflowExecution.ID,
		runID:      info.WorkflowExecution.RunID,
	}
	e.workflowContexts.Store(wfCtx.runID, wfCtx)
	return wfCtx
}

func (w *temporalWorkflowContext) Context() context.Context {
	return engine.WithWorkflowContext(context.Background(), w)
}

func (w *temporalWorkflowContext) WorkflowID() string { return w.workflowID }
func (w *temporalWorkflowContext) RunID() string       { return w.runID }

func (w *temporalWorkflowContext) ExecuteActivity(_ context.Context, req engine.ActivityRequest, result any) error {
	actx := workflow.WithActivityOptions(w.ctx, w.activityOptionsFor(req))
	return workflow.ExecuteActivity(actx, req.Name, req.Input).Get(actx, result)
}

func (w *temporalWorkflowContext) Logger() telemetry.Logger   { return w.eng.logger }
func (w *temporalWorkflowContext) Metrics() telemetry.Metrics { return w.eng.metrics }
func (w *temporalWorkflowContext) Tracer() telemetry.Tracer   { return w.eng.tracer }

func (w *temporalWorkflowContext) Now() time.Time { return workflow.Now(w.ctx) }

// Cancelled reports whether Temporal has requested cancellation of this
// workflow execution. Workflow.Context's Err() returns non-nil once a
// cancellation request has been delivered and processed.
func (w *temporalWorkflowContext) Cancelled() bool {
	return w.ctx.Err() != nil
}

func (w *temporalWorkflowContext) activityOptionsFor(req engine.ActivityRequest) workflow.ActivityOptions {
	defaults := w.eng.activityDefaultsFor(req.Name)

	queue := req.Queue
	if queue == "" {
		queue = defaults.Queue
	}
	if queue == "" {
		queue = w.eng.defaultQueue
	}

	startToClose := req.StartToClose
	if startToClose == 0 {
		startToClose = defaults.StartToClose
	}
	if startToClose == 0 {
		startToClose = engine.DefaultActivityStartToClose
	}

	retry := req.RetryPolicy
	if retry.MaxAttempts == 0 && retry.InitialInterval == 0 {
		retry = defaults.RetryPolicy
	}

	return workflow.ActivityOptions{
		ScheduleToStartTimeout: startToClose,
		StartToCloseTimeout:    startToClose,
		TaskQueue:              queue,
		RetryPolicy:            convertRetryPolicy(retry),
	}
}

func convertRetryPolicy(r engine.RetryPolicy) *temporal.RetryPolicy {
	if r.MaxAttempts == 0 && r.InitialInterval == 0 && r.BackoffCoefficient == 0 && r.MaxInterval == 0 {
		return nil
	}
	policy := &temporal.RetryPolicy{}
	if r.MaxAttempts > 0 {
		//nolint:gosec // MaxAttempts is bounded by the executor's retry policy construction.
		policy.MaximumAttempts = int32(r.MaxAttempts)
	}
	if r.InitialInterval > 0 {
		policy.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		policy.MaximumInterval = r.MaxInterval
	}
	if r.BackoffCoefficient > 0 {
		policy.BackoffCoefficient = r.BackoffCoefficient
	}
	return policy
}

// workflowHandle adapts a Temporal client.WorkflowRun to engine.WorkflowHandle.
type workflowHandle struct {
	run    client.WorkflowRun
	client client.Client
}

func (h *workflowHandle) Wait(ctx context.Context, result any) error {
	return h.run.Get(ctx, result)
}

func (h *workflowHandle) Cancel(ctx context.Context) error {
	return h.client.CancelWorkflow(ctx, h.run.GetID(), h.run.GetRunID())
}

// Query asks Temporal for the workflow's authoritative execution status via
// DescribeWorkflowExecution, used by the status reconciler (C7).
func (h *workflowHandle) Query(ctx context.Context) (engine.RuntimeStatus, error) {
	resp, err := h.client.DescribeWorkflowExecution(ctx, h.run.GetID(), h.run.GetRunID())
	if err != nil {
		return engine.RuntimeStatusUnknown, err
	}
	info := resp.GetWorkflowExecutionInfo()
	if info == nil {
		return engine.RuntimeStatusUnknown, nil
	}
	switch info.GetStatus().String() {
	case "Running", "ContinuedAsNew":
		return engine.RuntimeStatusRunning, nil
	case "Completed":
		return engine.RuntimeStatusCompleted, nil
	case "Failed", "Terminated", "TimedOut":
		return engine.RuntimeStatusFailed, nil
	case "Canceled":
		return engine.RuntimeStatusCancelled, nil
	default:
		return engine.RuntimeStatusUnknown, nil
	}
}
