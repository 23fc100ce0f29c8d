// Package engine defines the contract the DAG executor requires from a
// durable execution backend: workflow/activity registration, deterministic
// replay-safe workflow context, and activity scheduling with retry. The
// backend itself (Temporal, or an in-memory adapter for tests) is plugged
// in behind this interface so the executor never depends on a concrete
// engine's types.
package engine

import (
	"context"
	"time"

	"github.com/shankarbhavani/workflow-builder/internal/telemetry"
)

type (
	// Engine abstracts workflow/activity registration and execution so the
	// Temporal adapter and the in-memory adapter are interchangeable.
	Engine interface {
		// RegisterWorkflow registers a workflow definition. Must be called
		// during startup before StartWorkflow.
		RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error

		// RegisterActivity registers an activity definition. Must be called
		// during startup before the workflow that calls it is started.
		RegisterActivity(ctx context.Context, def ActivityDefinition) error

		// StartWorkflow launches a new workflow execution and returns a
		// handle for waiting, querying, or cancelling it. req.ID must be
		// unique for the engine instance.
		StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)
	}

	// WorkflowDefinition binds a workflow handler to a logical name and
	// default task queue.
	WorkflowDefinition struct {
		Name      string
		TaskQueue string
		Handler   WorkflowFunc
	}

	// WorkflowFunc is the executor's entry point. It must be deterministic:
	// same execution sequence given the same inputs and activity results, no
	// wall-clock reads, no randomness, no unordered iteration, no I/O outside
	// ExecuteActivity.
	WorkflowFunc func(ctx WorkflowContext, input any) (any, error)

	// WorkflowContext exposes engine operations to a running workflow.
	// Implementations must preserve deterministic replay: every operation
	// that touches engine state must be replay-stable.
	WorkflowContext interface {
		// Context returns a Go context carrying this WorkflowContext (see
		// WithWorkflowContext), for passing to ExecuteActivity. It is not
		// cancelled when the workflow is cancelled; check Cancelled for that.
		Context() context.Context

		// WorkflowID returns the unique identifier for this execution.
		WorkflowID() string

		// RunID returns the engine-assigned run identifier.
		RunID() string

		// ExecuteActivity schedules an activity and blocks for its result,
		// decoding the activity's return value into result.
		ExecuteActivity(ctx context.Context, req ActivityRequest, result any) error

		// Logger returns a logger scoped to this workflow execution.
		Logger() telemetry.Logger

		// Metrics returns a metrics recorder for workflow-scoped metrics.
		Metrics() telemetry.Metrics

		// Tracer returns a tracer for spans within the workflow.
		Tracer() telemetry.Tracer

		// Now returns the current time in a deterministic, replay-safe
		// manner (Temporal's workflow.Now; the in-memory adapter, which
		// never replays, returns the wall clock).
		Now() time.Time

		// Cancelled reports whether the engine has requested cancellation
		// of this workflow. The workflow handler must check this between
		// node dispatches to honour spec.md's cancellation contract.
		Cancelled() bool
	}

	// ActivityDefinition registers an activity handler with defaults.
	ActivityDefinition struct {
		Name    string
		Handler ActivityFunc
		Options ActivityOptions
	}

	// ActivityFunc handles an activity invocation with a plain Go context;
	// unlike workflow handlers, activities may perform I/O freely.
	ActivityFunc func(ctx context.Context, input any) (any, error)

	// ActivityOptions configures retry/timeout for an activity.
	ActivityOptions struct {
		Queue           string
		RetryPolicy     RetryPolicy
		StartToClose    time.Duration
	}

	// WorkflowStartRequest describes how to launch a workflow execution.
	WorkflowStartRequest struct {
		ID        string
		Workflow  string
		TaskQueue string
		Input     any
		RetryPolicy RetryPolicy
	}

	// ActivityRequest contains what's needed to schedule an activity from a
	// workflow.
	ActivityRequest struct {
		Name        string
		Input       any
		Queue       string
		RetryPolicy RetryPolicy
		StartToClose time.Duration
	}

	// WorkflowHandle lets callers interact with a running (or completed)
	// workflow execution.
	WorkflowHandle interface {
		// Wait blocks until the workflow completes, decoding its return
		// value into result.
		Wait(ctx context.Context, result any) error

		// Cancel requests cancellation of the workflow.
		Cancel(ctx context.Context) error

		// Query asks the durable runtime for the workflow's authoritative
		// status, for use by the status reconciler (C7). When the status
		// cannot be determined, the adapters return RuntimeStatusUnknown
		// rather than guessing a terminal state; the reconciler leaves the
		// execution untouched in that case, as it does for RUNNING.
		Query(ctx context.Context) (RuntimeStatus, error)
	}

	// RuntimeStatus is the authoritative status reported by the durable
	// runtime, independent of the locally persisted Execution record.
	RuntimeStatus string

	// RetryPolicy defines retry semantics shared by workflows and
	// activities. Zero-valued fields mean "use the engine default".
	RetryPolicy struct {
		MaxAttempts        int
		InitialInterval    time.Duration
		MaxInterval        time.Duration
		BackoffCoefficient float64
	}
)

// Runtime status values reported by WorkflowHandle.Query.
const (
	RuntimeStatusRunning   RuntimeStatus = "RUNNING"
	RuntimeStatusCompleted RuntimeStatus = "COMPLETED"
	RuntimeStatusFailed    RuntimeStatus = "FAILED"
	RuntimeStatusCancelled RuntimeStatus = "CANCELLED"
	RuntimeStatusUnknown   RuntimeStatus = "UNKNOWN"
)

// DefaultActivityRetryPolicy is the policy spec.md §4.4 prescribes for
// action-node activities: max 3 attempts, 1s initial interval, 10s max
// interval, coefficient 2.0.
func DefaultActivityRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		MaxInterval:        10 * time.Second,
		BackoffCoefficient: 2.0,
	}
}

// DefaultActivityStartToClose is the 5-minute start-to-close timeout
// spec.md §4.4/§5 prescribes for action-node activities.
const DefaultActivityStartToClose = 5 * time.Minute
