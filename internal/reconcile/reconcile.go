// Package reconcile implements the Status Reconciler (C7): it asks the
// durable runtime for an execution's authoritative status and merges it
// into the locally persisted Execution record, never moving a terminal
// local state backwards.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// HandleResolver looks up the engine.WorkflowHandle for a previously
// started execution by its runtime workflow/run id.
type HandleResolver interface {
	Handle(ctx context.Context, runtimeWorkflowID, runtimeRunID string) (engine.WorkflowHandle, error)
}

// Clock returns the current time; overridden in tests for deterministic
// CompletedAt assertions.
type Clock func() time.Time

// Reconciler pulls authoritative status for one execution at a time.
type Reconciler struct {
	Handles HandleResolver
	Now     Clock
}

// New constructs a Reconciler. A nil clock defaults to time.Now.
func New(handles HandleResolver, now Clock) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{Handles: handles, Now: now}
}

// Reconcile queries the runtime for exec's authoritative status and
// returns the execution with status/CompletedAt merged in place, following
// spec.md §4.6's rule: a terminal local state never moves backwards, and a
// conflicting non-terminal authoritative status is ignored outright.
func (r *Reconciler) Reconcile(ctx context.Context, exec model.Execution) (model.Execution, error) {
	if exec.Status.IsTerminal() {
		return exec, nil
	}

	handle, err := r.Handles.Handle(ctx, exec.RuntimeWorkflowID, exec.RuntimeRunID)
	if err != nil {
		return exec, fmt.Errorf("reconcile: resolve runtime handle: %w", err)
	}

	runtimeStatus, err := handle.Query(ctx)
	if err != nil {
		return exec, fmt.Errorf("reconcile: query runtime status: %w", err)
	}

	newStatus, ok := translate(runtimeStatus)
	if !ok {
		// Unknown/non-terminal authoritative status: leave the local
		// record untouched rather than guess.
		return exec, nil
	}
	if newStatus == exec.Status {
		return exec, nil
	}

	exec.Status = newStatus
	if newStatus.IsTerminal() {
		now := r.Now().UTC()
		exec.CompletedAt = &now
	}
	return exec, nil
}

// translate maps a runtime status to a local ExecutionStatus. RUNNING and
// UNKNOWN report ok=false since reconciliation only ever moves a record
// forward into a status it can act on.
func translate(s engine.RuntimeStatus) (model.ExecutionStatus, bool) {
	switch s {
	case engine.RuntimeStatusCompleted:
		return model.ExecutionStatusCompleted, true
	case engine.RuntimeStatusFailed:
		return model.ExecutionStatusFailed, true
	case engine.RuntimeStatusCancelled:
		return model.ExecutionStatusCancelled, true
	default:
		return "", false
	}
}
