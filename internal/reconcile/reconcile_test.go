package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/model"
	"github.com/shankarbhavani/workflow-builder/internal/reconcile"
)

type stubHandle struct {
	status engine.RuntimeStatus
	err    error
}

func (h stubHandle) Wait(context.Context, any) error     { return nil }
func (h stubHandle) Cancel(context.Context) error        { return nil }
func (h stubHandle) Query(context.Context) (engine.RuntimeStatus, error) {
	return h.status, h.err
}

type stubResolver struct {
	handle engine.WorkflowHandle
	err    error
}

func (r stubResolver) Handle(context.Context, string, string) (engine.WorkflowHandle, error) {
	return r.handle, r.err
}

func TestReconcile_TerminalLocalStateNeverTouched(t *testing.T) {
	r := reconcile.New(stubResolver{handle: stubHandle{status: engine.RuntimeStatusRunning}}, nil)
	exec := model.Execution{Status: model.ExecutionStatusCompleted}

	out, err := r.Reconcile(context.Background(), exec)

	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCompleted, out.Status)
}

func TestReconcile_RunningToCompletedSetsCompletedAt(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	r := reconcile.New(stubResolver{handle: stubHandle{status: engine.RuntimeStatusCompleted}}, func() time.Time { return fixed })
	exec := model.Execution{Status: model.ExecutionStatusRunning}

	out, err := r.Reconcile(context.Background(), exec)

	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCompleted, out.Status)
	require.NotNil(t, out.CompletedAt)
	assert.Equal(t, fixed, *out.CompletedAt)
}

func TestReconcile_ConflictingNonTerminalStatusIgnored(t *testing.T) {
	r := reconcile.New(stubResolver{handle: stubHandle{status: engine.RuntimeStatusUnknown}}, nil)
	exec := model.Execution{Status: model.ExecutionStatusRunning}

	out, err := r.Reconcile(context.Background(), exec)

	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusRunning, out.Status)
	assert.Nil(t, out.CompletedAt)
}

func TestReconcile_HandleLookupFailureReturnsOriginal(t *testing.T) {
	r := reconcile.New(stubResolver{err: assert.AnError}, nil)
	exec := model.Execution{Status: model.ExecutionStatusRunning}

	out, err := r.Reconcile(context.Background(), exec)

	require.Error(t, err)
	assert.Equal(t, model.ExecutionStatusRunning, out.Status)
}
