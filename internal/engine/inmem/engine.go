// Package inmem provides an in-memory engine.Engine implementation for local
// development and tests. It runs each workflow on its own goroutine and
// executes activities synchronously; it is not replay-safe and must not be
// used in production.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/telemetry"
)

type (
	// Engine is the in-memory engine.Engine implementation.
	Engine struct {
		mu         sync.RWMutex
		workflows  map[string]engine.WorkflowDefinition
		activities map[string]activityEntry
		statuses   map[string]engine.RuntimeStatus
		handles    map[string]*handle

		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}

	activityEntry struct {
		handler engine.ActivityFunc
		opts    engine.ActivityOptions
	}

	workflowCtx struct {
		id      string
		runID   string
		eng     *Engine
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer

		cancelled chan struct{}
	}

	handle struct {
		eng      *Engine
		runID    string
		done     chan struct{}
		result   any
		err      error
		cancelFn func()
	}
)

// New returns an Engine suitable for local development and tests.
func New(logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) *Engine {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Engine{
		workflows:  make(map[string]engine.WorkflowDefinition),
		activities: make(map[string]activityEntry),
		statuses:   make(map[string]engine.RuntimeStatus),
		handles:    make(map[string]*handle),
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// RegisterWorkflow registers a workflow definition.
func (e *Engine) RegisterWorkflow(_ context.Context, def engine.WorkflowDefinition) error {
	if def.Name == "" || def.Handler == nil {
		return errors.New("inmem engine: invalid workflow definition")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.workflows[def.Name]; dup {
		return fmt.Errorf("inmem engine: workflow %q already registered", def.Name)
	}
	e.workflows[def.Name] = def
	return nil
}

// RegisterActivity registers an activity handler.
func (e *Engine) RegisterActivity(_ context.Context, def engine.ActivityDefinition) error {
	if def.Name == "" || def.Handler == nil {
		return errors.New("inmem engine: invalid activity definition")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.activities[def.Name]; dup {
		return fmt.Errorf("inmem engine: activity %q already registered", def.Name)
	}
	e.activities[def.Name] = activityEntry{handler: def.Handler, opts: def.Options}
	return nil
}

// StartWorkflow runs the named workflow definition on a new goroutine.
func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	e.mu.RLock()
	def, ok := e.workflows[req.Workflow]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("inmem engine: workflow %q not registered", req.Workflow)
	}
	if req.ID == "" {
		return nil, errors.New("inmem engine: workflow id is required")
	}

	wctx := &workflowCtx{
		id:        req.ID,
		runID:     req.ID,
		eng:       e,
		logger:    e.logger,
		metrics:   e.metrics,
		tracer:    e.tracer,
		cancelled: make(chan struct{}),
	}
	h := &handle{eng: e, runID: req.ID, done: make(chan struct{}), cancelFn: func() { closeOnce(wctx.cancelled) }}

	e.setStatus(req.ID, engine.RuntimeStatusRunning)
	e.mu.Lock()
	e.handles[req.ID] = h
	e.mu.Unlock()

	go func() {
		defer close(h.done)
		res, err := def.Handler(wctx, req.Input)
		h.result, h.err = res, err
		switch {
		case errors.Is(err, context.Canceled):
			e.setStatus(req.ID, engine.RuntimeStatusCancelled)
		case err != nil:
			e.setStatus(req.ID, engine.RuntimeStatusFailed)
		default:
			e.setStatus(req.ID, engine.RuntimeStatusCompleted)
		}
	}()

	return h, nil
}

// Handle looks up the in-process handle for a previously started execution
// by its runtime workflow id (runtimeRunID is ignored: this adapter only
// ever assigns one run per workflow id). Unlike the Temporal adapter, a
// handle lost on process restart cannot be rehydrated.
func (e *Engine) Handle(_ context.Context, runtimeWorkflowID, _ string) (engine.WorkflowHandle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handles[runtimeWorkflowID]
	if !ok {
		return nil, fmt.Errorf("inmem engine: unknown run %q", runtimeWorkflowID)
	}
	return h, nil
}

func (e *Engine) setStatus(runID string, status engine.RuntimeStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses[runID] = status
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (w *workflowCtx) Context() context.Context {
	return engine.WithWorkflowContext(context.Background(), w)
}
func (w *workflowCtx) WorkflowID() string       { return w.id }
func (w *workflowCtx) RunID() string            { return w.runID }
func (w *workflowCtx) Logger() telemetry.Logger { return w.logger }
func (w *workflowCtx) Metrics() telemetry.Metrics { return w.metrics }
func (w *workflowCtx) Tracer() telemetry.Tracer { return w.tracer }
func (w *workflowCtx) Now() time.Time           { return time.Now() }

func (w *workflowCtx) Cancelled() bool {
	select {
	case <-w.cancelled:
		return true
	default:
		return false
	}
}

func (w *workflowCtx) ExecuteActivity(ctx context.Context, req engine.ActivityRequest, result any) error {
	w.eng.mu.RLock()
	entry, ok := w.eng.activities[req.Name]
	w.eng.mu.RUnlock()
	if !ok {
		return fmt.Errorf("inmem engine: activity %q not registered", req.Name)
	}
	res, err := entry.handler(ctx, req.Input)
	if err != nil {
		return err
	}
	assignResult(result, res)
	return nil
}

func (h *handle) Wait(ctx context.Context, result any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		if h.err != nil {
			return h.err
		}
		assignResult(result, h.result)
		return nil
	}
}

func (h *handle) Cancel(context.Context) error {
	h.cancelFn()
	return nil
}

func (h *handle) Query(context.Context) (engine.RuntimeStatus, error) {
	h.eng.mu.RLock()
	defer h.eng.mu.RUnlock()
	status, ok := h.eng.statuses[h.runID]
	if !ok {
		return engine.RuntimeStatusUnknown, fmt.Errorf("inmem engine: unknown run %q", h.runID)
	}
	return status, nil
}

// assignResult copies src into the value pointed to by dst, when the types
// are compatible. Used instead of JSON round-tripping since the in-memory
// engine runs handlers in-process and can pass values directly.
func assignResult(dst, src any) {
	if dst == nil || src == nil {
		return
	}
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return
	}
	sv := reflect.ValueOf(src)
	if sv.IsValid() && sv.Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(sv)
		return
	}
	if dv.Elem().Kind() == reflect.Interface && sv.Type().Implements(dv.Elem().Type()) {
		dv.Elem().Set(sv)
	}
}
