// Package temporal adapts go.temporal.io/sdk to the engine.Engine contract
// so the DAG executor (internal/executor) can run its workflow/activities on
// Temporal without depending on Temporal types directly.
package temporal

import (
	"context"
	"fmt"
	"sync"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/telemetry"
)

// Options configures the Temporal engine adapter.
type Options struct {
	// Client is an optional pre-configured Temporal client. If nil, the
	// adapter creates a lazy client from ClientOptions.
	Client client.Client

	// ClientOptions describe how to construct the Temporal client when
	// Client is nil. Required in that case.
	ClientOptions *client.Options

	// TaskQueue is the default queue used when workflow/activity
	// registrations omit one. Required.
	TaskQueue string

	// WorkerOptions configures worker concurrency/identity, forwarded
	// directly to worker.New.
	WorkerOptions worker.Options

	// Logger, Metrics, Tracer back the telemetry surface exposed through
	// WorkflowContext. Nil means no-op implementations.
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer
}

// Engine implements engine.Engine using Temporal as the durable execution
// backend. One worker is created per unique task queue.
type Engine struct {
	client      client.Client
	closeClient bool

	defaultQueue string
	workerOpts   worker.Options

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	mu              sync.Mutex
	workers         map[string]worker.Worker
	workersStarted  bool
	workflows       map[string]engine.WorkflowDefinition
	activityOptions map[string]engine.ActivityOptions

	workflowContexts sync.Map // runID -> engine.WorkflowContext
}

// New constructs a Temporal engine adapter. Either Client or ClientOptions
// must be provided, and TaskQueue must be set.
func New(opts Options) (*Engine, error) {
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: a default task queue is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}

	cli := opts.Client
	closeClient := false
	if cli == nil {
		if opts.ClientOptions == nil {
			return nil, fmt.Errorf("temporal engine: client options are required when Client is nil")
		}
		var err error
		cli, err = client.NewLazyClient(*opts.ClientOptions)
		if err != nil {
			return nil, fmt.Errorf("temporal engine: create client: %w", err)
		}
		closeClient = true
	}

	return &Engine{
		client:          cli,
		closeClient:     closeClient,
		defaultQueue:    opts.TaskQueue,
		workerOpts:      opts.WorkerOptions,
		logger:          logger,
		metrics:         metrics,
		tracer:          tracer,
		workers:         make(map[string]worker.Worker),
		workflows:       make(map[string]engine.WorkflowDefinition),
		activityOptions: make(map[string]engine.ActivityOptions),
	}, nil
}

// RegisterWorkflow registers a workflow definition with the Temporal worker
// for its task queue (or the engine default, if unset).
func (e *Engine) RegisterWorkflow(_ context.Context, def engine.WorkflowDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("temporal engine: workflow name cannot be empty")
	}
	queue := def.TaskQueue
	if queue == "" {
		queue = e.defaultQueue
	}
	w, err := e.workerForQueue(queue)
	if err != nil {
		return err
	}

	w.RegisterWorkflowWithOptions(func(tctx workflow.Context, input any) (any, error) {
		wfCtx := newTemporalWorkflowContext(e, tctx)
		defer e.workflowContexts.Delete(wfCtx.RunID())
		return def.Handler(wfCtx, input)
	}, workflow.RegisterOptions{Name: def.Name})

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[def.Name]; exists {
		return fmt.Errorf("temporal engine: workflow %q already registered", def.Name)
	}
	e.workflows[def.Name] = def
	return nil
}

// RegisterActivity registers an activity handler. The wrapper injects the
// originating WorkflowContext (if tracked) so activity code can recover
// workflow-scoped telemetry.
func (e *Engine) RegisterActivity(_ context.Context, def engine.ActivityDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("temporal engine: activity name cannot be empty")
	}
	queue := def.Options.Queue
	if queue == "" {
		queue = e.defaultQueue
	}
	w, err := e.workerForQueue(queue)
	if err != nil {
		return err
	}

	w.RegisterActivityWithOptions(func(actx context.Context, input any) (any, error) {
		runID := activity.GetInfo(actx).WorkflowExecution.RunID
		if wf, ok := e.workflowContexts.Load(runID); ok {
			if typed, ok := wf.(engine.WorkflowContext); ok {
				actx = engine.WithWorkflowContext(actx, typed)
			}
		}
		return def.Handler(actx, input)
	}, activity.RegisterOptions{Name: def.Name})

	e.mu.Lock()
	e.activityOptions[def.Name] = def.Options
	e.mu.Unlock()
	return nil
}

// StartWorkflow launches a new workflow execution on Temporal. Workers for
// registered queues are started lazily on first call.
func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	if req.Workflow == "" {
		return nil, fmt.Errorf("temporal engine: workflow name is required")
	}
	def, err := e.workflowDefinition(req.Workflow)
	if err != nil {
		return nil, err
	}
	e.ensureWorkersStarted()

	queue := req.TaskQueue
	if queue == "" {
		queue = def.TaskQueue
	}
	if queue == "" {
		queue = e.defaultQueue
	}

	opts := client.StartWorkflowOptions{ID: req.ID, TaskQueue: queue}
	if rp := convertRetryPolicy(req.RetryPolicy); rp != nil {
		opts.RetryPolicy = rp
	}

	run, err := e.client.ExecuteWorkflow(ctx, opts, def.Name, req.Input)
	if err != nil {
		return nil, err
	}
	return &workflowHandle{run: run, client: e.client}, nil
}

// Handle reconstructs a WorkflowHandle for a previously started execution
// from its runtime workflow/run id, for the status reconciler (C7) and for
// cancellation after process restart. Temporal's client can always
// rehydrate a run handle from these two ids alone, so no local registry of
// live handles is needed.
func (e *Engine) Handle(_ context.Context, runtimeWorkflowID, runtimeRunID string) (engine.WorkflowHandle, error) {
	if runtimeWorkflowID == "" {
		return nil, fmt.Errorf("temporal engine: runtime workflow id is required")
	}
	run := e.client.GetWorkflow(context.Background(), runtimeWorkflowID, runtimeRunID)
	return &workflowHandle{run: run, client: e.client}, nil
}

// Worker returns a controller for starting/stopping all workers managed by
// this engine.
func (e *Engine) Worker() *WorkerController { return &WorkerController{engine: e} }

// Close gracefully shuts down the Temporal client if this adapter created it.
func (e *Engine) Close() error {
	if e.closeClient && e.client != nil {
		e.client.Close()
	}
	return nil
}

func (e *Engine) workerForQueue(queue string) (worker.Worker, error) {
	if queue == "" {
		queue = e.defaultQueue
	}
	if queue == "" {
		return nil, fmt.Errorf("temporal engine: no task queue configured")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workers[queue]; ok {
		return w, nil
	}
	w := worker.New(e.client, queue, e.workerOpts)
	e.workers[queue] = w
	if e.workersStarted {
		if err := w.Start(); err != nil {
			return nil, fmt.Errorf("temporal engine: start worker for queue %q: %w", queue, err)
		}
	}
	return w, nil
}

func (e *Engine) workflowDefinition(name string) (engine.WorkflowDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	def, ok := e.workflows[name]
	if !ok {
		return engine.WorkflowDefinition{}, fmt.Errorf("temporal engine: workflow %q is not registered", name)
	}
	return def, nil
}

func (e *Engine) activityDefaultsFor(name string) engine.ActivityOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activityOptions[name]
}

func (e *Engine) ensureWorkersStarted() {
	e.mu.Lock()
	if e.workersStarted {
		e.mu.Unlock()
		return
	}
	e.workersStarted = true
	workers := make([]worker.Worker, 0, len(e.workers))
	for _, w := range e.workers {
		workers = append(workers, w)
	}
	e.mu.Unlock()
	for _, w := range workers {
		_ = w.Start()
	}
}

// WorkerController starts/stops all workers owned by an Engine.
type WorkerController struct {
	engine *Engine
}

// Start launches all registered workers.
func (c *WorkerController) Start() error {
	c.engine.ensureWorkersStarted()
	return nil
}

// Stop gracefully stops all workers.
func (c *WorkerController) Stop() {
	c.engine.mu.Lock()
	workers := make([]worker.Worker, 0, len(c.engine.workers))
	for _, w := range c.engine.workers {
		workers = append(workers, w)
	}
	c.engine.mu.Unlock()
	for _, w := range workers {
		w.Stop()
	}
}
