package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shankarbhavani/workflow-builder/internal/activityclient"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// ActionResolver resolves an action name to its invocation target. This is
// the "external action lookup" C5 needs at the activity boundary — it runs
// outside the orchestration plane so catalog I/O (and its own caching)
// never touches deterministic workflow code.
type ActionResolver interface {
	Get(ctx context.Context, actionName string) (*model.Action, error)
}

// StepLogger records a best-effort audit entry for one node's execution
// attempt. Logging happens from the activity side (spec.md §4.4: "step
// logs are... best-effort side effects from the activity side, not from
// within deterministic orchestration code"), so a logging failure never
// fails the activity itself.
type StepLogger interface {
	AppendExecutionLog(ctx context.Context, log model.ExecutionLog) error
}

// ActionActivity is the I/O-performing handler behind ActionActivityName:
// it resolves the action's endpoint, invokes it over HTTP via
// activityclient, and appends a step log, all on the free-I/O activity
// plane.
type ActionActivity struct {
	Resolver     ActionResolver
	Invoker      *activityclient.Invoker
	Logs         StepLogger
	AuthUser     string
	AuthPassword string
}

// Handle implements engine.ActivityFunc.
func (a *ActionActivity) Handle(ctx context.Context, rawInput any) (any, error) {
	input, ok := rawInput.(ActionActivityInput)
	if !ok {
		inputPtr, ok := rawInput.(*ActionActivityInput)
		if !ok {
			return nil, fmt.Errorf("executor: unexpected activity input type %T", rawInput)
		}
		input = *inputPtr
	}

	out := a.invoke(ctx, input)
	a.logStep(ctx, input, out)
	return out, nil
}

func (a *ActionActivity) invoke(ctx context.Context, input ActionActivityInput) ActionActivityOutput {
	action, err := a.Resolver.Get(ctx, input.ActionName)
	if err != nil {
		return ActionActivityOutput{Status: model.StepStatusFailed, Error: fmt.Sprintf("resolve action %q: %v", input.ActionName, err)}
	}
	if action == nil || !action.IsActive {
		return ActionActivityOutput{Status: model.StepStatusFailed, Error: fmt.Sprintf("action %q is unknown or inactive", input.ActionName)}
	}

	result := a.Invoker.Invoke(ctx, activityclient.Request{
		ActionName: input.ActionName,
		Endpoint:   action.Endpoint,
		HTTPMethod: action.HTTPMethod,
		EventData:  input.Inputs,
		Data:       input.Config,
		AuthUser:   a.AuthUser,
		AuthPassword: a.AuthPassword,
	})

	if result.Status == activityclient.StatusFailed {
		return ActionActivityOutput{Status: model.StepStatusFailed, Error: result.Error}
	}
	return ActionActivityOutput{Status: model.StepStatusSuccess, Data: result.Data}
}

func (a *ActionActivity) logStep(ctx context.Context, input ActionActivityInput, out ActionActivityOutput) {
	if a.Logs == nil {
		return
	}
	log := model.ExecutionLog{
		ID:          uuid.NewString(),
		ExecutionID: input.ExecutionID,
		StepName:    input.NodeID,
		ActionName:  input.ActionName,
		Status:      out.Status,
		Inputs:      input.Config,
		Outputs:     out.Data,
		Error:       out.Error,
		CreatedAt:   time.Now().UTC(),
	}
	// Best-effort: a logging failure must not fail the activity, since the
	// activity's own outcome has already been decided.
	_ = a.Logs.AppendExecutionLog(ctx, log)
}
