package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/apperr"
	"github.com/shankarbhavani/workflow-builder/internal/model"
	"github.com/shankarbhavani/workflow-builder/internal/store/memory"
)

func TestWorkflows_CreateGetUpdate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	created, err := s.CreateWorkflow(ctx, model.WorkflowDefinition{Name: "onboard"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)

	fetched, err := s.GetWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "onboard", fetched.Name)

	created.Name = "onboard-v2"
	updated, err := s.UpdateWorkflow(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "onboard-v2", updated.Name)
}

func TestWorkflows_GetMissingReturnsNotFound(t *testing.T) {
	s := memory.New()

	_, err := s.GetWorkflow(context.Background(), "nope")

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}

func TestWorkflows_GetByNameVersion(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	_, err := s.CreateWorkflow(ctx, model.WorkflowDefinition{Name: "onboard", Version: 3})
	require.NoError(t, err)

	fetched, err := s.GetWorkflowByNameVersion(ctx, "onboard", 3)

	require.NoError(t, err)
	assert.Equal(t, 3, fetched.Version)
}

func TestWorkflows_ListIsNameSortedAndPaginated(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, err := s.CreateWorkflow(ctx, model.WorkflowDefinition{Name: name})
		require.NoError(t, err)
	}

	all, err := s.ListWorkflows(ctx, model.WorkflowFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{all[0].Name, all[1].Name, all[2].Name})

	page, err := s.ListWorkflows(ctx, model.WorkflowFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bravo", page[0].Name)
}

func TestExecutions_UpdateStatusNeverMovesTerminalBackwards(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	exec, err := s.CreateExecution(ctx, model.Execution{WorkflowID: "wf-1"})
	require.NoError(t, err)

	done, err := s.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionStatusCompleted, map[string]any{"x": 1}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCompleted, done.Status)

	unchanged, err := s.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionStatusFailed, nil, "ignored", nil)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCompleted, unchanged.Status, "a terminal execution must never move backwards")
}

func TestExecutions_ListFiltersByStatusAndWorkflow(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	a, err := s.CreateExecution(ctx, model.Execution{WorkflowID: "wf-1"})
	require.NoError(t, err)
	_, err = s.CreateExecution(ctx, model.Execution{WorkflowID: "wf-2"})
	require.NoError(t, err)
	_, err = s.UpdateExecutionStatus(ctx, a.ID, model.ExecutionStatusCompleted, nil, "", nil)
	require.NoError(t, err)

	completed, err := s.ListExecutions(ctx, model.ExecutionFilter{Status: model.ExecutionStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "wf-1", completed[0].WorkflowID)

	wf2, err := s.ListExecutions(ctx, model.ExecutionFilter{WorkflowID: "wf-2"})
	require.NoError(t, err)
	require.Len(t, wf2, 1)
}

func TestExecutionLogs_AppendOnlyOrderedByCreatedAt(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	exec, err := s.CreateExecution(ctx, model.Execution{WorkflowID: "wf-1"})
	require.NoError(t, err)

	require.NoError(t, s.AppendExecutionLog(ctx, model.ExecutionLog{ExecutionID: exec.ID, StepName: "a"}))
	require.NoError(t, s.AppendExecutionLog(ctx, model.ExecutionLog{ExecutionID: exec.ID, StepName: "b"}))

	logs, err := s.ListExecutionLogs(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a", logs[0].StepName)
	assert.Equal(t, "b", logs[1].StepName)
}

func TestActions_GetMissingReturnsNilNotError(t *testing.T) {
	s := memory.New()

	action, err := s.GetAction(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, action)
}

func TestActions_UpsertThenGetThenList(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := s.UpsertAction(ctx, model.Action{ActionName: "send-email", Domain: "comms", IsActive: true})
	require.NoError(t, err)

	fetched, err := s.GetAction(ctx, "send-email")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.True(t, fetched.IsActive)

	filtered, err := s.ListActions(ctx, model.ActionFilter{Category: "comms"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	bySearch, err := s.ListActions(ctx, model.ActionFilter{Search: "EMAIL"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
}

func TestConversations_CreateGetUpdate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	created, err := s.CreateConversation(ctx, model.ConversationSession{})
	require.NoError(t, err)
	assert.Equal(t, model.ConversationActive, created.Status)

	created.Status = model.ConversationCompleted
	updated, err := s.UpdateConversation(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationCompleted, updated.Status)

	fetched, err := s.GetConversation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationCompleted, fetched.Status)
}

func TestConversations_UpdateMissingReturnsNotFound(t *testing.T) {
	s := memory.New()

	_, err := s.UpdateConversation(context.Background(), model.ConversationSession{ID: "nope"})

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}
