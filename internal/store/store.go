// Package store defines the Persistence Facade (C8): the single interface
// every other component depends on for durable state, with an in-memory
// implementation for tests/local development and a postgres-backed
// implementation for production.
package store

import (
	"context"
	"time"

	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// Store is the persistence boundary spec.md §4.7 names: workflow
// definitions, executions and their logs, the action catalog, and
// conversation sessions.
type Store interface {
	// Workflows
	CreateWorkflow(ctx context.Context, wf model.WorkflowDefinition) (model.WorkflowDefinition, error)
	GetWorkflow(ctx context.Context, id string) (*model.WorkflowDefinition, error)
	GetWorkflowByNameVersion(ctx context.Context, name string, version int) (*model.WorkflowDefinition, error)
	UpdateWorkflow(ctx context.Context, wf model.WorkflowDefinition) (model.WorkflowDefinition, error)
	ListWorkflows(ctx context.Context, filter model.WorkflowFilter) ([]model.WorkflowDefinition, error)

	// Executions
	CreateExecution(ctx context.Context, exec model.Execution) (model.Execution, error)
	GetExecution(ctx context.Context, id string) (*model.Execution, error)
	UpdateExecutionStatus(ctx context.Context, id string, status model.ExecutionStatus, outputs map[string]any, execErr string, completedAt *time.Time) (model.Execution, error)
	ListExecutions(ctx context.Context, filter model.ExecutionFilter) ([]model.Execution, error)
	AppendExecutionLog(ctx context.Context, log model.ExecutionLog) error
	ListExecutionLogs(ctx context.Context, executionID string) ([]model.ExecutionLog, error)

	// Actions (ActionStore, satisfied here so internal/catalog can wrap a Store directly)
	GetAction(ctx context.Context, name string) (*model.Action, error)
	ListActions(ctx context.Context, filter model.ActionFilter) ([]model.Action, error)
	UpsertAction(ctx context.Context, action model.Action) (model.Action, error)

	// Conversations
	CreateConversation(ctx context.Context, session model.ConversationSession) (model.ConversationSession, error)
	GetConversation(ctx context.Context, id string) (*model.ConversationSession, error)
	UpdateConversation(ctx context.Context, session model.ConversationSession) (model.ConversationSession, error)
	ListConversations(ctx context.Context, filter model.ConversationFilter) ([]model.ConversationSession, error)
}
