package model

import "time"

// ExecutionStatus is the lifecycle state of an Execution (spec.md §4.4's
// state machine). Terminal states are absorbing and sticky: once terminal,
// CompletedAt is set and never cleared.
type ExecutionStatus string

// Execution status values.
const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether s is one of the absorbing states.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// Execution is one run of a workflow.
type Execution struct {
	ID                string          `json:"id"`
	WorkflowID        string          `json:"workflow_id"`
	RuntimeWorkflowID string          `json:"runtime_workflow_id"`
	RuntimeRunID      string          `json:"runtime_run_id"`
	Status            ExecutionStatus `json:"status"`
	Inputs            map[string]any  `json:"inputs"`
	Outputs           map[string]any  `json:"outputs,omitempty"`
	Error             string          `json:"error,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// StepStatus is the terminal outcome of one node's execution attempt.
type StepStatus string

// Step status values.
const (
	StepStatusSuccess StepStatus = "SUCCESS"
	StepStatusFailed  StepStatus = "FAILED"
	StepStatusSkipped StepStatus = "SKIPPED"
)

// ExecutionLog is an append-only per-node-attempt audit record, a child of
// an Execution. Ordering is CreatedAt-monotonic within an execution.
type ExecutionLog struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	StepName    string         `json:"step_name"` // node id
	ActionName  string         `json:"action_name"`
	Status      StepStatus     `json:"status"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ExecutionFilter narrows an execution listing.
type ExecutionFilter struct {
	Status     ExecutionStatus
	WorkflowID string
	Skip       int
	Limit      int
}
