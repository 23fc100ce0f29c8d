// Package postgres implements store.Store on PostgreSQL via pgx/v5,
// using transactions with explicit isolation levels for its
// read-modify-write updates (UpdateWorkflow, UpdateExecutionStatus); reads
// and single-statement writes go to the pool directly.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shankarbhavani/workflow-builder/internal/apperr"
	"github.com/shankarbhavani/workflow-builder/internal/model"
	"github.com/shankarbhavani/workflow-builder/internal/store"
)

var _ store.Store = (*Store)(nil)

// DB abstracts the pool operations used here, satisfied by *pgxpool.Pool
// (the only type New accepts).
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store implements store.Store on top of a PostgreSQL pool.
type Store struct {
	db DB
}

// New builds a Store over an already-connected pool.
func New(db *pgxpool.Pool) (*Store, error) {
	if db == nil {
		return nil, errors.New("postgres: db pool is required")
	}
	return &Store{db: db}, nil
}

func queryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

// CreateWorkflow inserts a new workflow at version 1.
func (s *Store) CreateWorkflow(ctx context.Context, wf model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	if wf.Version == 0 {
		wf.Version = 1
	}
	configJSON, err := json.Marshal(wf.Config)
	if err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: marshal workflow config: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO workflows (id, name, version, is_active, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`,
		wf.ID, wf.Name, wf.Version, wf.IsActive, configJSON).Scan(&wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: insert workflow: %w", err)
	}
	return wf, nil
}

// GetWorkflow fetches one workflow by id.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*model.WorkflowDefinition, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	wf := model.WorkflowDefinition{ID: id}
	var configJSON []byte
	err := s.db.QueryRow(ctx, `
		SELECT name, version, is_active, config, created_at, updated_at
		FROM workflows WHERE id = $1`, id).
		Scan(&wf.Name, &wf.Version, &wf.IsActive, &configJSON, &wf.CreatedAt, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("workflow", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get workflow: %w", err)
	}
	if err := json.Unmarshal(configJSON, &wf.Config); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal workflow config: %w", err)
	}
	return &wf, nil
}

// GetWorkflowByNameVersion enforces the (name, version) uniqueness lookup.
func (s *Store) GetWorkflowByNameVersion(ctx context.Context, name string, version int) (*model.WorkflowDefinition, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	wf := model.WorkflowDefinition{Name: name, Version: version}
	var configJSON []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, is_active, config, created_at, updated_at
		FROM workflows WHERE name = $1 AND version = $2`, name, version).
		Scan(&wf.ID, &wf.IsActive, &configJSON, &wf.CreatedAt, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("workflow", name)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get workflow by name/version: %w", err)
	}
	if err := json.Unmarshal(configJSON, &wf.Config); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal workflow config: %w", err)
	}
	return &wf, nil
}

// UpdateWorkflow mutates an existing workflow in place within a
// READ COMMITTED transaction and bumps Version, matching the
// (name, version) "updates mutate in place" invariant.
func (s *Store) UpdateWorkflow(ctx context.Context, wf model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: begin update workflow: %w", err)
	}
	defer tx.Rollback(ctx)

	var version int
	err = tx.QueryRow(ctx, `SELECT version FROM workflows WHERE id = $1 FOR UPDATE`, wf.ID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WorkflowDefinition{}, apperr.NotFound("workflow", wf.ID)
	}
	if err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: lock workflow row: %w", err)
	}

	configJSON, err := json.Marshal(wf.Config)
	if err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: marshal workflow config: %w", err)
	}
	wf.Version = version + 1

	err = tx.QueryRow(ctx, `
		UPDATE workflows
		SET name = $2, version = $3, is_active = $4, config = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		wf.ID, wf.Name, wf.Version, wf.IsActive, configJSON).Scan(&wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: update workflow: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.WorkflowDefinition{}, fmt.Errorf("postgres: commit update workflow: %w", err)
	}
	return wf, nil
}

// ListWorkflows returns a name-ordered, paginated slice.
func (s *Store) ListWorkflows(ctx context.Context, filter model.WorkflowFilter) ([]model.WorkflowDefinition, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, name, version, is_active, config, created_at, updated_at
		FROM workflows ORDER BY name OFFSET $1 LIMIT $2`, filter.Skip, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: list workflows: %w", err)
	}
	defer rows.Close()

	var out []model.WorkflowDefinition
	for rows.Next() {
		var wf model.WorkflowDefinition
		var configJSON []byte
		if err := rows.Scan(&wf.ID, &wf.Name, &wf.Version, &wf.IsActive, &configJSON, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan workflow row: %w", err)
		}
		if err := json.Unmarshal(configJSON, &wf.Config); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal workflow config: %w", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

// CreateExecution inserts a new, RUNNING execution.
func (s *Store) CreateExecution(ctx context.Context, exec model.Execution) (model.Execution, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	if exec.Status == "" {
		exec.Status = model.ExecutionStatusRunning
	}
	inputsJSON, err := json.Marshal(exec.Inputs)
	if err != nil {
		return model.Execution{}, fmt.Errorf("postgres: marshal execution inputs: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO executions
			(id, workflow_id, runtime_workflow_id, runtime_run_id, status, inputs, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING started_at`,
		exec.ID, exec.WorkflowID, exec.RuntimeWorkflowID, exec.RuntimeRunID, exec.Status, inputsJSON).
		Scan(&exec.StartedAt)
	if err != nil {
		return model.Execution{}, fmt.Errorf("postgres: insert execution: %w", err)
	}
	return exec, nil
}

// GetExecution fetches one execution by id.
func (s *Store) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	exec := model.Execution{ID: id}
	var inputsJSON, outputsJSON []byte
	err := s.db.QueryRow(ctx, `
		SELECT workflow_id, runtime_workflow_id, runtime_run_id, status, inputs, outputs, error, started_at, completed_at
		FROM executions WHERE id = $1`, id).
		Scan(&exec.WorkflowID, &exec.RuntimeWorkflowID, &exec.RuntimeRunID, &exec.Status,
			&inputsJSON, &outputsJSON, &exec.Error, &exec.StartedAt, &exec.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("execution", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get execution: %w", err)
	}
	if len(inputsJSON) > 0 {
		if err := json.Unmarshal(inputsJSON, &exec.Inputs); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal execution inputs: %w", err)
		}
	}
	if len(outputsJSON) > 0 {
		if err := json.Unmarshal(outputsJSON, &exec.Outputs); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal execution outputs: %w", err)
		}
	}
	return &exec, nil
}

// UpdateExecutionStatus applies the terminal-sticky rule inside a
// REPEATABLE READ transaction: a row already in a terminal status is
// left untouched and returned as-is, never overwritten.
func (s *Store) UpdateExecutionStatus(ctx context.Context, id string, status model.ExecutionStatus, outputs map[string]any, execErr string, completedAt *time.Time) (model.Execution, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return model.Execution{}, fmt.Errorf("postgres: begin update execution status: %w", err)
	}
	defer tx.Rollback(ctx)

	var exec model.Execution
	var inputsJSON, outputsJSON []byte
	err = tx.QueryRow(ctx, `
		SELECT id, workflow_id, runtime_workflow_id, runtime_run_id, status, inputs, outputs, error, started_at, completed_at
		FROM executions WHERE id = $1 FOR UPDATE`, id).
		Scan(&exec.ID, &exec.WorkflowID, &exec.RuntimeWorkflowID, &exec.RuntimeRunID, &exec.Status,
			&inputsJSON, &outputsJSON, &exec.Error, &exec.StartedAt, &exec.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Execution{}, apperr.NotFound("execution", id)
	}
	if err != nil {
		return model.Execution{}, fmt.Errorf("postgres: lock execution row: %w", err)
	}

	if exec.Status.IsTerminal() {
		if err := tx.Commit(ctx); err != nil {
			return model.Execution{}, fmt.Errorf("postgres: commit no-op status update: %w", err)
		}
		_ = json.Unmarshal(inputsJSON, &exec.Inputs)
		_ = json.Unmarshal(outputsJSON, &exec.Outputs)
		return exec, nil
	}

	updateOutputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return model.Execution{}, fmt.Errorf("postgres: marshal execution outputs: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE executions
		SET status = $2, outputs = $3, error = $4, completed_at = COALESCE($5, completed_at)
		WHERE id = $1
		RETURNING id, workflow_id, runtime_workflow_id, runtime_run_id, status, started_at, completed_at`,
		id, status, updateOutputsJSON, execErr, completedAt)
	if err := row.Scan(&exec.ID, &exec.WorkflowID, &exec.RuntimeWorkflowID, &exec.RuntimeRunID, &exec.Status, &exec.StartedAt, &exec.CompletedAt); err != nil {
		return model.Execution{}, fmt.Errorf("postgres: update execution status: %w", err)
	}
	exec.Outputs = outputs
	exec.Error = execErr

	if err := tx.Commit(ctx); err != nil {
		return model.Execution{}, fmt.Errorf("postgres: commit update execution status: %w", err)
	}
	return exec, nil
}

// ListExecutions filters by Status/WorkflowID, newest-first, paginated.
func (s *Store) ListExecutions(ctx context.Context, filter model.ExecutionFilter) ([]model.Execution, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, workflow_id, runtime_workflow_id, runtime_run_id, status, inputs, outputs, error, started_at, completed_at
		FROM executions
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR workflow_id = $2)
		ORDER BY started_at DESC
		OFFSET $3 LIMIT $4`,
		filter.Status, filter.WorkflowID, filter.Skip, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()

	var out []model.Execution
	for rows.Next() {
		var exec model.Execution
		var inputsJSON, outputsJSON []byte
		if err := rows.Scan(&exec.ID, &exec.WorkflowID, &exec.RuntimeWorkflowID, &exec.RuntimeRunID, &exec.Status,
			&inputsJSON, &outputsJSON, &exec.Error, &exec.StartedAt, &exec.CompletedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan execution row: %w", err)
		}
		_ = json.Unmarshal(inputsJSON, &exec.Inputs)
		_ = json.Unmarshal(outputsJSON, &exec.Outputs)
		out = append(out, exec)
	}
	return out, rows.Err()
}

// AppendExecutionLog inserts one append-only audit row.
func (s *Store) AppendExecutionLog(ctx context.Context, log model.ExecutionLog) error {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	inputsJSON, err := json.Marshal(log.Inputs)
	if err != nil {
		return fmt.Errorf("postgres: marshal log inputs: %w", err)
	}
	outputsJSON, err := json.Marshal(log.Outputs)
	if err != nil {
		return fmt.Errorf("postgres: marshal log outputs: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO execution_logs
			(id, execution_id, step_name, action_name, status, inputs, outputs, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		log.ID, log.ExecutionID, log.StepName, log.ActionName, log.Status, inputsJSON, outputsJSON, log.Error)
	if err != nil {
		return fmt.Errorf("postgres: insert execution log: %w", err)
	}
	return nil
}

// ListExecutionLogs returns logs for executionID in CreatedAt order.
func (s *Store) ListExecutionLogs(ctx context.Context, executionID string) ([]model.ExecutionLog, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, execution_id, step_name, action_name, status, inputs, outputs, error, created_at
		FROM execution_logs WHERE execution_id = $1 ORDER BY created_at ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list execution logs: %w", err)
	}
	defer rows.Close()

	var out []model.ExecutionLog
	for rows.Next() {
		var log model.ExecutionLog
		var inputsJSON, outputsJSON []byte
		if err := rows.Scan(&log.ID, &log.ExecutionID, &log.StepName, &log.ActionName, &log.Status,
			&inputsJSON, &outputsJSON, &log.Error, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan execution log row: %w", err)
		}
		_ = json.Unmarshal(inputsJSON, &log.Inputs)
		_ = json.Unmarshal(outputsJSON, &log.Outputs)
		out = append(out, log)
	}
	return out, rows.Err()
}

// GetAction returns (nil, nil) on a miss, matching internal/catalog.ActionStore's contract.
func (s *Store) GetAction(ctx context.Context, name string) (*model.Action, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	action := model.Action{ActionName: name}
	var tags []string
	err := s.db.QueryRow(ctx, `
		SELECT id, display_name, domain, endpoint, http_method, parameters, returns, tags, is_active, created_at, updated_at
		FROM actions WHERE action_name = $1`, name).
		Scan(&action.ID, &action.DisplayName, &action.Domain, &action.Endpoint, &action.HTTPMethod,
			&action.Parameters, &action.Returns, &tags, &action.IsActive, &action.CreatedAt, &action.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get action: %w", err)
	}
	action.Tags = tags
	return &action, nil
}

// ListActions filters by Domain(Category)/Search, paginated.
func (s *Store) ListActions(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, action_name, display_name, domain, endpoint, http_method, parameters, returns, tags, is_active, created_at, updated_at
		FROM actions
		WHERE ($1 = '' OR domain = $1)
		  AND ($2 = '' OR action_name ILIKE '%' || $2 || '%' OR display_name ILIKE '%' || $2 || '%')
		ORDER BY action_name
		OFFSET $3 LIMIT $4`,
		filter.Category, filter.Search, filter.Skip, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: list actions: %w", err)
	}
	defer rows.Close()

	var out []model.Action
	for rows.Next() {
		var a model.Action
		var tags []string
		if err := rows.Scan(&a.ID, &a.ActionName, &a.DisplayName, &a.Domain, &a.Endpoint, &a.HTTPMethod,
			&a.Parameters, &a.Returns, &tags, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan action row: %w", err)
		}
		a.Tags = tags
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAction inserts or replaces the action keyed by action_name.
func (s *Store) UpsertAction(ctx context.Context, action model.Action) (model.Action, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO actions
			(id, action_name, display_name, domain, endpoint, http_method, parameters, returns, tags, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (action_name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			domain = EXCLUDED.domain,
			endpoint = EXCLUDED.endpoint,
			http_method = EXCLUDED.http_method,
			parameters = EXCLUDED.parameters,
			returns = EXCLUDED.returns,
			tags = EXCLUDED.tags,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		action.ID, action.ActionName, action.DisplayName, action.Domain, action.Endpoint, action.HTTPMethod,
		action.Parameters, action.Returns, action.Tags, action.IsActive).
		Scan(&action.ID, &action.CreatedAt, &action.UpdatedAt)
	if err != nil {
		return model.Action{}, fmt.Errorf("postgres: upsert action: %w", err)
	}
	return action, nil
}

// CreateConversation inserts a new, active conversation session.
func (s *Store) CreateConversation(ctx context.Context, session model.ConversationSession) (model.ConversationSession, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = model.ConversationActive
	}
	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("postgres: marshal messages: %w", err)
	}
	draftJSON, err := json.Marshal(session.WorkflowDraft)
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("postgres: marshal workflow draft: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO conversation_sessions
			(id, workflow_id, messages, workflow_draft, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`,
		session.ID, session.WorkflowID, messagesJSON, draftJSON, session.Status).
		Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("postgres: insert conversation: %w", err)
	}
	return session, nil
}

// GetConversation fetches one conversation session by id.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.ConversationSession, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	session := model.ConversationSession{ID: id}
	var messagesJSON, draftJSON []byte
	err := s.db.QueryRow(ctx, `
		SELECT workflow_id, messages, workflow_draft, status, created_at, updated_at
		FROM conversation_sessions WHERE id = $1`, id).
		Scan(&session.WorkflowID, &messagesJSON, &draftJSON, &session.Status, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("conversation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get conversation: %w", err)
	}
	if err := json.Unmarshal(messagesJSON, &session.Messages); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal messages: %w", err)
	}
	if err := json.Unmarshal(draftJSON, &session.WorkflowDraft); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal workflow draft: %w", err)
	}
	return &session, nil
}

// UpdateConversation replaces an existing session's mutable fields.
func (s *Store) UpdateConversation(ctx context.Context, session model.ConversationSession) (model.ConversationSession, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("postgres: marshal messages: %w", err)
	}
	draftJSON, err := json.Marshal(session.WorkflowDraft)
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("postgres: marshal workflow draft: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		UPDATE conversation_sessions
		SET workflow_id = $2, messages = $3, workflow_draft = $4, status = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		session.ID, session.WorkflowID, messagesJSON, draftJSON, session.Status).
		Scan(&session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ConversationSession{}, apperr.NotFound("conversation", session.ID)
	}
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("postgres: update conversation: %w", err)
	}
	return session, nil
}

// ListConversations filters by Status, newest-first, paginated.
func (s *Store) ListConversations(ctx context.Context, filter model.ConversationFilter) ([]model.ConversationSession, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, workflow_id, messages, workflow_draft, status, created_at, updated_at
		FROM conversation_sessions
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		OFFSET $2 LIMIT $3`,
		filter.Status, filter.Skip, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: list conversations: %w", err)
	}
	defer rows.Close()

	var out []model.ConversationSession
	for rows.Next() {
		var session model.ConversationSession
		var messagesJSON, draftJSON []byte
		if err := rows.Scan(&session.ID, &session.WorkflowID, &messagesJSON, &draftJSON, &session.Status, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan conversation row: %w", err)
		}
		_ = json.Unmarshal(messagesJSON, &session.Messages)
		_ = json.Unmarshal(draftJSON, &session.WorkflowDraft)
		out = append(out, session)
	}
	return out, rows.Err()
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}
