// Package memory implements store.Store in-process for tests and local
// development, safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shankarbhavani/workflow-builder/internal/apperr"
	"github.com/shankarbhavani/workflow-builder/internal/model"
	"github.com/shankarbhavani/workflow-builder/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory store.Store.
type Store struct {
	mu            sync.RWMutex
	workflows     map[string]model.WorkflowDefinition
	executions    map[string]model.Execution
	logs          map[string][]model.ExecutionLog
	actions       map[string]model.Action // keyed by ActionName
	conversations map[string]model.ConversationSession
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		workflows:     make(map[string]model.WorkflowDefinition),
		executions:    make(map[string]model.Execution),
		logs:          make(map[string][]model.ExecutionLog),
		actions:       make(map[string]model.Action),
		conversations: make(map[string]model.ConversationSession),
	}
}

// CreateWorkflow assigns an ID if missing, sets Version to 1, and stores wf.
func (s *Store) CreateWorkflow(_ context.Context, wf model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	if wf.Version == 0 {
		wf.Version = 1
	}
	now := time.Now().UTC()
	wf.CreatedAt = now
	wf.UpdatedAt = now
	s.workflows[wf.ID] = wf
	return wf, nil
}

// GetWorkflow returns a NotFound error if id is unknown.
func (s *Store) GetWorkflow(_ context.Context, id string) (*model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, apperr.NotFound("workflow", id)
	}
	return &wf, nil
}

// GetWorkflowByNameVersion enforces the (name, version) lookup spec.md §4.7 names.
func (s *Store) GetWorkflowByNameVersion(_ context.Context, name string, version int) (*model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, wf := range s.workflows {
		if wf.Name == name && wf.Version == version {
			out := wf
			return &out, nil
		}
	}
	return nil, apperr.NotFound("workflow", name)
}

// UpdateWorkflow mutates an existing workflow in place and bumps Version.
func (s *Store) UpdateWorkflow(_ context.Context, wf model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.workflows[wf.ID]
	if !ok {
		return model.WorkflowDefinition{}, apperr.NotFound("workflow", wf.ID)
	}
	wf.Version = existing.Version + 1
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = time.Now().UTC()
	s.workflows[wf.ID] = wf
	return wf, nil
}

// ListWorkflows returns a name-sorted, paginated slice.
func (s *Store) ListWorkflows(_ context.Context, filter model.WorkflowFilter) ([]model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.WorkflowDefinition, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Skip, filter.Limit), nil
}

// CreateExecution assigns an ID if missing and stamps StartedAt.
func (s *Store) CreateExecution(_ context.Context, exec model.Execution) (model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now().UTC()
	}
	if exec.Status == "" {
		exec.Status = model.ExecutionStatusRunning
	}
	s.executions[exec.ID] = exec
	return exec, nil
}

// GetExecution returns a NotFound error if id is unknown.
func (s *Store) GetExecution(_ context.Context, id string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[id]
	if !ok {
		return nil, apperr.NotFound("execution", id)
	}
	return &exec, nil
}

// UpdateExecutionStatus never moves a terminal execution backwards: a
// caller attempting to update an already-terminal execution gets back its
// unchanged state. This mirrors internal/reconcile's terminal-sticky rule
// at the storage layer, not just at the reconciler.
func (s *Store) UpdateExecutionStatus(_ context.Context, id string, status model.ExecutionStatus, outputs map[string]any, execErr string, completedAt *time.Time) (model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok {
		return model.Execution{}, apperr.NotFound("execution", id)
	}
	if exec.Status.IsTerminal() {
		return exec, nil
	}
	exec.Status = status
	exec.Outputs = outputs
	exec.Error = execErr
	if completedAt != nil {
		exec.CompletedAt = completedAt
	}
	s.executions[id] = exec
	return exec, nil
}

// ListExecutions filters by Status/WorkflowID, newest-first, paginated.
func (s *Store) ListExecutions(_ context.Context, filter model.ExecutionFilter) ([]model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Execution
	for _, exec := range s.executions {
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		if filter.WorkflowID != "" && exec.WorkflowID != filter.WorkflowID {
			continue
		}
		out = append(out, exec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return paginate(out, filter.Skip, filter.Limit), nil
}

// AppendExecutionLog is append-only; CreatedAt is stamped if zero.
func (s *Store) AppendExecutionLog(_ context.Context, log model.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.logs[log.ExecutionID] = append(s.logs[log.ExecutionID], log)
	return nil
}

// ListExecutionLogs returns logs in CreatedAt order, per model.ExecutionLog's invariant.
func (s *Store) ListExecutionLogs(_ context.Context, executionID string) ([]model.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := append([]model.ExecutionLog{}, s.logs[executionID]...)
	sort.Slice(logs, func(i, j int) bool { return logs[i].CreatedAt.Before(logs[j].CreatedAt) })
	return logs, nil
}

// GetAction returns nil (not an error) on a miss, matching
// internal/catalog.ActionStore's contract.
func (s *Store) GetAction(_ context.Context, name string) (*model.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, ok := s.actions[name]
	if !ok {
		return nil, nil
	}
	return &action, nil
}

// ListActions filters by Domain(Category)/Search substring, paginated.
func (s *Store) ListActions(_ context.Context, filter model.ActionFilter) ([]model.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Action
	for _, a := range s.actions {
		if filter.Category != "" && a.Domain != filter.Category {
			continue
		}
		if filter.Search != "" && !containsFold(a.ActionName, filter.Search) && !containsFold(a.DisplayName, filter.Search) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionName < out[j].ActionName })
	return paginate(out, filter.Skip, filter.Limit), nil
}

// UpsertAction inserts or replaces the entry keyed by ActionName.
func (s *Store) UpsertAction(_ context.Context, action model.Action) (model.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if existing, ok := s.actions[action.ActionName]; ok {
		action.CreatedAt = existing.CreatedAt
	} else {
		action.CreatedAt = now
	}
	action.UpdatedAt = now
	s.actions[action.ActionName] = action
	return action, nil
}

// CreateConversation assigns an ID/status if missing.
func (s *Store) CreateConversation(_ context.Context, session model.ConversationSession) (model.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = model.ConversationActive
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	s.conversations[session.ID] = session
	return session, nil
}

// GetConversation returns a NotFound error if id is unknown.
func (s *Store) GetConversation(_ context.Context, id string) (*model.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation", id)
	}
	return &session, nil
}

// UpdateConversation replaces an existing session's mutable fields.
func (s *Store) UpdateConversation(_ context.Context, session model.ConversationSession) (model.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.conversations[session.ID]
	if !ok {
		return model.ConversationSession{}, apperr.NotFound("conversation", session.ID)
	}
	session.CreatedAt = existing.CreatedAt
	session.UpdatedAt = time.Now().UTC()
	s.conversations[session.ID] = session
	return session, nil
}

// ListConversations filters by Status, newest-first, paginated.
func (s *Store) ListConversations(_ context.Context, filter model.ConversationFilter) ([]model.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ConversationSession
	for _, c := range s.conversations {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return paginate(out, filter.Skip, filter.Limit), nil
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
