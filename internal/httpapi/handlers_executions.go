package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shankarbhavani/workflow-builder/internal/apperr"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	filter := model.ExecutionFilter{
		Status:     model.ExecutionStatus(r.URL.Query().Get("status")),
		WorkflowID: r.URL.Query().Get("workflow_id"),
		Skip:       skip,
		Limit:      limit,
	}
	execs, err := s.Store.ListExecutions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, execs)
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, err := s.Store.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// handleCancelExecution requests cancellation from the durable runtime and,
// on success, writes CANCELLED/completed_at to the local record
// synchronously — it does not wait for a later sync to observe the
// cancellation. Cancelling an already-terminal execution is a state
// conflict, not a no-op.
func (s *Server) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, err := s.Store.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if exec.Status.IsTerminal() {
		writeError(w, apperr.StateConflict("execution is already in a terminal state", string(exec.Status)))
		return
	}

	handle, err := s.Handles.Handle(r.Context(), exec.RuntimeWorkflowID, exec.RuntimeRunID)
	if err != nil {
		writeError(w, apperr.Upstream("failed to resolve runtime handle", err))
		return
	}
	if err := handle.Cancel(r.Context()); err != nil {
		writeError(w, apperr.Upstream("failed to cancel execution", err))
		return
	}

	now := s.Reconcile.Now().UTC()
	updated, err := s.Store.UpdateExecutionStatus(r.Context(), id, model.ExecutionStatusCancelled, exec.Outputs, exec.Error, &now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleSyncExecution is the only path by which a locally persisted
// execution learns its authoritative terminal status: it asks the durable
// runtime via the status reconciler (C7) and persists whatever comes back.
func (s *Server) handleSyncExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, err := s.Store.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	reconciled, err := s.Reconcile.Reconcile(r.Context(), *exec)
	if err != nil {
		writeError(w, apperr.Upstream("failed to reconcile execution status", err))
		return
	}
	if reconciled.Status == exec.Status {
		writeJSON(w, http.StatusOK, reconciled)
		return
	}

	updated, err := s.Store.UpdateExecutionStatus(r.Context(), id, reconciled.Status, reconciled.Outputs, reconciled.Error, reconciled.CompletedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
