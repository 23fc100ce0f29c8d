package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shankarbhavani/workflow-builder/internal/agent"
	"github.com/shankarbhavani/workflow-builder/internal/apperr"
	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/executor"
	"github.com/shankarbhavani/workflow-builder/internal/graph"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

type workflowRequest struct {
	Name   string      `json:"name"`
	Config model.Graph `json:"config"`
}

// handleCreateWorkflow validates the posted graph (C2's five ordered
// structural checks, then C1's per-node schema check) and persists it as
// version 1. A graph that fails either check is rejected with all
// violations collected, never just the first.
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var body workflowRequest
	if err := decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	if violations := s.validateGraph(r, body.Config); len(violations) > 0 {
		writeError(w, apperr.Validation(violations))
		return
	}

	wf := model.WorkflowDefinition{
		Name:     body.Name,
		Version:  1,
		IsActive: true,
		Config:   body.Config,
	}
	created, err := s.Store.CreateWorkflow(r.Context(), wf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	workflows, err := s.Store.ListWorkflows(r.Context(), model.WorkflowFilter{Skip: skip, Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wf, err := s.Store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if wf == nil {
		writeErrorMessage(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// handleUpdateWorkflow re-validates the full posted graph and bumps
// Version in place; it never creates a second row for the same id.
func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.Store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeErrorMessage(w, http.StatusNotFound, "workflow not found")
		return
	}

	var body workflowRequest
	if err := decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	if violations := s.validateGraph(r, body.Config); len(violations) > 0 {
		writeError(w, apperr.Validation(violations))
		return
	}

	existing.Name = body.Name
	existing.Config = body.Config
	existing.Version++

	updated, err := s.Store.UpdateWorkflow(r.Context(), *existing)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.Store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeErrorMessage(w, http.StatusNotFound, "workflow not found")
		return
	}
	existing.IsActive = false
	if _, err := s.Store.UpdateWorkflow(r.Context(), *existing); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecuteWorkflow starts a new durable run and returns immediately
// with status RUNNING. It never blocks on completion; the execution's
// outputs are only populated later via POST /executions/{id}/sync.
func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wf, err := s.Store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if wf == nil {
		writeErrorMessage(w, http.StatusNotFound, "workflow not found")
		return
	}

	var body struct {
		Inputs map[string]any `json:"inputs"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	// The execution id is generated up front and doubles as the engine's
	// runtime workflow id, so the row created below already carries the
	// ids reconcile.HandleResolver needs to rehydrate a handle later. The
	// runtime run id is left empty: both adapters then resolve the run
	// started under that workflow id.
	runID := uuid.NewString()
	exec, err := s.Store.CreateExecution(r.Context(), model.Execution{
		ID:                runID,
		WorkflowID:        wf.ID,
		RuntimeWorkflowID: runID,
		RuntimeRunID:      "",
		Status:            model.ExecutionStatusRunning,
		Inputs:            body.Inputs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.Engine.StartWorkflow(r.Context(), engine.WorkflowStartRequest{
		ID:        runID,
		Workflow:  executor.WorkflowName,
		TaskQueue: s.TaskQueue,
		Input: executor.Input{
			ExecutionID: exec.ID,
			Graph:       wf.Config,
			Inputs:      body.Inputs,
		},
	}); err != nil {
		writeError(w, apperr.Upstream("failed to start workflow execution", err))
		return
	}

	writeJSON(w, http.StatusAccepted, exec)
}

// handleSuggestMetadata asks the LLM client for a short name/description
// for the posted graph. On any LLM failure it falls back to a
// deterministic name derived from the node count, so the endpoint never
// hard-fails a draft that is otherwise valid.
func (s *Server) handleSuggestMetadata(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Config model.Graph `json:"config"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	name, description := fallbackMetadata(body.Config)
	if s.LLM != nil {
		if suggested, err := suggestMetadataViaLLM(r.Context(), s.LLM, body.Config); err == nil {
			name, description = suggested.Name, suggested.Description
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"name": name, "description": description})
}

type suggestedMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

const suggestMetadataSystemPrompt = `Given a workflow graph encoded as JSON, respond with a single JSON object ` +
	`of the exact shape {"name": "...", "description": "..."} naming and describing what the workflow does. ` +
	`The name must be short (a few words); nothing else in the response.`

func suggestMetadataViaLLM(ctx context.Context, client agent.Client, g model.Graph) (suggestedMetadata, error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return suggestedMetadata{}, err
	}
	resp, err := client.Complete(ctx, agent.Request{
		System:   suggestMetadataSystemPrompt,
		Messages: []model.Message{{Role: model.RoleUser, Content: string(payload)}},
	})
	if err != nil {
		return suggestedMetadata{}, err
	}
	var out suggestedMetadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text)), &out); err != nil {
		return suggestedMetadata{}, err
	}
	return out, nil
}

func fallbackMetadata(g model.Graph) (name, description string) {
	return fmt.Sprintf("Untitled workflow (%d steps)", len(g.Nodes)),
		fmt.Sprintf("A workflow with %d node(s) and %d edge(s).", len(g.Nodes), len(g.Edges))
}

// validateGraph runs the structural validator (C2) and the per-node schema
// validator (C1) layered on top, which skips nodes whose action does not
// resolve, returning the union of both.
func (s *Server) validateGraph(r *http.Request, g model.Graph) []string {
	_, violations := graph.Validate(r.Context(), g, s.Actions)
	violations = append(violations, s.Validator.ValidateGraphConfigs(r.Context(), g, s.Actions)...)
	return violations
}
