package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shankarbhavani/workflow-builder/internal/agent"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// handleChat advances one conversation turn (the Router -> Create/Modify/
// Clarify/Validate -> Respond state machine) and enriches the resulting
// draft against the catalog before persisting and responding. A missing
// session_id starts a new session.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "message is required")
		return
	}

	var session model.ConversationSession
	if body.SessionID != "" {
		existing, err := s.Store.GetConversation(r.Context(), body.SessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		session = *existing
	} else {
		session = model.ConversationSession{Status: model.ConversationActive}
	}

	result, err := agent.RunTurn(r.Context(), s.LLM, session, body.Message, s.catalogSummary(r))
	if err != nil {
		writeError(w, err)
		return
	}

	draft, warnings := agent.EnrichDraft(r.Context(), result.WorkflowDraft, s.Actions)
	for _, warning := range warnings {
		// Surfaced only in logs; a catalog miss degrades to an unenriched node, not a failed turn.
		s.Logger.Warn(r.Context(), "draft node not enriched", "warning", warning)
	}

	session.Messages = result.Messages
	session.WorkflowDraft = draft

	var saved model.ConversationSession
	if body.SessionID != "" {
		saved, err = s.Store.UpdateConversation(r.Context(), session)
	} else {
		saved, err = s.Store.CreateConversation(r.Context(), session)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     saved.ID,
		"response":       result.Response,
		"workflow_draft": saved.WorkflowDraft,
		"status":         saved.Status,
	})
}

func (s *Server) handleListChatSessions(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	filter := model.ConversationFilter{
		Status: model.ConversationStatus(r.URL.Query().Get("status")),
		Skip:   skip,
		Limit:  limit,
	}
	sessions, err := s.Store.ListConversations(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.Store.GetConversation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.Store.GetConversation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	session.Status = model.ConversationAbandoned
	if _, err := s.Store.UpdateConversation(r.Context(), *session); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// catalogSummary renders a short, line-per-action description of the
// active catalog for the agent's create-turn system prompt. Paginated
// listing is bounded to keep the prompt small; a catalog this large
// warrants a retrieval step the state machine does not implement.
func (s *Server) catalogSummary(r *http.Request) string {
	actions, err := s.Actions.List(r.Context(), model.ActionFilter{Limit: 100})
	if err != nil || len(actions) == 0 {
		return "(no actions available)"
	}
	var b strings.Builder
	for _, a := range actions {
		b.WriteString("- ")
		b.WriteString(a.ActionName)
		b.WriteString(": ")
		b.WriteString(a.DisplayName)
		b.WriteString("\n")
	}
	return b.String()
}
