package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shankarbhavani/workflow-builder/internal/model"
)

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	filter := model.ActionFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Skip:     skip,
		Limit:    limit,
	}
	actions, err := s.Actions.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "id")
	action, err := s.Actions.Get(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if action == nil {
		writeErrorMessage(w, http.StatusNotFound, "action not found")
		return
	}
	writeJSON(w, http.StatusOK, action)
}
