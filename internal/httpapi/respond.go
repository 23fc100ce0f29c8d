package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shankarbhavani/workflow-builder/internal/apperr"
)

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeError translates an error through apperr's taxonomy into the HTTP
// status and body shape every handler uses, so a NotFound from any
// collaborator package renders the same way regardless of which handler
// surfaced it.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	var appErr *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		appErr = e
	}
	body := map[string]any{"error": err.Error()}
	if appErr != nil {
		body["error"] = appErr.Message
		if len(appErr.Errors) > 0 {
			body["errors"] = appErr.Errors
		}
		if appErr.Observed != "" {
			body["observed"] = appErr.Observed
		}
	}
	writeJSON(w, status, body)
}

// pagination reads skip/limit query params, defaulting to 0/0 (which
// downstream listing code treats as "no bound").
func pagination(r *http.Request) (skip, limit int) {
	if v := r.URL.Query().Get("skip"); v != "" {
		skip, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	return skip, limit
}
