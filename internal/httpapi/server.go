// Package httpapi implements the thin HTTP surface of spec.md §6: CRUD
// glue over the catalog, workflow, execution, and conversation
// components, mounted under /api on go-chi/chi/v5. The handlers here own
// no domain logic; they translate requests into calls against the engine,
// graph, catalog, agent, and reconcile packages and translate the result
// (or apperr error) back into JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shankarbhavani/workflow-builder/internal/agent"
	"github.com/shankarbhavani/workflow-builder/internal/catalog"
	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/model"
	"github.com/shankarbhavani/workflow-builder/internal/reconcile"
	"github.com/shankarbhavani/workflow-builder/internal/store"
	"github.com/shankarbhavani/workflow-builder/internal/telemetry"
)

// ActionLookup is the subset of internal/catalog's Lookup/CachedLookup the
// HTTP layer needs: listing for GET /actions, single lookup for node
// enrichment and GET /actions/{id}, and activity checks for graph
// validation. Declared locally so this package depends on behaviour, not
// a concrete catalog type.
type ActionLookup interface {
	Get(ctx context.Context, actionName string) (*model.Action, error)
	List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error)
	IsActive(ctx context.Context, actionName string) (bool, error)
}

// Server holds every collaborator a handler might call through. It is
// constructed once at startup (cmd/server) and never mutated afterward;
// all per-request state lives in the request context.
type Server struct {
	Store     store.Store
	Actions   ActionLookup
	Validator *catalog.SchemaValidator
	Engine    engine.Engine
	Handles   reconcile.HandleResolver
	Reconcile *reconcile.Reconciler
	LLM       agent.Client
	Auth      Authenticator
	Logger    telemetry.Logger

	// TaskQueue is the durable runtime task queue new executions are
	// started on (config.RuntimeTaskQueue).
	TaskQueue string
}

// NewRouter builds the complete /api mux: public auth endpoints, then
// every other endpoint behind RequireAuth.
func NewRouter(s *Server, corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.Logger))
	r.Use(corsMiddleware(corsOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.handleLogin)

		api.Group(func(protected chi.Router) {
			protected.Use(RequireAuth(s.Auth))

			protected.Get("/auth/me", s.handleMe)

			protected.Get("/actions", s.handleListActions)
			protected.Get("/actions/{id}", s.handleGetAction)

			protected.Post("/workflows", s.handleCreateWorkflow)
			protected.Get("/workflows", s.handleListWorkflows)
			protected.Get("/workflows/{id}", s.handleGetWorkflow)
			protected.Put("/workflows/{id}", s.handleUpdateWorkflow)
			protected.Delete("/workflows/{id}", s.handleDeleteWorkflow)
			protected.Post("/workflows/{id}/execute", s.handleExecuteWorkflow)
			protected.Post("/workflows/suggest-metadata", s.handleSuggestMetadata)

			protected.Get("/executions", s.handleListExecutions)
			protected.Get("/executions/{id}", s.handleGetExecution)
			protected.Post("/executions/{id}/cancel", s.handleCancelExecution)
			protected.Post("/executions/{id}/sync", s.handleSyncExecution)

			protected.Post("/chat", s.handleChat)
			protected.Get("/chat/sessions", s.handleListChatSessions)
			protected.Get("/chat/sessions/{id}", s.handleGetChatSession)
			protected.Delete("/chat/sessions/{id}", s.handleDeleteChatSession)
		})
	})

	return r
}

// requestLogger emits one structured log line per request via the
// component logger shared with the engine/executor, so HTTP access logs
// and workflow execution logs land in the same stream.
func requestLogger(logger telemetry.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// corsMiddleware allows the configured origins to call the API from a
// browser. Empty origins means no CORS headers are added.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed[origin] || allowed["*"]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
