package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// Intent is the Router's classification of a user turn.
type Intent string

// Intent values. Unknown LLM output maps to IntentCreate per spec.md §4.5.
const (
	IntentCreate   Intent = "create"
	IntentModify   Intent = "modify"
	IntentClarify  Intent = "clarify"
	IntentComplete Intent = "complete"
)

// ActionLookup resolves a catalog action by name, used for node
// enrichment. Declared locally (rather than imported from internal/catalog)
// so this package stays free of a dependency the state machine itself
// never needs — only the handler layer that calls EnrichDraft does.
type ActionLookup interface {
	Get(ctx context.Context, actionName string) (*model.Action, error)
}

// Result is one turn's outcome: the updated message history, the
// (possibly unchanged) workflow draft, and the user-facing response text.
type Result struct {
	Messages      []model.Message
	WorkflowDraft model.Graph
	Response      string
}

// systemRouterPrompt asks the LLM to emit exactly one intent token.
const systemRouterPrompt = `You are the router for a workflow-building assistant. ` +
	`Reply with exactly one word from this set, and nothing else: create, modify, clarify, complete.`

// RunTurn advances the conversation state machine by one user turn:
// Router -> {Create, Modify, Clarify, Validate} -> Respond.
func RunTurn(ctx context.Context, client Client, session model.ConversationSession, userMessage, catalogSummary string) (Result, error) {
	messages := append([]model.Message{}, session.Messages...)
	messages = append(messages, model.Message{Role: model.RoleUser, Content: userMessage})

	intent := route(ctx, client, messages)

	draft := session.WorkflowDraft
	var clarifyText string
	var responded bool
	var response string

	switch intent {
	case IntentComplete:
		response = "Great, your workflow is ready to save."
		responded = true

	case IntentClarify:
		clarifyText = clarify(ctx, client, messages)
		response = clarifyText
		responded = true

	case IntentModify:
		updated, err := modify(ctx, client, messages, draft)
		if err != nil {
			clarifyText = "I couldn't update the workflow draft from that — could you describe the change differently?"
			response = clarifyText
			responded = true
			break
		}
		draft = updated

	default: // IntentCreate, and any unrecognized token
		created, err := create(ctx, client, messages, catalogSummary)
		if err != nil {
			clarifyText = "I need a bit more detail to build this workflow — what should it do, step by step?"
			response = clarifyText
			responded = true
			break
		}
		draft = created
	}

	if !responded {
		valid, validateMsg := validate(draft)
		if !valid {
			clarifyText = validateMsg
			response = clarifyText
		} else {
			response = fmt.Sprintf("Drafted a workflow with %d node(s). Let me know if you'd like changes, or say you're done.", len(draft.Nodes))
		}
	}

	messages = append(messages, model.Message{Role: model.RoleAssistant, Content: response})

	return Result{Messages: messages, WorkflowDraft: draft, Response: response}, nil
}

func route(ctx context.Context, client Client, messages []model.Message) Intent {
	resp, err := client.Complete(ctx, Request{System: systemRouterPrompt, Messages: messages})
	if err != nil {
		return IntentCreate
	}
	token := strings.ToLower(strings.TrimSpace(resp.Text))
	switch Intent(token) {
	case IntentCreate, IntentModify, IntentClarify, IntentComplete:
		return Intent(token)
	default:
		return IntentCreate
	}
}

const createSystemPromptTemplate = `You design workflow graphs for an automation platform. ` +
	`Available actions:
%s

Respond with a single JSON object of the exact shape {"nodes": [...], "edges": [...]} ` +
	`matching the platform's node/edge schema, and nothing else — no prose, no markdown fences.`

func create(ctx context.Context, client Client, messages []model.Message, catalogSummary string) (model.Graph, error) {
	system := fmt.Sprintf(createSystemPromptTemplate, catalogSummary)
	resp, err := client.Complete(ctx, Request{System: system, Messages: messages})
	if err != nil {
		return model.Graph{}, fmt.Errorf("agent: create turn: %w", err)
	}
	return parseGraph(resp.Text)
}

const modifySystemPrompt = `You revise an existing workflow graph for an automation platform based on the ` +
	`user's latest request. The current draft is included as a system message below, encoded as JSON. ` +
	`Respond with the complete replacement graph as a single JSON object of the exact shape ` +
	`{"nodes": [...], "edges": [...]}, and nothing else.`

func modify(ctx context.Context, client Client, messages []model.Message, draft model.Graph) (model.Graph, error) {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return model.Graph{}, fmt.Errorf("agent: encode current draft: %w", err)
	}
	system := modifySystemPrompt + "\n\nCurrent draft:\n" + string(draftJSON)
	resp, err := client.Complete(ctx, Request{System: system, Messages: messages})
	if err != nil {
		return model.Graph{}, fmt.Errorf("agent: modify turn: %w", err)
	}
	return parseGraph(resp.Text)
}

const clarifySystemPrompt = `You are a concise assistant gathering missing information about a workflow the ` +
	`user wants to automate. Ask exactly one focused clarifying question.`

func clarify(ctx context.Context, client Client, messages []model.Message) string {
	resp, err := client.Complete(ctx, Request{System: clarifySystemPrompt, Messages: messages})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return "Could you tell me more about what this workflow should do?"
	}
	return strings.TrimSpace(resp.Text)
}

// validate applies spec.md §4.5's reduced structural check: it never calls
// the LLM, since the message it produces is already fully determined by
// node count.
func validate(draft model.Graph) (bool, string) {
	switch {
	case len(draft.Nodes) == 0:
		return false, "I need a bit more detail — what should this workflow do?"
	case len(draft.Nodes) < 2:
		return false, "This looks incomplete — a workflow usually has at least two steps. What comes next?"
	default:
		return true, ""
	}
}

func parseGraph(text string) (model.Graph, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var g model.Graph
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		return model.Graph{}, fmt.Errorf("agent: parse graph response: %w", err)
	}
	return g, nil
}

// EnrichDraft annotates every action node whose name resolves in lookup
// with action_id/domain/a display-name-derived label, per spec.md §4.5's
// "node enrichment (external catalog)" step. This is called by the API
// handler layer, never by RunTurn itself (spec.md §9 open question 5).
func EnrichDraft(ctx context.Context, draft model.Graph, lookup ActionLookup) (model.Graph, []string) {
	var warnings []string
	nodes := make([]model.Node, len(draft.Nodes))
	copy(nodes, draft.Nodes)

	for i, n := range nodes {
		if n.Type != model.NodeTypeAction || n.Action == nil {
			continue
		}
		action, err := lookup.Get(ctx, n.Action.ActionName)
		if err != nil || action == nil {
			warnings = append(warnings, fmt.Sprintf("node %q: action %q not found in catalog", n.ID, n.Action.ActionName))
			continue
		}
		enriched := *n.Action
		if enriched.Config == nil {
			enriched.Config = map[string]any{}
		}
		enriched.Config["action_id"] = action.ID
		enriched.Config["domain"] = action.Domain
		if enriched.Label == "" {
			enriched.Label = action.DisplayName
		}
		nodes[i].Action = &enriched
	}

	draft.Nodes = nodes
	return draft, warnings
}

// RespondWithoutEnrichment returns draft unchanged. No handler calls it:
// EnrichDraft itself turns a catalog lookup error into a warning and leaves
// that node unenriched, so a lookup outage already degrades a turn to an
// unenriched draft instead of failing it.
func RespondWithoutEnrichment(draft model.Graph) model.Graph {
	return draft
}
