package agent_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/agent"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// scriptedClient replays canned responses keyed by a substring of the
// system prompt, so each agent state gets its own fake reply.
type scriptedClient struct {
	bySystemContains map[string]string
}

func (c scriptedClient) Complete(_ context.Context, req agent.Request) (agent.Response, error) {
	for key, text := range c.bySystemContains {
		if strings.Contains(req.System, key) {
			return agent.Response{Text: text}, nil
		}
	}
	return agent.Response{Text: ""}, nil
}

func TestRunTurn_CreateIntentProducesDraftAndSummary(t *testing.T) {
	client := scriptedClient{bySystemContains: map[string]string{
		"router":  "create",
		"design":  `{"nodes":[{"id":"a","type":"action","action":{"action_name":"send-email"}},{"id":"b","type":"action","action":{"action_name":"log"}}],"edges":[{"id":"e1","source":"a","target":"b","type":"default"}]}`,
	}}

	result, err := agent.RunTurn(context.Background(), client, model.ConversationSession{}, "Email the customer then log it", "send-email: sends an email\nlog: writes a log line")

	require.NoError(t, err)
	assert.Len(t, result.WorkflowDraft.Nodes, 2)
	assert.Contains(t, result.Response, "2 node")
	assert.Len(t, result.Messages, 2)
}

func TestRunTurn_ClarifyIntentPassesThroughLLMQuestion(t *testing.T) {
	client := scriptedClient{bySystemContains: map[string]string{
		"router":            "clarify",
		"clarifying question": "Which system should receive the notification?",
	}}

	result, err := agent.RunTurn(context.Background(), client, model.ConversationSession{}, "notify someone", "")

	require.NoError(t, err)
	assert.Equal(t, "Which system should receive the notification?", result.Response)
	assert.Empty(t, result.WorkflowDraft.Nodes)
}

func TestRunTurn_CompleteIntentReturnsConfirmation(t *testing.T) {
	client := scriptedClient{bySystemContains: map[string]string{"router": "complete"}}
	existing := model.ConversationSession{WorkflowDraft: model.Graph{Nodes: []model.Node{{ID: "a"}, {ID: "b"}}}}

	result, err := agent.RunTurn(context.Background(), client, existing, "looks good, save it", "")

	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(result.Response), "ready")
	assert.Equal(t, existing.WorkflowDraft, result.WorkflowDraft)
}

func TestRunTurn_UnknownRouterTokenFallsBackToCreate(t *testing.T) {
	client := scriptedClient{bySystemContains: map[string]string{
		"router": "nonsense-token",
		"design": `{"nodes":[{"id":"a","type":"action","action":{"action_name":"ping"}}],"edges":[]}`,
	}}

	result, err := agent.RunTurn(context.Background(), client, model.ConversationSession{}, "ping something", "ping: pings")

	require.NoError(t, err)
	assert.Len(t, result.WorkflowDraft.Nodes, 1)
}

func TestRunTurn_ValidateRejectsSingleNodeDraftAsIncomplete(t *testing.T) {
	client := scriptedClient{bySystemContains: map[string]string{
		"router": "create",
		"design": `{"nodes":[{"id":"a","type":"action","action":{"action_name":"ping"}}],"edges":[]}`,
	}}

	result, err := agent.RunTurn(context.Background(), client, model.ConversationSession{}, "ping something", "ping: pings")

	require.NoError(t, err)
	assert.Contains(t, result.Response, "incomplete")
}

func TestRunTurn_ModifyReplacesDraftEntirely(t *testing.T) {
	existing := model.ConversationSession{WorkflowDraft: model.Graph{
		Nodes: []model.Node{{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "ping"}}},
	}}
	client := scriptedClient{bySystemContains: map[string]string{
		"router": "modify",
		"revise": `{"nodes":[{"id":"a","type":"action","action":{"action_name":"ping"}},{"id":"b","type":"action","action":{"action_name":"notify"}}],"edges":[{"id":"e1","source":"a","target":"b","type":"default"}]}`,
	}}

	result, err := agent.RunTurn(context.Background(), client, existing, "also notify someone after", "")

	require.NoError(t, err)
	assert.Len(t, result.WorkflowDraft.Nodes, 2)
}

type stubLookup struct {
	actions map[string]*model.Action
}

func (s stubLookup) Get(_ context.Context, name string) (*model.Action, error) {
	return s.actions[name], nil
}

func TestEnrichDraft_AnnotatesKnownAction(t *testing.T) {
	draft := model.Graph{Nodes: []model.Node{
		{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "send-email"}},
	}}
	lookup := stubLookup{actions: map[string]*model.Action{
		"send-email": {ID: "act-1", ActionName: "send-email", Domain: "comms", DisplayName: "Send Email"},
	}}

	enriched, warnings := agent.EnrichDraft(context.Background(), draft, lookup)

	assert.Empty(t, warnings)
	require.NotNil(t, enriched.Nodes[0].Action)
	assert.Equal(t, "act-1", enriched.Nodes[0].Action.Config["action_id"])
	assert.Equal(t, "Send Email", enriched.Nodes[0].Action.Label)
}

func TestEnrichDraft_WarnsOnUnknownAction(t *testing.T) {
	draft := model.Graph{Nodes: []model.Node{
		{ID: "a", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "mystery"}},
	}}

	_, warnings := agent.EnrichDraft(context.Background(), draft, stubLookup{actions: map[string]*model.Action{}})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "mystery")
}

func TestRespondWithoutEnrichment_ReturnsDraftUnchanged(t *testing.T) {
	draft := model.Graph{Nodes: []model.Node{{ID: "a"}}}
	assert.Equal(t, draft, agent.RespondWithoutEnrichment(draft))
}
