package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/catalog"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

type stubStore struct {
	actions map[string]*model.Action
	getErr  error
	calls   int
}

func (s *stubStore) GetAction(_ context.Context, name string) (*model.Action, error) {
	s.calls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.actions[name], nil
}

func (s *stubStore) ListActions(_ context.Context, _ model.ActionFilter) ([]model.Action, error) {
	var out []model.Action
	for _, a := range s.actions {
		out = append(out, *a)
	}
	return out, nil
}

func TestLookup_GetDelegatesToStore(t *testing.T) {
	store := &stubStore{actions: map[string]*model.Action{
		"send-email": {ActionName: "send-email", IsActive: true},
	}}
	lookup := catalog.NewLookup(store)

	action, err := lookup.Get(context.Background(), "send-email")

	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "send-email", action.ActionName)
}

func TestLookup_IsActive(t *testing.T) {
	store := &stubStore{actions: map[string]*model.Action{
		"active":   {ActionName: "active", IsActive: true},
		"inactive": {ActionName: "inactive", IsActive: false},
	}}
	lookup := catalog.NewLookup(store)

	active, err := lookup.IsActive(context.Background(), "active")
	require.NoError(t, err)
	assert.True(t, active)

	inactive, err := lookup.IsActive(context.Background(), "inactive")
	require.NoError(t, err)
	assert.False(t, inactive)

	missing, err := lookup.IsActive(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, missing)
}

func TestCachedLookup_NilRedisDegradesToPassThrough(t *testing.T) {
	store := &stubStore{actions: map[string]*model.Action{
		"send-email": {ActionName: "send-email", IsActive: true},
	}}
	cached := catalog.NewCachedLookup(catalog.NewLookup(store), nil, 0)

	action, err := cached.Get(context.Background(), "send-email")

	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, 1, store.calls)

	_, err = cached.Get(context.Background(), "send-email")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls, "without redis every call should fall through to the store")
}

func TestCachedLookup_StoreErrorPropagates(t *testing.T) {
	store := &stubStore{getErr: errors.New("boom")}
	cached := catalog.NewCachedLookup(catalog.NewLookup(store), nil, 0)

	_, err := cached.Get(context.Background(), "anything")

	assert.Error(t, err)
}

func TestSchemaValidator_NoSchemaAlwaysValidates(t *testing.T) {
	v := catalog.NewSchemaValidator()
	action := model.Action{ActionName: "no-schema"}

	err := v.ValidateConfig(action, map[string]any{"anything": true})

	assert.NoError(t, err)
}

func TestSchemaValidator_ValidConfigPasses(t *testing.T) {
	v := catalog.NewSchemaValidator()
	action := model.Action{
		ActionName: "send-email",
		Parameters: []byte(`{
			"type": "object",
			"required": ["to"],
			"properties": {"to": {"type": "string"}}
		}`),
	}

	err := v.ValidateConfig(action, map[string]any{"to": "a@example.com"})

	assert.NoError(t, err)
}

func TestSchemaValidator_InvalidConfigFails(t *testing.T) {
	v := catalog.NewSchemaValidator()
	action := model.Action{
		ActionName: "send-email",
		Parameters: []byte(`{
			"type": "object",
			"required": ["to"],
			"properties": {"to": {"type": "string"}}
		}`),
	}

	err := v.ValidateConfig(action, map[string]any{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send-email")
}

func TestSchemaValidator_CompilesOnceAndReuses(t *testing.T) {
	v := catalog.NewSchemaValidator()
	action := model.Action{
		ActionName: "ping",
		Parameters: []byte(`{"type": "object"}`),
	}

	require.NoError(t, v.ValidateConfig(action, map[string]any{}))
	require.NoError(t, v.ValidateConfig(action, map[string]any{"extra": 1}))
}

func TestSchemaValidator_ValidateGraphConfigsReportsPerNodeViolations(t *testing.T) {
	v := catalog.NewSchemaValidator()
	store := &stubStore{actions: map[string]*model.Action{
		"send-email": {
			ActionName: "send-email",
			IsActive:   true,
			Parameters: []byte(`{
				"type": "object",
				"required": ["to"],
				"properties": {"to": {"type": "string"}}
			}`),
		},
	}}
	lookup := catalog.NewLookup(store)

	g := model.Graph{Nodes: []model.Node{
		{ID: "n1", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "send-email", Config: map[string]any{}}},
	}}

	errs := v.ValidateGraphConfigs(context.Background(), g, lookup)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "n1")
}

func TestSchemaValidator_ValidateGraphConfigsSkipsUnknownActions(t *testing.T) {
	v := catalog.NewSchemaValidator()
	lookup := catalog.NewLookup(&stubStore{actions: map[string]*model.Action{}})

	g := model.Graph{Nodes: []model.Node{
		{ID: "n1", Type: model.NodeTypeAction, Action: &model.ActionData{ActionName: "missing"}},
	}}

	errs := v.ValidateGraphConfigs(context.Background(), g, lookup)

	assert.Empty(t, errs, "absence is reported by C2's own check, not here")
}
