package interpolate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/interpolate"
)

func TestConfig_SubstitutesDotPath(t *testing.T) {
	state := map[string]any{
		"results": map[string]any{
			"a": map[string]any{"data": map[string]any{"value": "hi"}},
		},
	}
	config := map[string]any{"msg": "{{results.a.data.value}}"}

	out := interpolate.Config(config, state)

	got, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", got["msg"])
}

func TestConfig_MissingPathResolvesToNoneLiteral(t *testing.T) {
	out := interpolate.Config("{{results.nonexistent.value}}", map[string]any{})
	assert.Equal(t, "None", out)
}

func TestConfig_IdempotentWithoutPlaceholders(t *testing.T) {
	state := map[string]any{"x": 1}
	once := interpolate.Config("plain text", state)
	twice := interpolate.Config(once, state)
	assert.Equal(t, once, twice)
	assert.Equal(t, "plain text", twice)
}

func TestConfig_RecursesIntoSlicesAndMaps(t *testing.T) {
	state := map[string]any{"inputs": map[string]any{"name": "ada"}}
	config := map[string]any{
		"list": []any{"{{inputs.name}}", 42, map[string]any{"nested": "{{inputs.name}}"}},
	}

	out := interpolate.Config(config, state).(map[string]any)
	list := out["list"].([]any)

	assert.Equal(t, "ada", list[0])
	assert.Equal(t, 42, list[1])
	assert.Equal(t, "ada", list[2].(map[string]any)["nested"])
}

func TestConfig_NonOverlappingAdjacentPlaceholders(t *testing.T) {
	state := map[string]any{"a": "1", "b": "2"}
	out := interpolate.Config("{{a}}-{{b}}", state)
	assert.Equal(t, "1-2", out)
}

func TestConfig_PureNoMutationOfState(t *testing.T) {
	state := map[string]any{"results": map[string]any{"a": map[string]any{"value": "v"}}}
	snapshot := map[string]any{"results": map[string]any{"a": map[string]any{"value": "v"}}}

	_ = interpolate.Config(map[string]any{"x": "{{results.a.value}}"}, state)

	assert.Equal(t, snapshot, state)
}

func TestConfig_ScalarsUnchanged(t *testing.T) {
	assert.Equal(t, 7, interpolate.Config(7, nil))
	assert.Equal(t, true, interpolate.Config(true, nil))
	assert.Equal(t, nil, interpolate.Config(nil, nil))
}
