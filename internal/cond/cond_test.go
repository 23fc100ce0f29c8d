package cond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/cond"
	"github.com/shankarbhavani/workflow-builder/internal/model"
)

func TestEvaluate_Eq(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "eq", Right: "done"}, "done")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_EqNumericCrossType(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "eq", Right: 5}, "5")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_Ne(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "ne", Right: "done"}, "pending")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_Gt(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "gt", Right: float64(3)}, float64(5))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_GtNonNumericErrors(t *testing.T) {
	_, err := cond.Evaluate(model.CondExpr{Operator: "gt", Right: "x"}, "y")
	require.Error(t, err)
}

func TestEvaluate_Contains_String(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "contains", Right: "lo"}, "hello")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_Contains_Slice(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "contains", Right: "b"}, []any{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	_, err := cond.Evaluate(model.CondExpr{Operator: "regex", Right: "x"}, "y")
	require.Error(t, err)
}

func TestEvaluate_Lte(t *testing.T) {
	ok, err := cond.Evaluate(model.CondExpr{Operator: "lte", Right: float64(5)}, float64(5))
	require.NoError(t, err)
	assert.True(t, ok)
}
