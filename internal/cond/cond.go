// Package cond evaluates a condition node's comparator against interpolated
// workflow state. This resolves spec.md §9's open question on condition
// evaluation: rather than embedding a general expression language (and its
// attendant sandboxing problems) or stubbing evaluation to always-true, the
// comparator set is fixed to the seven operators model.CondExpr documents,
// each implemented as a small, total comparison over already-interpolated
// scalars.
package cond

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// Evaluate resolves expr.Left (already interpolated into a concrete value
// by the caller) against expr.Right using expr.Operator, and reports
// whether the comparison is well-formed.
func Evaluate(expr model.CondExpr, left any) (bool, error) {
	switch strings.ToLower(expr.Operator) {
	case "eq":
		return equal(left, expr.Right), nil
	case "ne":
		return !equal(left, expr.Right), nil
	case "gt":
		return compareNumeric(left, expr.Right, func(a, b float64) bool { return a > b })
	case "gte":
		return compareNumeric(left, expr.Right, func(a, b float64) bool { return a >= b })
	case "lt":
		return compareNumeric(left, expr.Right, func(a, b float64) bool { return a < b })
	case "lte":
		return compareNumeric(left, expr.Right, func(a, b float64) bool { return a <= b })
	case "contains":
		return contains(left, expr.Right)
	default:
		return false, fmt.Errorf("unsupported condition operator %q", expr.Operator)
	}
}

func equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false, fmt.Errorf("operands %v and %v are not both numeric", a, b)
	}
	return cmp(af, bf), nil
}

func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle)), nil
	case []any:
		for _, item := range h {
			if equal(item, needle) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("operand %v does not support contains", haystack)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
