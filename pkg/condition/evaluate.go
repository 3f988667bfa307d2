// Package condition evaluates the boolean expression groups carried by condition nodes.
//
// Evaluation never fails: unknown operators, non-numeric comparisons and missing fields all
// produce false for the affected expression instead of an error.
package condition

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/variables"
)

// ExpressionResult is the outcome of one expression, kept for explaining a decision.
type ExpressionResult struct {
	Expression models.ConditionExpression `json:"expression"`
	FieldValue any                        `json:"fieldValue,omitempty"`
	Present    bool                       `json:"present"`
	Result     bool                       `json:"result"`
}

// Explanation is the full trace of a condition group evaluation.
type Explanation struct {
	Logic       models.Logic       `json:"logic"`
	Result      bool               `json:"result"`
	Expressions []ExpressionResult `json:"expressions"`
}

// Evaluate combines every expression of the group with its logic. An empty group is true.
func Evaluate(group models.ConditionGroup, ctx map[string]any) bool {
	return Explain(group, ctx).Result
}

// Explain evaluates the group and records the outcome of each expression.
func Explain(group models.ConditionGroup, ctx map[string]any) Explanation {
	logic := group.Logic
	if logic != models.LogicOr {
		logic = models.LogicAnd
	}

	out := Explanation{
		Logic:       logic,
		Result:      true,
		Expressions: make([]ExpressionResult, 0, len(group.Expressions)),
	}

	if len(group.Expressions) == 0 {
		return out
	}

	anyTrue := false
	allTrue := true

	for _, expr := range group.Expressions {
		value, present := lookup(ctx, expr.Field)
		result := EvaluateExpression(expr, ctx)

		out.Expressions = append(out.Expressions, ExpressionResult{
			Expression: expr,
			FieldValue: value,
			Present:    present,
			Result:     result,
		})

		anyTrue = anyTrue || result
		allTrue = allTrue && result
	}

	if logic == models.LogicOr {
		out.Result = anyTrue
	} else {
		out.Result = allTrue
	}

	return out
}

// EvaluateExpression applies one expression to the context.
func EvaluateExpression(expr models.ConditionExpression, ctx map[string]any) bool {
	value, present := lookup(ctx, expr.Field)

	switch expr.Operator {
	case models.OperatorEquals:
		return looseEqual(value, present, expr.Value)
	case models.OperatorNotEquals:
		return !looseEqual(value, present, expr.Value)
	case models.OperatorContains:
		if !present {
			return false
		}

		return strings.Contains(Stringify(value, true), expr.Value)
	case models.OperatorGreaterThan, models.OperatorLessThan:
		left, ok := toNumber(value, present)
		if !ok {
			return false
		}

		right, ok := toNumber(expr.Value, true)
		if !ok {
			return false
		}

		if expr.Operator == models.OperatorGreaterThan {
			return left > right
		}

		return left < right
	case models.OperatorIsEmpty:
		return IsEmpty(value, present)
	case models.OperatorIsNotEmpty:
		return !IsEmpty(value, present)
	default:
		return false
	}
}

// lookup resolves a field against the context. A "${name}" field is looked up by name.
func lookup(ctx map[string]any, field string) (any, bool) {
	if name, ok := variables.ReferenceName(field); ok {
		field = name
	}

	value, ok := ctx[field]

	return value, ok
}

func looseEqual(value any, present bool, operand string) bool {
	left, leftOK := toNumber(value, present)
	right, rightOK := toNumber(operand, true)

	if leftOK && rightOK {
		return left == right
	}

	return Stringify(value, present) == operand
}

// IsEmpty reports whether a value counts as empty: missing, nil, "", or an empty array or
// object.
func IsEmpty(value any, present bool) bool {
	if !present || value == nil {
		return true
	}

	switch v := value.(type) {
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// toNumber coerces a value to a finite number the way the editor does: nil, blank strings and
// false are 0, true is 1, other strings must parse completely. Missing fields, arrays and
// objects are not numeric.
func toNumber(value any, present bool) (float64, bool) {
	if !present {
		return 0, false
	}

	var f float64

	switch v := value.(type) {
	case nil:
		f = 0
	case bool:
		if v {
			f = 1
		}
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}

		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}

		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// Stringify renders a context value the way the editor displays it: missing values as
// "undefined", nil as "null", arrays joined by commas and objects as "[object Object]".
func Stringify(value any, present bool) string {
	if !present {
		return "undefined"
	}

	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			if item == nil {
				continue
			}

			parts[i] = Stringify(item, true)
		}

		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	}

	if f, ok := toNumber(value, true); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			parts[i] = Stringify(rv.Index(i).Interface(), true)
		}

		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	default:
		return fmt.Sprint(value)
	}
}
