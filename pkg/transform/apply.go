// Package transform derives a data record from an input record using the field-to-field rules
// of a transform node.
//
// Only copy, rename and format are computed here. Format keeps the raw value because
// formatting is defined by the backend. Calculate and custom are never evaluated: their output
// fields are left out so a preview shows them as server-evaluated instead of guessing a value.
package transform

import (
	"maps"
	"slices"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/variables"
)

// Result is the client-side preview of a transform node.
type Result struct {
	Output map[string]any `json:"output"`
	// ServerEvaluated lists output fields whose final value only the backend can compute, in
	// first-declared order.
	ServerEvaluated []string `json:"serverEvaluated"`
}

// Apply runs the expressions in declared order into a fresh record. The input is not mutated.
func Apply(expressions []models.TransformExpression, input map[string]any) map[string]any {
	return Preview(expressions, input).Output
}

// Preview runs the expressions like Apply and also reports the server-evaluated fields.
func Preview(expressions []models.TransformExpression, input map[string]any) Result {
	out := Result{
		Output:          make(map[string]any),
		ServerEvaluated: []string{},
	}

	for _, expr := range expressions {
		if expr.Transform.ServerEvaluated() {
			delete(out.Output, expr.OutputField)

			if !slices.Contains(out.ServerEvaluated, expr.OutputField) {
				out.ServerEvaluated = append(out.ServerEvaluated, expr.OutputField)
			}

			continue
		}

		switch expr.Transform {
		case models.TransformCopy, models.TransformRename, models.TransformFormat:
			// A missing input field still writes the key, with a nil value.
			out.Output[expr.OutputField] = cloneValue(input[fieldName(expr.InputField)])
			out.ServerEvaluated = slices.DeleteFunc(out.ServerEvaluated, func(f string) bool {
				return f == expr.OutputField
			})
		}
	}

	return out
}

// fieldName strips an optional "${...}" wrapper from an input field.
func fieldName(field string) string {
	if name, ok := variables.ReferenceName(field); ok {
		return name
	}

	return field
}

// cloneValue copies nested maps and slices so the output never aliases the input.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := maps.Clone(v)
		for k, inner := range out {
			out[k] = cloneValue(inner)
		}

		return out
	case []any:
		out := slices.Clone(v)
		for i, inner := range out {
			out[i] = cloneValue(inner)
		}

		return out
	default:
		return v
	}
}
