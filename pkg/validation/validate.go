// Package validation runs the structural and semantic checks that gate saving and running a
// workflow. It never stops at the first problem: every finding is reported.
package validation

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/skillhub/flowcore/pkg/graph"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/variables"
)

// Codes of the validation findings.
const (
	CodeMissingStart         = "MISSING_START"
	CodeMultipleStart        = "MULTIPLE_START"
	CodeMissingEnd           = "MISSING_END"
	CodeNoIncoming           = "NO_INCOMING"
	CodeNoOutgoing           = "NO_OUTGOING"
	CodeConditionBranches    = "CONDITION_BRANCHES"
	CodeCycle                = "CYCLE"
	CodeDanglingReference    = "DANGLING_REFERENCE"
	CodeEmptyCustomExpr      = "EMPTY_CUSTOM_EXPRESSION"
	CodeUnexpectedCustomExpr = "UNEXPECTED_CUSTOM_EXPRESSION"
	CodeInvalidVariable      = "INVALID_VARIABLE"

	// CodeInvalidDefinition is reported by callers when a stored definition cannot be loaded
	// into a graph at all, for example a hand-written document with duplicate node ids.
	CodeInvalidDefinition = "INVALID_DEFINITION"
)

// ValidationError is one finding. NodeID is empty for graph-wide findings.
type ValidationError struct {
	Code    string `json:"code"`
	NodeID  string `json:"nodeId,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return e.Code + ": " + e.Message
	}

	return e.Code + " (" + e.NodeID + "): " + e.Message
}

// Result is the full report of a validation run.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// ForNode returns the findings attached to one node.
func (r Result) ForNode(nodeID string) []ValidationError {
	var out []ValidationError

	for _, e := range r.Errors {
		if e.NodeID == nodeID {
			out = append(out, e)
		}
	}

	return out
}

// HasCode reports whether any finding carries code.
func (r Result) HasCode(code string) bool {
	return slices.ContainsFunc(r.Errors, func(e ValidationError) bool { return e.Code == code })
}

// Summary joins all finding messages into one line.
func (r Result) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Error())
	}

	return strings.Join(parts, "; ")
}

type validator struct {
	g        *graph.Graph
	registry *variables.Registry
	errors   []ValidationError
}

// Validate checks g against the variables in registry. A nil registry is treated as empty.
// Checks run in a fixed order so the report is deterministic.
func Validate(g *graph.Graph, registry *variables.Registry) Result {
	if registry == nil {
		registry = variables.NewRegistry()
	}

	v := &validator{g: g, registry: registry}

	v.checkStart()
	v.checkEnd()
	v.checkIncoming()
	v.checkOutgoing()
	v.checkConditionBranches()
	v.checkCycles()
	v.checkReferences()
	v.checkCustomExpressions()
	v.checkVariables()

	if v.errors == nil {
		v.errors = []ValidationError{}
	}

	return Result{Valid: len(v.errors) == 0, Errors: v.errors}
}

func (v *validator) add(code, nodeID, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Code:    code,
		NodeID:  nodeID,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) checkStart() {
	starts := v.g.NodesOfType(models.NodeTypeStart)

	switch len(starts) {
	case 0:
		v.add(CodeMissingStart, "", "workflow must have a start node")
	case 1:
	default:
		for _, n := range starts[1:] {
			v.add(CodeMultipleStart, n.ID, "workflow must have exactly one start node, found %d", len(starts))
		}
	}
}

func (v *validator) checkEnd() {
	if len(v.g.NodesOfType(models.NodeTypeEnd)) == 0 {
		v.add(CodeMissingEnd, "", "workflow must have at least one end node")
	}
}

func (v *validator) checkIncoming() {
	for _, n := range v.g.Nodes() {
		if n.Type != models.NodeTypeStart && len(v.g.Incoming(n.ID)) == 0 {
			v.add(CodeNoIncoming, n.ID, "node %q has no incoming connection", label(n))
		}
	}
}

func (v *validator) checkOutgoing() {
	for _, n := range v.g.Nodes() {
		if n.Type != models.NodeTypeEnd && len(v.g.Outgoing(n.ID)) == 0 {
			v.add(CodeNoOutgoing, n.ID, "node %q has no outgoing connection", label(n))
		}
	}
}

func (v *validator) checkConditionBranches() {
	for _, n := range v.g.NodesOfType(models.NodeTypeCondition) {
		handles := map[string]int{}
		for _, e := range v.g.Outgoing(n.ID) {
			handles[e.SourceHandle]++
		}

		if len(v.g.Outgoing(n.ID)) == 2 && handles[models.HandleTrue] == 1 && handles[models.HandleFalse] == 1 {
			continue
		}

		var missing []string
		for _, h := range []string{models.HandleTrue, models.HandleFalse} {
			if handles[h] == 0 {
				missing = append(missing, h)
			}
		}

		if len(missing) > 0 {
			v.add(CodeConditionBranches, n.ID, "condition %q is missing its %s branch", label(n),
				strings.Join(missing, " and "))
		} else {
			v.add(CodeConditionBranches, n.ID, "condition %q must have exactly one true and one false branch",
				label(n))
		}
	}
}

func (v *validator) checkCycles() {
	for _, start := range v.g.NodesOfType(models.NodeTypeStart) {
		cycle := v.g.FindCycleFrom(start.ID)
		if cycle == nil {
			continue
		}

		v.add(CodeCycle, cycle[0], "cycle detected: %s", strings.Join(append(cycle, cycle[0]), " -> "))
	}
}

func (v *validator) checkReferences() {
	for _, n := range v.g.Nodes() {
		switch n.Type {
		case models.NodeTypeSkill:
			v.checkSkillReferences(n)
		case models.NodeTypeCondition:
			for _, expr := range n.Condition.Conditions.Expressions {
				v.checkReference(n.ID, "condition field", expr.Field)
			}
		case models.NodeTypeTransform:
			for _, expr := range n.Transform.Expressions {
				v.checkReference(n.ID, "transform input", expr.InputField)
			}
		}
	}
}

func (v *validator) checkSkillReferences(n models.Node) {
	for _, param := range slices.Sorted(maps.Keys(n.Skill.InputMapping)) {
		v.checkReference(n.ID, "input "+param, n.Skill.InputMapping[param])
	}

	for _, output := range slices.Sorted(maps.Keys(n.Skill.OutputMapping)) {
		target := n.Skill.OutputMapping[output]

		name, ok := variables.ReferenceName(target)
		if !ok {
			name = strings.TrimSpace(target)
		}

		if v.registry.Lookup(name) == nil {
			v.add(CodeDanglingReference, n.ID, "output %s maps to undeclared variable %q", output, target)
		}
	}
}

// checkReference flags a ${...} reference naming no variable. Literals always pass.
func (v *validator) checkReference(nodeID, where, ref string) {
	name, ok := variables.ReferenceName(ref)
	if !ok {
		return
	}

	if v.registry.Lookup(name) == nil {
		v.add(CodeDanglingReference, nodeID, "%s references undeclared variable %q", where, name)
	}
}

func (v *validator) checkCustomExpressions() {
	for _, n := range v.g.NodesOfType(models.NodeTypeTransform) {
		for i, expr := range n.Transform.Expressions {
			custom := strings.TrimSpace(expr.CustomExpression) != ""

			switch {
			case expr.Transform == models.TransformCustom && !custom:
				v.add(CodeEmptyCustomExpr, n.ID, "rule %d (%s) is custom but has no expression", i+1, expr.OutputField)
			case expr.Transform != models.TransformCustom && custom:
				v.add(CodeUnexpectedCustomExpr, n.ID, "rule %d (%s) is %s and must not carry a custom expression",
					i+1, expr.OutputField, expr.Transform)
			}
		}
	}
}

func (v *validator) checkVariables() {
	seen := map[string]bool{}

	for _, variable := range v.registry.List() {
		switch {
		case !variables.ValidIdentifier(variable.Name):
			v.add(CodeInvalidVariable, "", "variable %q is not a valid identifier", variable.Name)
		case seen[variable.Name]:
			v.add(CodeInvalidVariable, "", "variable %q is declared more than once", variable.Name)
		}

		seen[variable.Name] = true

		if err := variables.CheckDefault(variable); err != nil {
			v.add(CodeInvalidVariable, "", "variable %q: %v", variable.Name, err)
		}
	}
}

func label(n models.Node) string {
	if n.Label != "" {
		return n.Label
	}

	return n.ID
}
