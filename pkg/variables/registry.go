// Package variables holds the typed, named values scoped to a workflow and resolves the
// "${name}" references nodes use to point at them.
package variables

import (
	"regexp"
	"slices"
	"strings"

	"github.com/skillhub/flowcore/pkg/models"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether name may be used as a variable name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ReferenceName extracts the variable name from a "${name}" reference. ok is false for
// literals.
func ReferenceName(ref string) (string, bool) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, "${") || !strings.HasSuffix(trimmed, "}") {
		return "", false
	}

	name := strings.TrimSpace(trimmed[2 : len(trimmed)-1])
	if name == "" {
		return "", false
	}

	return name, true
}

// Reference wraps a variable name as "${name}".
func Reference(name string) string {
	return "${" + name + "}"
}

// Registry is the ordered set of variables declared on a workflow.
type Registry struct {
	vars []models.Variable
}

// NewRegistry loads variables as stored. Nothing is rejected here so that documents with
// problems can still be opened and reported by validation.
func NewRegistry(vars ...models.Variable) *Registry {
	return &Registry{vars: slices.Clone(vars)}
}

// Declare adds a variable. The name must be a free, valid identifier and the default value
// must match the declared type.
func (r *Registry) Declare(v models.Variable) error {
	if err := r.checkName("Declare", "", v.Name); err != nil {
		return err
	}

	if v.ID != "" && r.indexByID(v.ID) >= 0 {
		return models.NewMutationError("Declare", v.ID, models.ErrDuplicateID, "variable id already declared")
	}

	if err := CheckDefault(v); err != nil {
		return models.NewMutationError("Declare", v.Name, err, "")
	}

	r.vars = append(r.vars, v)

	return nil
}

// Update applies a patch to the variable with the given id.
func (r *Registry) Update(id string, patch models.VariablePatch) (models.Variable, error) {
	idx := r.indexByID(id)
	if idx < 0 {
		return models.Variable{}, models.NewMutationError("Update", id, models.ErrNotFound, "variable not declared")
	}

	updated := patch.Apply(r.vars[idx])

	if updated.Name != r.vars[idx].Name {
		if err := r.checkName("Update", id, updated.Name); err != nil {
			return models.Variable{}, err
		}
	}

	if err := CheckDefault(updated); err != nil {
		return models.Variable{}, models.NewMutationError("Update", id, err, "")
	}

	r.vars[idx] = updated

	return updated, nil
}

// Remove deletes the variable with the given id. References to it are left dangling for the
// validator to report. It reports whether a variable was removed.
func (r *Registry) Remove(id string) bool {
	idx := r.indexByID(id)
	if idx < 0 {
		return false
	}

	r.vars = slices.Delete(r.vars, idx, idx+1)

	return true
}

// Resolve looks up a "${name}" reference. It returns nil for literals and unknown names.
func (r *Registry) Resolve(ref string) *models.Variable {
	name, ok := ReferenceName(ref)
	if !ok {
		return nil
	}

	return r.Lookup(name)
}

// Lookup finds a variable by its bare name.
func (r *Registry) Lookup(name string) *models.Variable {
	for i := range r.vars {
		if r.vars[i].Name == name {
			v := r.vars[i]

			return &v
		}
	}

	return nil
}

// Get finds a variable by id.
func (r *Registry) Get(id string) (models.Variable, bool) {
	idx := r.indexByID(id)
	if idx < 0 {
		return models.Variable{}, false
	}

	return r.vars[idx], true
}

// List returns the variables in declaration order.
func (r *Registry) List() []models.Variable {
	return slices.Clone(r.vars)
}

// Len returns the number of declared variables.
func (r *Registry) Len() int {
	return len(r.vars)
}

// Defaults returns the default values keyed by variable name, for seeding a preview context.
func (r *Registry) Defaults() map[string]any {
	out := make(map[string]any, len(r.vars))

	for _, v := range r.vars {
		if v.DefaultValue != nil {
			out[v.Name] = v.DefaultValue
		}
	}

	return out
}

func (r *Registry) checkName(op, id, name string) error {
	target := id
	if target == "" {
		target = name
	}

	if !ValidIdentifier(name) {
		return models.NewMutationError(op, target, models.ErrInvalidIdentifier,
			"name must match "+identifierPattern.String())
	}

	if r.Lookup(name) != nil {
		return models.NewMutationError(op, target, models.ErrDuplicateName,
			"variable "+name+" already declared")
	}

	return nil
}

func (r *Registry) indexByID(id string) int {
	return slices.IndexFunc(r.vars, func(v models.Variable) bool { return v.ID == id })
}
