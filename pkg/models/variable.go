package models

// VariableType is the declared type of a workflow variable.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeBoolean VariableType = "boolean"
	VariableTypeObject  VariableType = "object"
	VariableTypeArray   VariableType = "array"
)

// Variable is a typed named value scoped to a workflow.
type Variable struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"                   validate:"required"`
	Type         VariableType `json:"type"                   validate:"required,oneof=string number boolean object array"`
	DefaultValue any          `json:"defaultValue,omitempty"`
	Description  string       `json:"description,omitempty"`
	Required     bool         `json:"required"`
}

// VariablePatch is a partial update of a variable.
type VariablePatch struct {
	Name         *string       `json:"name,omitempty"`
	Type         *VariableType `json:"type,omitempty"`
	DefaultValue any           `json:"defaultValue,omitempty"`
	ClearDefault bool          `json:"clearDefault,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Required     *bool         `json:"required,omitempty"`
}

// Apply returns a copy of v with the patch applied.
func (p VariablePatch) Apply(v Variable) Variable {
	if p.Name != nil {
		v.Name = *p.Name
	}

	if p.Type != nil {
		v.Type = *p.Type
	}

	if p.ClearDefault {
		v.DefaultValue = nil
	} else if p.DefaultValue != nil {
		v.DefaultValue = p.DefaultValue
	}

	if p.Description != nil {
		v.Description = *p.Description
	}

	if p.Required != nil {
		v.Required = *p.Required
	}

	return v
}
