package models

// TransformKind selects how a transform expression derives its output field.
type TransformKind string

const (
	TransformCopy      TransformKind = "copy"
	TransformRename    TransformKind = "rename"
	TransformFormat    TransformKind = "format"
	TransformCalculate TransformKind = "calculate"
	TransformCustom    TransformKind = "custom"
)

// ServerEvaluated reports whether only the backend can compute the output of this kind.
func (k TransformKind) ServerEvaluated() bool {
	return k == TransformCalculate || k == TransformCustom
}

// TransformExpression maps one input field to one output field.
type TransformExpression struct {
	InputField  string        `json:"inputField"                 validate:"required"`
	OutputField string        `json:"outputField"                validate:"required"`
	Transform   TransformKind `json:"transform"                  validate:"required,oneof=copy rename format calculate custom"`
	// CustomExpression is an opaque backend formula, required iff Transform is custom.
	CustomExpression string `json:"customExpression,omitempty"`
}
