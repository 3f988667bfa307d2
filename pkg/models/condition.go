package models

// Operator is a condition expression comparison operator.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIsEmpty     Operator = "is_empty"
	OperatorIsNotEmpty  Operator = "is_not_empty"
)

// Logic combines the results of a condition group's expressions.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// ConditionExpression compares a context field against a value.
type ConditionExpression struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than is_empty is_not_empty"`
	Value    string   `json:"value"`
}

// ConditionGroup is the boolean expression tree of a condition node.
type ConditionGroup struct {
	Expressions []ConditionExpression `json:"expressions"`
	Logic       Logic                 `json:"logic"       validate:"omitempty,oneof=and or"`
}
