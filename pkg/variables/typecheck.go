package variables

import (
	"fmt"
	"strings"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// typeSchemas holds one compiled JSON Schema per variable type.
var typeSchemas = func() map[models.VariableType]*gojsonschema.Schema {
	out := make(map[models.VariableType]*gojsonschema.Schema)

	for _, t := range []models.VariableType{
		models.VariableTypeString,
		models.VariableTypeNumber,
		models.VariableTypeBoolean,
		models.VariableTypeObject,
		models.VariableTypeArray,
	} {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]any{"type": string(t)}))
		if err != nil {
			panic(fmt.Sprintf("compile schema for %s: %v", t, err))
		}

		out[t] = schema
	}

	return out
}()

// CheckDefault verifies that the variable's default value, when present, matches its type.
func CheckDefault(v models.Variable) error {
	schema, ok := typeSchemas[v.Type]
	if !ok {
		return fmt.Errorf("%w: unknown variable type %q", models.ErrInvalidDefault, v.Type)
	}

	if v.DefaultValue == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(v.DefaultValue))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidDefault, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w: %s", models.ErrInvalidDefault, strings.Join(messages, "; "))
	}

	return nil
}
