package variables

import (
	"testing"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceName(t *testing.T) {
	tests := []struct {
		ref      string
		wantName string
		wantOK   bool
	}{
		{ref: "${customer}", wantName: "customer", wantOK: true},
		{ref: " ${ customer } ", wantName: "customer", wantOK: true},
		{ref: "customer", wantOK: false},
		{ref: "${}", wantOK: false},
		{ref: "$customer", wantOK: false},
		{ref: "prefix ${customer}", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			name, ok := ReferenceName(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestRegistry_Declare(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Declare(models.Variable{ID: "v1", Name: "customer_id", Type: models.VariableTypeString}))

	t.Run("duplicate name", func(t *testing.T) {
		err := reg.Declare(models.Variable{ID: "v2", Name: "customer_id", Type: models.VariableTypeNumber})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrDuplicateName)
	})

	t.Run("invalid identifier", func(t *testing.T) {
		err := reg.Declare(models.Variable{ID: "v3", Name: "1st-value", Type: models.VariableTypeString})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrDuplicateName)
		assert.ErrorIs(t, err, models.ErrInvalidIdentifier)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := reg.Declare(models.Variable{ID: "v1", Name: "other", Type: models.VariableTypeString})
		assert.ErrorIs(t, err, models.ErrDuplicateID)
	})

	t.Run("default must match type", func(t *testing.T) {
		err := reg.Declare(models.Variable{ID: "v4", Name: "retries", Type: models.VariableTypeNumber, DefaultValue: "three"})
		assert.ErrorIs(t, err, models.ErrInvalidDefault)
	})

	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Update(t *testing.T) {
	reg := NewRegistry(
		models.Variable{ID: "v1", Name: "first", Type: models.VariableTypeString},
		models.Variable{ID: "v2", Name: "second", Type: models.VariableTypeString},
	)

	name := "renamed"
	updated, err := reg.Update("v1", models.VariablePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.NotNil(t, reg.Lookup("renamed"))
	assert.Nil(t, reg.Lookup("first"))

	taken := "second"
	_, err = reg.Update("v1", models.VariablePatch{Name: &taken})
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	_, err = reg.Update("missing", models.VariablePatch{Name: &name})
	assert.ErrorIs(t, err, models.ErrNotFound)

	typ := models.VariableTypeBoolean
	_, err = reg.Update("v2", models.VariablePatch{Type: &typ, DefaultValue: "yes"})
	assert.ErrorIs(t, err, models.ErrInvalidDefault)

	v2, ok := reg.Get("v2")
	require.True(t, ok)
	assert.Equal(t, models.VariableTypeString, v2.Type, "rejected update must not be stored")
}

func TestRegistry_RemoveAndResolve(t *testing.T) {
	reg := NewRegistry(models.Variable{ID: "v1", Name: "endpoint", Type: models.VariableTypeString})

	resolved := reg.Resolve("${endpoint}")
	require.NotNil(t, resolved)
	assert.Equal(t, "v1", resolved.ID)

	assert.Nil(t, reg.Resolve("endpoint"), "literals never resolve")
	assert.Nil(t, reg.Resolve("${unknown}"))

	assert.True(t, reg.Remove("v1"))
	assert.False(t, reg.Remove("v1"))
	assert.Nil(t, reg.Resolve("${endpoint}"))
}

func TestRegistry_Defaults(t *testing.T) {
	reg := NewRegistry(
		models.Variable{ID: "v1", Name: "limit", Type: models.VariableTypeNumber, DefaultValue: 10},
		models.Variable{ID: "v2", Name: "token", Type: models.VariableTypeString},
	)

	assert.Equal(t, map[string]any{"limit": 10}, reg.Defaults())
}
