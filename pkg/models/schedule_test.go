package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.ErrorIs(t, ValidateSchedule("every day"), ErrInvalidSchedule)
	assert.ErrorIs(t, ValidateSchedule("* * * * * *"), ErrInvalidSchedule)
}

func TestNextRun(t *testing.T) {
	reference := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)

	next := NextRun("*/5 * * * *", reference)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC), *next)

	assert.Nil(t, NextRun("", reference))
	assert.Nil(t, NextRun("bogus", reference))
}
