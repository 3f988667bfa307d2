package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutationError(t *testing.T) {
	err := NewMutationError("Declare", "1abc", ErrInvalidIdentifier, "must match identifier syntax")

	assert.True(t, errors.Is(err, ErrInvalidIdentifier))
	assert.True(t, IsDuplicateName(err), "invalid identifiers are rejected as duplicate-name errors")
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Declare 1abc")

	wrapped := fmt.Errorf("outer: %w", NewMutationError("RemoveEdge", "e1", ErrNotFound, ""))
	assert.True(t, IsNotFound(wrapped))
}

func TestTerminalStateError(t *testing.T) {
	err := &TerminalStateError{Kind: "step", ID: "s1", Status: StatusCompleted, Next: StatusRunning, Err: ErrTerminalState}

	assert.True(t, IsTerminalState(err))
	assert.Contains(t, err.Error(), "step s1 is completed")
}
