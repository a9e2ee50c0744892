package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestSentinelConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		msg   string
	}{
		{"not found", NewNotFoundError("no data item with id %s", "abc"), IsNotFoundError, "no data item with id abc"},
		{"invalid", NewInvalidRequestError("range %d out of bounds", 3), IsInvalidRequestError, "range 3 out of bounds"},
		{"conflict", NewConflictError("duplicate id %s", "x"), IsConflictError, "duplicate id x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.msg, tt.err.Error())

			wrapped := Wrap(tt.err, "context")
			assert.True(t, tt.check(wrapped), "sentinel must survive wrapping")
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	err := NewConflictError("dup")
	assert.False(t, IsNotFoundError(err))
	assert.False(t, IsInvalidRequestError(err))
	assert.False(t, IsNotFoundError(nil))
}

func TestHints(t *testing.T) {
	err := WithHint(NewInvalidRequestError("no value for key %q", "y"), "did you add the steps in the correct order?")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "did you add the steps in the correct order?", hints[0])
	assert.True(t, IsInvalidRequestError(err))
}
