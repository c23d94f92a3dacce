package errors

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(NotFound, "project not found")
	assert.Equal(t, "[NOT_FOUND] project not found", plain.Error())

	cause := stderrors.New("disk full")
	wrapped := Wrap(QueryFailed, "save decision", cause)
	assert.Contains(t, wrapped.Error(), "QUERY_FAILED")
	assert.Contains(t, wrapped.Error(), "disk full")
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ValidationFailed, CodeOf(NewValidationError("confidence", "out of range")))
	assert.Equal(t, InternalError, CodeOf(stderrors.New("unknown")))
	assert.True(t, IsValidation(NewValidationError("type", "bad")))
	assert.False(t, IsValidation(New(NotFound, "gone")))
}

func TestTruncateQuery(t *testing.T) {
	multiline := "SELECT id,\n\tname\nFROM projects"
	assert.Equal(t, "SELECT id, name FROM projects", TruncateQuery(multiline))

	long := strings.Repeat("SELECT ", 30)
	truncated := TruncateQuery(long)
	require.True(t, strings.HasSuffix(truncated, "..."))
	assert.LessOrEqual(t, len(truncated), 83)
}

func TestNewStorageError_NeverCarriesParameters(t *testing.T) {
	err := NewStorageError("save decision", "INSERT INTO decisions (id) VALUES (?)", stderrors.New("constraint"))
	assert.Contains(t, err.Error(), "INSERT INTO decisions")
	assert.Contains(t, err.Error(), "save decision")
}
