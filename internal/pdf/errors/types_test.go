package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      string
	}{
		{ErrorTypeNotFound, "NOT_FOUND"},
		{ErrorTypePlaceholderNotMatched, "PLACEHOLDER_NOT_MATCHED"},
		{ErrorTypeInclusionVectorMismatch, "INCLUSION_VECTOR_MISMATCH"},
		{ErrorTypeEmptySelection, "EMPTY_SELECTION"},
		{ErrorTypeInvalidInput, "INVALID_INPUT"},
		{ErrorTypeInvalidDocument, "INVALID_DOCUMENT"},
		{ErrorTypeUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.errorType.String(); got != tt.want {
			t.Errorf("String() = %v, want %v", got, tt.want)
		}
	}
}

func TestFillError_Is(t *testing.T) {
	err := NotFound("merge", "/tmp/missing.pdf", os.ErrNotExist)
	wrapped := fmt.Errorf("assembling proposal: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrEmptySelection))
	assert.True(t, errors.Is(wrapped, os.ErrNotExist))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestFillError_Error(t *testing.T) {
	err := New(ErrorTypeInclusionVectorMismatch, "finalize", "vector has 3 entries, document has 5 pages").
		WithPath("merged.pdf")
	assert.Equal(t, "[INCLUSION_VECTOR_MISMATCH] finalize merged.pdf: vector has 3 entries, document has 5 pages", err.Error())

	miss := New(ErrorTypePlaceholderNotMatched, "substitute", "no variation matched").WithPage(2).WithField("{ date }")
	assert.Equal(t, `[PLACEHOLDER_NOT_MATCHED] substitute page 2 field "{ date }": no variation matched`, miss.Error())
}

func TestSeverity(t *testing.T) {
	assert.False(t, New(ErrorTypePlaceholderNotMatched, "substitute", "").IsFatal())
	assert.True(t, New(ErrorTypeNotFound, "merge", "").IsFatal())
	assert.True(t, Wrap(ErrorTypeInvalidDocument, "open", errors.New("bad xref")).IsFatal())
}
