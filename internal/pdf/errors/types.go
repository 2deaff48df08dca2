package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the categories of document fill errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNotFound
	ErrorTypePlaceholderNotMatched
	ErrorTypeInclusionVectorMismatch
	ErrorTypeEmptySelection
	ErrorTypeInvalidInput
	ErrorTypeInvalidDocument
)

// ErrorSeverity indicates whether an error aborts the operation
type ErrorSeverity int

const (
	// SeverityReported errors are collected and returned in results, never raised
	SeverityReported ErrorSeverity = iota
	// SeverityFatal errors abort the operation and leave no output behind
	SeverityFatal
)

// Sentinel values for errors.Is comparisons against a FillError's type
var (
	ErrNotFound                = &FillError{Type: ErrorTypeNotFound}
	ErrPlaceholderNotMatched   = &FillError{Type: ErrorTypePlaceholderNotMatched}
	ErrInclusionVectorMismatch = &FillError{Type: ErrorTypeInclusionVectorMismatch}
	ErrEmptySelection          = &FillError{Type: ErrorTypeEmptySelection}
	ErrInvalidInput            = &FillError{Type: ErrorTypeInvalidInput}
	ErrInvalidDocument         = &FillError{Type: ErrorTypeInvalidDocument}
)

// FillError describes a failed fill, merge or finalize step
type FillError struct {
	Type    ErrorType `json:"type"`
	Op      string    `json:"op,omitempty"`
	Path    string    `json:"path,omitempty"`
	Field   string    `json:"field,omitempty"`
	Page    int       `json:"page,omitempty"` // 1-based, 0 when not page specific
	Message string    `json:"message,omitempty"`
	Err     error     `json:"-"`
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypePlaceholderNotMatched:
		return "PLACEHOLDER_NOT_MATCHED"
	case ErrorTypeInclusionVectorMismatch:
		return "INCLUSION_VECTOR_MISMATCH"
	case ErrorTypeEmptySelection:
		return "EMPTY_SELECTION"
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	case ErrorTypeInvalidDocument:
		return "INVALID_DOCUMENT"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	if et == ErrorTypePlaceholderNotMatched {
		return SeverityReported
	}
	return SeverityFatal
}

// Error implements the error interface
func (e *FillError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Type.String())
	b.WriteString("]")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Page > 0 {
		fmt.Fprintf(&b, " page %d", e.Page)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *FillError) Unwrap() error {
	return e.Err
}

// Is matches any FillError of the same type, so the sentinels work with errors.Is
func (e *FillError) Is(target error) bool {
	t, ok := target.(*FillError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// IsFatal reports whether the error aborts its operation
func (e *FillError) IsFatal() bool {
	return e.Type.GetSeverity() == SeverityFatal
}

// New creates a FillError for op
func New(errorType ErrorType, op, message string) *FillError {
	return &FillError{Type: errorType, Op: op, Message: message}
}

// Wrap wraps err as a FillError for op
func Wrap(errorType ErrorType, op string, err error) *FillError {
	return &FillError{Type: errorType, Op: op, Err: err}
}

// NotFound reports a missing input file
func NotFound(op, path string, err error) *FillError {
	return &FillError{Type: ErrorTypeNotFound, Op: op, Path: path, Err: err}
}

// WithPath adds file path information to an existing FillError
func (e *FillError) WithPath(path string) *FillError {
	e.Path = path
	return e
}

// WithPage adds page number information to an existing FillError
func (e *FillError) WithPage(page int) *FillError {
	e.Page = page
	return e
}

// WithField adds the placeholder literal to an existing FillError
func (e *FillError) WithField(field string) *FillError {
	e.Field = field
	return e
}

// TypeOf returns the ErrorType of the first FillError in err's chain
func TypeOf(err error) ErrorType {
	var fe *FillError
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ErrorTypeUnknown
}
