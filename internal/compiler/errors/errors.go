// Package errors provides structured compilation errors for the graph
// compiler: error codes, categories, source locations, and formatting for
// both terminal output and JSON.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/metacore/internal/model"
)

// ErrorCode is a unique compilation error code.
type ErrorCode string

// ErrorCategory groups error codes by pipeline phase.
type ErrorCategory string

const (
	// CategorySyntax covers parse errors (SYN001-099).
	CategorySyntax ErrorCategory = "syntax"
	// CategoryResolution covers unresolved references (RES100-199).
	CategoryResolution ErrorCategory = "resolution"
	// CategoryType covers type errors (TYP200-299).
	CategoryType ErrorCategory = "type"
	// CategoryValidation covers structural validation errors (VAL300-399).
	CategoryValidation ErrorCategory = "validation"
)

// ErrorSeverity indicates the severity level of an error.
type ErrorSeverity string

const (
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
)

// CompilationError is raised when an element cannot be parsed, bound or validated.
type CompilationError struct {
	Code       ErrorCode                `json:"code"`
	Category   ErrorCategory            `json:"category"`
	Severity   ErrorSeverity            `json:"severity"`
	Message    string                   `json:"message"`
	Source     *model.SourceInformation `json:"source,omitempty"`
	Element    string                   `json:"element,omitempty"`
	Suggestion string                   `json:"suggestion,omitempty"`
}

func (e *CompilationError) Error() string {
	if e.Source == nil {
		return fmt.Sprintf("Compilation error, %q", e.Message)
	}
	return fmt.Sprintf("Compilation error at (%s), %q", e.Source, e.Message)
}

// WithElement records the path of the element being processed.
func (e *CompilationError) WithElement(path string) *CompilationError {
	e.Element = path
	return e
}

// WithSuggestion sets a hint for fixing the error.
func (e *CompilationError) WithSuggestion(suggestion string) *CompilationError {
	e.Suggestion = suggestion
	return e
}

// ToJSON returns the error as indented JSON.
func (e *CompilationError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// New creates a compilation error in the error severity.
func New(code ErrorCode, category ErrorCategory, source *model.SourceInformation, format string, args ...any) *CompilationError {
	return &CompilationError{
		Code:     code,
		Category: category,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Source:   source,
	}
}

// AsCompilationError unwraps err to a *CompilationError.
func AsCompilationError(err error) (*CompilationError, bool) {
	var ce *CompilationError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ErrorList collects compilation errors from several elements or sources.
type ErrorList []*CompilationError

func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	if len(el) == 1 {
		return el[0].Error()
	}
	msgs := make([]string, len(el))
	for i, e := range el {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d compilation errors:\n%s", len(el), strings.Join(msgs, "\n"))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (el ErrorList) Unwrap() []error {
	out := make([]error, len(el))
	for i, e := range el {
		out[i] = e
	}
	return out
}

// HasErrors reports whether the list contains errors (not only warnings).
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sort orders errors by source, line and column.
func (el ErrorList) Sort() {
	sort.SliceStable(el, func(i, j int) bool {
		a, b := el[i].Source, el[j].Source
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		case a.SourceID != b.SourceID:
			return a.SourceID < b.SourceID
		case a.Line != b.Line:
			return a.Line < b.Line
		default:
			return a.Column < b.Column
		}
	})
}

// ToJSON returns all errors as a JSON array.
func (el ErrorList) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Add appends err, flattening nested lists. Errors that are not compilation
// errors are wrapped without a source location.
func (el *ErrorList) Add(err error) {
	if err == nil {
		return
	}
	var list ErrorList
	if stderrors.As(err, &list) {
		*el = append(*el, list...)
		return
	}
	if ce, ok := AsCompilationError(err); ok {
		*el = append(*el, ce)
		return
	}
	*el = append(*el, New(ErrInternal, CategoryValidation, nil, "%v", err))
}

// Err returns the list as an error, or nil when empty.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}
