package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// FormatError returns a human-readable rendering of a single error. When
// sourceLines holds the text of the offending source, the failing line is shown.
func FormatError(e *CompilationError, sourceLines []string) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	if e.Severity == SeverityWarning {
		header = color.New(color.FgYellow, color.Bold)
	}
	file := "<source>"
	if e.Source != nil {
		file = e.Source.SourceID
	}
	fmt.Fprintf(&b, "%s in %s\n", header.Sprintf("%s [%s]", categoryDisplayName(e.Category), e.Code), file)

	if e.Source != nil {
		fmt.Fprintf(&b, "Line %d, Column %d:\n", e.Source.Line, e.Source.Column)
		if n := e.Source.Line; n >= 1 && n <= len(sourceLines) {
			fmt.Fprintf(&b, "%s  %s\n", formatLineNumber(n), sourceLines[n-1])
			fmt.Fprintf(&b, "      %s%s\n", strings.Repeat(" ", max(e.Source.Column-1, 0)), color.RedString("^"))
		}
	}
	fmt.Fprintf(&b, "  %s\n", e.Message)

	if e.Element != "" {
		fmt.Fprintf(&b, "  while compiling %s\n", color.CyanString(e.Element))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n%s %s\n", color.GreenString("hint:"), e.Suggestion)
	}
	return b.String()
}

// FormatErrorList renders every error, separated by rules, preceded by a summary.
func FormatErrorList(errors ErrorList, sources map[string][]string) string {
	if len(errors) == 0 {
		return "no errors"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Compilation failed with %d error(s)\n\n", len(errors))
	for i, err := range errors {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
		}
		var lines []string
		if err.Source != nil {
			lines = sources[err.Source.SourceID]
		}
		b.WriteString(FormatError(err, lines))
	}
	return b.String()
}

// FormatCompact returns a one-line rendering: file:line:col: severity: message [code].
func FormatCompact(e *CompilationError) string {
	if e.Source == nil {
		return fmt.Sprintf("<source>: %s: %s [%s]", e.Severity, e.Message, e.Code)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]",
		e.Source.SourceID, e.Source.Line, e.Source.Column, e.Severity, e.Message, e.Code)
}

func categoryDisplayName(category ErrorCategory) string {
	switch category {
	case CategorySyntax:
		return "Syntax Error"
	case CategoryResolution:
		return "Resolution Error"
	case CategoryType:
		return "Type Error"
	case CategoryValidation:
		return "Validation Error"
	default:
		return "Compilation Error"
	}
}

func formatLineNumber(lineNum int) string {
	return fmt.Sprintf("%3d |", lineNum)
}
