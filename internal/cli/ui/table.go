package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under a bold header, padding each column to its
// widest cell.
type Table struct {
	writer  io.Writer
	indent  string
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given headers. Every rendered line is
// prefixed by indent.
func NewTable(w io.Writer, indent string, headers ...string) *Table {
	return &Table{writer: w, indent: indent, headers: headers}
}

// AddRow appends a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows added.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table. A table without rows renders nothing.
func (t *Table) Render() error {
	if len(t.rows) == 0 {
		return nil
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)

	var b strings.Builder
	b.WriteString(t.indent)
	for i, header := range t.headers {
		b.WriteString(bold.Sprint(pad(header, widths[i], i == len(t.headers)-1)))
	}
	b.WriteString("\n" + t.indent)
	for i, width := range widths {
		sep := strings.Repeat("─", width)
		if i < len(widths)-1 {
			sep += "  "
		}
		b.WriteString(gray.Sprint(sep))
	}
	b.WriteString("\n")
	for _, row := range t.rows {
		b.WriteString(t.indent)
		for i, cell := range row {
			b.WriteString(pad(cell, widths[i], i == len(row)-1))
		}
		b.WriteString("\n")
	}

	_, err := fmt.Fprint(t.writer, b.String())
	return err
}

// pad right-pads s to width and adds the column gap. The last column is
// never padded.
func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s + "  "
}
