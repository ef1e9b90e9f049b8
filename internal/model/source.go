package model

import "fmt"

// SourceInformation locates an instance in its source text. Lines and
// columns are 1-based; Line/Column mark the position of the element name.
type SourceInformation struct {
	SourceID    string `msgpack:"source" json:"source"`
	StartLine   int    `msgpack:"startLine" json:"startLine"`
	StartColumn int    `msgpack:"startColumn" json:"startColumn"`
	Line        int    `msgpack:"line" json:"line"`
	Column      int    `msgpack:"column" json:"column"`
	EndLine     int    `msgpack:"endLine" json:"endLine"`
	EndColumn   int    `msgpack:"endColumn" json:"endColumn"`
}

// NewSourceInformation creates source information whose name position is the start position.
func NewSourceInformation(sourceID string, startLine, startColumn, endLine, endColumn int) *SourceInformation {
	return &SourceInformation{
		SourceID:    sourceID,
		StartLine:   startLine,
		StartColumn: startColumn,
		Line:        startLine,
		Column:      startColumn,
		EndLine:     endLine,
		EndColumn:   endColumn,
	}
}

// Subsumes reports whether other lies entirely within s.
func (s *SourceInformation) Subsumes(other *SourceInformation) bool {
	if s == nil || other == nil || s.SourceID != other.SourceID {
		return false
	}
	return !before(other.StartLine, other.StartColumn, s.StartLine, s.StartColumn) &&
		!before(s.EndLine, s.EndColumn, other.EndLine, other.EndColumn)
}

// Equal reports whether both describe the same span.
func (s *SourceInformation) Equal(other *SourceInformation) bool {
	if s == nil || other == nil {
		return s == other
	}
	return *s == *other
}

func (s *SourceInformation) String() string {
	if s == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("resource:%s line:%d column:%d", s.SourceID, s.Line, s.Column)
}

func before(line1, col1, line2, col2 int) bool {
	return line1 < line2 || (line1 == line2 && col1 < col2)
}
