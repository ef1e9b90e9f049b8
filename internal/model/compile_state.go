package model

import "strings"

// CompileState is a bit set recording which pipeline phases have run on an instance.
type CompileState uint8

const (
	// Processed is set once an instance has been bound.
	Processed CompileState = 1 << iota
	// Validated is set once an instance has passed validation.
	Validated
)

// Has reports whether every flag in flags is set.
func (c CompileState) Has(flags CompileState) bool {
	return c&flags == flags
}

func (c CompileState) String() string {
	var parts []string
	if c.Has(Processed) {
		parts = append(parts, "Processed")
	}
	if c.Has(Validated) {
		parts = append(parts, "Validated")
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}
