package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"Person", "Persn", 1},
		{"größe", "grösse", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, Distance(tt.a, tt.b))
		})
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"my::Person", "my::Firm", "my::Address", "other::Person"}

	tests := []struct {
		name     string
		target   string
		limit    int
		expected []string
	}{
		{"full path", "my::Persn", 3, []string{"my::Person"}},
		{"last segment", "persn", 3, []string{"my::Person", "other::Person"}},
		{"limited", "Person", 1, []string{"my::Person"}},
		{"closest first", "my::Firn", 3, []string{"my::Firm"}},
		{"nothing close", "my::Zebra", 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Suggest(tt.target, candidates, tt.limit))
		})
	}
}

func TestTable_Render(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, "  ", "ID", "CLASSIFIER")
	table.AddRow("my::Person.properties['name']", "Property")
	table.AddRow("my::Firm", "Class", "dropped")
	require.NoError(t, table.Render())

	expected := "" +
		"  ID                             CLASSIFIER\n" +
		"  ─────────────────────────────  ──────────\n" +
		"  my::Person.properties['name']  Property\n" +
		"  my::Firm                       Class\n"
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, 2, table.Len())
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTable(&buf, "", "A", "B").Render())
	assert.Empty(t, buf.String())
}
