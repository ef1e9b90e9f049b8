package reference

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one edge of a graph path: .property, .property['key'] or
// .property[index].
type Segment struct {
	Property string
	Key      string
	Keyed    bool
	Index    int
	Indexed  bool
}

func (s Segment) String() string {
	switch {
	case s.Keyed:
		return "." + s.Property + "['" + escapeKey(s.Key) + "']"
	case s.Indexed:
		return "." + s.Property + "[" + strconv.Itoa(s.Index) + "]"
	default:
		return "." + s.Property
	}
}

// FormatPath renders an element path followed by segments.
func FormatPath(element string, segments []Segment) string {
	var b strings.Builder
	b.WriteString(element)
	for _, s := range segments {
		b.WriteString(s.String())
	}
	return b.String()
}

// ParsePath splits a graph path id into its element path and segments.
func ParsePath(id string) (string, []Segment, error) {
	invalid := func(offset int, format string, args ...any) error {
		return &InvalidIDError{ID: id, Reason: fmt.Sprintf("offset %d: ", offset) + fmt.Sprintf(format, args...)}
	}

	end := strings.IndexByte(id, '.')
	if end < 0 {
		end = len(id)
	}
	element := id[:end]
	if element == "" {
		return "", nil, invalid(0, "missing element path")
	}
	if strings.ContainsAny(element, "[]' ") {
		return "", nil, invalid(0, "malformed element path %q", element)
	}

	var segments []Segment
	i := end
	for i < len(id) {
		if id[i] != '.' {
			return "", nil, invalid(i, "expected '.', found %q", id[i])
		}
		i++
		start := i
		for i < len(id) && isIdentByte(id[i], i == start) {
			i++
		}
		if i == start {
			return "", nil, invalid(start, "expected a property name")
		}
		seg := Segment{Property: id[start:i]}
		if i < len(id) && id[i] == '[' {
			i++
			switch {
			case i < len(id) && id[i] == '\'':
				key, next, ok := unquoteKey(id, i+1)
				if !ok {
					return "", nil, invalid(i, "unterminated key")
				}
				seg.Key, seg.Keyed, i = key, true, next
			default:
				digits := i
				for i < len(id) && id[i] >= '0' && id[i] <= '9' {
					i++
				}
				if i == digits {
					return "", nil, invalid(digits, "expected an index or a quoted key")
				}
				n, err := strconv.Atoi(id[digits:i])
				if err != nil {
					return "", nil, invalid(digits, "%v", err)
				}
				seg.Index, seg.Indexed = n, true
			}
			if i >= len(id) || id[i] != ']' {
				return "", nil, invalid(i, "expected ']'")
			}
			i++
		}
		segments = append(segments, seg)
	}
	return element, segments, nil
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func escapeKey(key string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(key)
}

// unquoteKey reads a quoted key starting after the opening quote and
// returns it with the offset following the closing quote.
func unquoteKey(id string, i int) (string, int, bool) {
	var b strings.Builder
	for i < len(id) {
		switch c := id[i]; c {
		case '\\':
			if i+1 >= len(id) {
				return "", 0, false
			}
			b.WriteByte(id[i+1])
			i += 2
		case '\'':
			return b.String(), i + 1, true
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, false
}
