package ui

import (
	"sort"
	"strings"
)

// MaxDistance is the largest edit distance at which a candidate is still
// suggested.
const MaxDistance = 3

// Suggest returns up to limit candidates close to target, closest first.
// A candidate is compared case-insensitively both as a whole and by its
// last "::" segment, so "my::Persn" and "Persn" both find "my::Person".
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}

	target = strings.ToLower(target)
	var matches []match
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		dist := Distance(target, lower)
		if i := strings.LastIndex(lower, "::"); i >= 0 {
			dist = minInt(dist, Distance(target, lower[i+2:]))
		}
		if dist <= MaxDistance {
			matches = append(matches, match{candidate, dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	result := make([]string, 0, limit)
	for i := 0; i < len(matches) && i < limit; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = minInt(minInt(prev[j]+1, curr[j-1]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
