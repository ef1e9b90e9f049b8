// Package runtimetest checks that runtime operations leave the compiled
// graph exactly as they found it.
package runtimetest

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/runtime"
	"github.com/conduit-lang/metacore/internal/serialization"
)

// DefaultIterations is how often the stability checks repeat a script.
const DefaultIterations = 3

type step func(t testing.TB, rt *runtime.Runtime)

// Script is a sequence of runtime operations with expected outcomes.
type Script struct {
	steps []step
}

func NewScript() *Script { return &Script{} }

func (s *Script) CreateSource(id, content string) *Script {
	s.steps = append(s.steps, func(t testing.TB, rt *runtime.Runtime) {
		t.Helper()
		require.NoError(t, rt.CreateSource(id, []byte(content)))
	})
	return s
}

func (s *Script) CreateSources(sources map[string]string) *Script {
	for _, id := range sortedIDs(sources) {
		s.CreateSource(id, sources[id])
	}
	return s
}

func (s *Script) ModifySource(id, content string) *Script {
	s.steps = append(s.steps, func(t testing.TB, rt *runtime.Runtime) {
		t.Helper()
		require.NoError(t, rt.ModifySource(id, []byte(content)))
	})
	return s
}

func (s *Script) DeleteSource(id string) *Script {
	s.steps = append(s.steps, func(t testing.TB, rt *runtime.Runtime) {
		t.Helper()
		require.NoError(t, rt.DeleteSource(id))
	})
	return s
}

func (s *Script) DeleteSources(ids ...string) *Script {
	for _, id := range ids {
		s.DeleteSource(id)
	}
	return s
}

// Compile expects the compile to succeed.
func (s *Script) Compile() *Script {
	s.steps = append(s.steps, func(t testing.TB, rt *runtime.Runtime) {
		t.Helper()
		_, err := rt.Compile(context.Background())
		require.NoError(t, err)
	})
	return s
}

// CompileWithExpectedFailure expects the compile to fail with an error
// whose message contains message. A non-empty sourceID also requires the
// error to be located in that source, and a positive line and column to
// be at that position.
func (s *Script) CompileWithExpectedFailure(message, sourceID string, line, column int) *Script {
	s.steps = append(s.steps, func(t testing.TB, rt *runtime.Runtime) {
		t.Helper()
		_, err := rt.Compile(context.Background())
		require.Error(t, err, "expected compilation failure: %s", message)
		var list cerrors.ErrorList
		list.Add(err)
		for _, ce := range list {
			if matches(ce, message, sourceID, line, column) {
				return
			}
		}
		require.Failf(t, "unexpected compilation failure", "want %q in %s:%d:%d, got: %v", message, sourceID, line, column, err)
	})
	return s
}

func matches(ce *cerrors.CompilationError, message, sourceID string, line, column int) bool {
	if !strings.Contains(ce.Message, message) {
		return false
	}
	if sourceID == "" {
		return true
	}
	if ce.Source == nil || ce.Source.SourceID != sourceID {
		return false
	}
	return line <= 0 || (ce.Source.Line == line && ce.Source.Column == column)
}

// Run executes the script once.
func (s *Script) Run(t testing.TB, rt *runtime.Runtime) {
	t.Helper()
	for _, st := range s.steps {
		st(t, rt)
	}
}

// State is what the stability checks compare.
type State struct {
	Sources  []string
	Size     int
	Elements []*serialization.ElementData
}

// Capture takes the state of a runtime.
func Capture(t testing.TB, rt *runtime.Runtime) State {
	t.Helper()
	b, err := rt.Snapshot(context.Background())
	require.NoError(t, err)
	elements, err := serialization.DecodeSnapshot(b)
	require.NoError(t, err)
	return State{Sources: rt.Sources(), Size: len(b), Elements: elements}
}

// RequireSameState fails the test when the runtime's state differs from want.
func RequireSameState(t testing.TB, want State, rt *runtime.Runtime, msgAndArgs ...any) {
	t.Helper()
	got := Capture(t, rt)
	require.Equal(t, want.Sources, got.Sources, msgAndArgs...)
	if diff := cmp.Diff(want.Elements, got.Elements, cmpopts.EquateEmpty()); diff != "" {
		require.Failf(t, "graph changed", "(-want +got):\n%s", diff)
	}
	require.Equal(t, want.Size, got.Size, msgAndArgs...)
}

// VerifyOperationIsStable runs initial once, then runs script iterations
// times, requiring the state after each run to equal the state after
// initial.
func VerifyOperationIsStable(t testing.TB, rt *runtime.Runtime, initial, script *Script, iterations int) {
	t.Helper()
	if initial != nil {
		initial.Run(t, rt)
	}
	before := Capture(t, rt)
	for i := 0; i < iterations; i++ {
		script.Run(t, rt)
		RequireSameState(t, before, rt, "iteration %d", i+1)
	}
}

// DeleteCompileAndReloadIsStable deletes sources, expects the compile to
// fail with message (or succeed when message is empty), recreates them
// and requires the graph to return to its state.
func DeleteCompileAndReloadIsStable(t testing.TB, rt *runtime.Runtime, ids []string, message, sourceID string, line, column int) {
	t.Helper()
	contents := make(map[string]string, len(ids))
	for _, id := range ids {
		src, ok := rt.Source(id)
		require.True(t, ok, "unknown source %s", id)
		contents[id] = string(src.Content)
	}
	script := NewScript().DeleteSources(ids...)
	if message == "" {
		script.Compile()
	} else {
		script.CompileWithExpectedFailure(message, sourceID, line, column)
	}
	script.CreateSources(contents).Compile()
	VerifyOperationIsStable(t, rt, nil, script, DefaultIterations)
}

// ReplaceWithCompileErrorIsStable replaces a source with content that
// fails to compile with message, restores it and requires the graph to
// return to its state.
func ReplaceWithCompileErrorIsStable(t testing.TB, rt *runtime.Runtime, id, replacement, message, sourceID string, line, column int) {
	t.Helper()
	src, ok := rt.Source(id)
	require.True(t, ok, "unknown source %s", id)
	script := NewScript().
		ModifySource(id, replacement).
		CompileWithExpectedFailure(message, sourceID, line, column).
		ModifySource(id, string(src.Content)).
		Compile()
	VerifyOperationIsStable(t, rt, nil, script, DefaultIterations)
}

func sortedIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
