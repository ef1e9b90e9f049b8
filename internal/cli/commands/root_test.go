package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/extension/diagram"
)

const personSource = `
class "my::Person" {
  property "name" {
    type = "String"
  }
  property "firm" {
    type = "my::Firm"
  }
}

class "my::Firm" {}
`

const diagramSource = `
diagram "my::Overview" {
  type_view "person" {
    type = "my::Person"
  }
}
`

type project struct {
	dir    string
	models string
	config string
}

func newProject(t *testing.T, sources map[string]string) *project {
	t.Helper()
	dir := t.TempDir()
	p := &project{dir: dir, models: filepath.Join(dir, "models"), config: filepath.Join(dir, "metacore.yml")}
	require.NoError(t, os.Mkdir(p.models, 0o755))
	for name, content := range sources {
		require.NoError(t, os.WriteFile(filepath.Join(p.models, name), []byte(content), 0o644))
	}
	config := fmt.Sprintf(`
sources:
  paths: [%q]
store:
  driver: sqlite
  path: %q
log:
  level: error
`, p.models, filepath.Join(dir, "build", "graph.db"))
	require.NoError(t, os.WriteFile(p.config, []byte(config), 0o644))
	return p
}

// syncBuffer lets a command write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (p *project) run(ctx context.Context, out *syncBuffer, args ...string) error {
	cmd := NewRootCommand(diagram.Extension{})
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", p.config}, args...))
	return cmd.ExecuteContext(ctx)
}

func (p *project) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	err := p.run(context.Background(), out, args...)
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "metacore", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "compile", "ids", "export", "inspect", "watch"} {
		assert.Contains(t, names, expected)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.24"

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "metacore version: 1.0.0-test")
	assert.Contains(t, out.String(), "Git commit: abc123")
	assert.Contains(t, out.String(), "Go version: go1.24")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	p := newProject(t, nil)
	require.NoError(t, os.WriteFile(p.config, []byte("store:\n  driver: postgres\n"), 0o644))
	_, err := p.execute(t, "compile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestCompileCommand(t *testing.T) {
	p := newProject(t, map[string]string{"person.hcl": personSource, "overview.hcl": diagramSource})
	out, err := p.execute(t, "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 2 source(s)")
}

func TestCompileCommand_Errors(t *testing.T) {
	p := newProject(t, map[string]string{"broken.hcl": `
class "my::Broken" {
  property "p" {
    type = "my::Missing"
  }
}
`})
	out, err := p.execute(t, "compile")
	require.ErrorIs(t, err, ErrCompilationFailed)
	assert.Contains(t, out, "Compilation failed with 1 error(s)")
	assert.Contains(t, out, "my::Missing has not been defined!")
	assert.Contains(t, out, filepath.ToSlash(filepath.Join(p.models, "broken.hcl")))
}

func TestCompileCommand_MissingDirectory(t *testing.T) {
	p := newProject(t, nil)
	_, err := p.execute(t, "compile", filepath.Join(p.dir, "nowhere"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCompileCommand_TimingAndSnapshot(t *testing.T) {
	p := newProject(t, map[string]string{"person.hcl": personSource})
	snapshot := filepath.Join(p.dir, "graph.msgpack")

	out, err := p.execute(t, "compile", "--observer", "timing", "--top", "2", "--snapshot", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "Processing time")
	assert.Contains(t, out, "Snapshot written to "+snapshot)

	first, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

}

func TestCompileCommand_TraceOutput(t *testing.T) {
	p := newProject(t, map[string]string{"person.hcl": personSource})
	trace := filepath.Join(p.dir, "trace.txt")
	require.NoError(t, os.WriteFile(p.config, []byte(fmt.Sprintf(`
sources:
  paths: [%q]
compile:
  observers: [trace, log, metrics, span]
  trace_output: %q
log:
  level: error
`, p.models, trace)), 0o644))

	_, err := p.execute(t, "compile")
	require.NoError(t, err)
	content, err := os.ReadFile(trace)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Person")
}

func TestIDsCommand(t *testing.T) {
	p := newProject(t, map[string]string{"person.hcl": personSource})

	out, err := p.execute(t, "ids", "my::Person")
	require.NoError(t, err)
	assert.Contains(t, out, "my::Person.properties['name']")
	assert.Contains(t, out, "my::Person.properties['firm']")

	out, err = p.execute(t, "ids", "--resolve", "my::Person.properties['name']")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "name instance Property"), out)

	_, err = p.execute(t, "ids", "my::Persn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean: my::Person?")
}

func TestExportAndInspectCommands(t *testing.T) {
	p := newProject(t, map[string]string{"person.hcl": personSource, "overview.hcl": diagramSource})

	out, err := p.execute(t, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "to the sqlite store")

	out, err = p.execute(t, "inspect")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "my::Person")
	assert.Contains(t, lines, "my::Firm")
	assert.Contains(t, lines, "my::Overview")

	out, err = p.execute(t, "inspect", "my::Person")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Person instance Class"), out)
	assert.Contains(t, out, "properties(Property):")

	out, err = p.execute(t, "inspect", "--warm", "--concurrency", "2", "my::Person.properties['firm']")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded")
	assert.Contains(t, out, "firm instance Property")

	_, err = p.execute(t, "inspect", "my::Frm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean: my::Firm?")
}

func TestWatchCommand(t *testing.T) {
	p := newProject(t, map[string]string{"person.hcl": personSource})
	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- p.run(ctx, out, "watch", "--addr", "127.0.0.1:0") }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Press Ctrl+C to stop") },
		5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "Events:   ws://127.0.0.1:")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, out.String(), "Shutting down")
}
