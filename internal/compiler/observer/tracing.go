package observer

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/conduit-lang/metacore/internal/model"
)

// Tracing writes an indented trace of processing to a writer, one line per
// start and finish, each stamped with the time it happened.
type Tracing struct {
	w      io.Writer
	clock  Clock
	name   func(model.CoreInstance) string
	colors bool

	mu    sync.Mutex
	depth int
	start []time.Time
	err   error
}

// TracingOption configures a Tracing observer.
type TracingOption func(*Tracing)

// WithClock sets the clock used for timestamps.
func WithClock(clock Clock) TracingOption {
	return func(t *Tracing) { t.clock = clock }
}

// WithNamer sets how instances are named in the trace.
func WithNamer(namer func(model.CoreInstance) string) TracingOption {
	return func(t *Tracing) { t.name = namer }
}

// WithColors highlights start, finish and failure markers.
func WithColors(enabled bool) TracingOption {
	return func(t *Tracing) { t.colors = enabled }
}

// NewTracing creates a tracing observer writing to w.
func NewTracing(w io.Writer, opts ...TracingOption) *Tracing {
	t := &Tracing{w: w, clock: time.Now, name: describe}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func describe(instance model.CoreInstance) string {
	name := instance.Name()
	if name == "" {
		name = fmt.Sprintf("Anonymous_%d", instance.ID())
	}
	if c := instance.Classifier(); c != nil {
		return fmt.Sprintf("%s [%s]", name, c.Name())
	}
	return name
}

func (t *Tracing) StartProcessing(instance model.CoreInstance) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.line(t.marker(">", color.FgCyan), "%s %s", describeTime(now), t.name(instance))
	t.depth++
	t.start = append(t.start, now)
	return t.err
}

func (t *Tracing) FinishProcessing(instance model.CoreInstance) error {
	return t.finish(instance, nil)
}

func (t *Tracing) FinishProcessingWithError(instance model.CoreInstance, cause error) error {
	return t.finish(instance, cause)
}

func (t *Tracing) finish(instance model.CoreInstance, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	var elapsed time.Duration
	if n := len(t.start); n > 0 {
		elapsed = now.Sub(t.start[n-1])
		t.start = t.start[:n-1]
	}
	if t.depth > 0 {
		t.depth--
	}
	if cause != nil {
		t.line(t.marker("!", color.FgRed), "%s %s (%s) error: %v", describeTime(now), t.name(instance), elapsed, cause)
	} else {
		t.line(t.marker("<", color.FgGreen), "%s %s (%s)", describeTime(now), t.name(instance), elapsed)
	}
	return t.err
}

func (t *Tracing) marker(symbol string, attr color.Attribute) string {
	if !t.colors {
		return symbol
	}
	return color.New(attr).Sprint(symbol)
}

func (t *Tracing) line(marker, format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, "%s%s %s\n", strings.Repeat("  ", t.depth), marker, fmt.Sprintf(format, args...))
}

func describeTime(ts time.Time) string {
	return ts.Format("15:04:05.000")
}
