package observer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/conduit-lang/metacore/internal/model"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type recorder struct {
	events []string
	fail   error
}

func (r *recorder) StartProcessing(i model.CoreInstance) error {
	r.events = append(r.events, "start "+i.Name())
	return r.fail
}

func (r *recorder) FinishProcessing(i model.CoreInstance) error {
	r.events = append(r.events, "finish "+i.Name())
	return r.fail
}

func (r *recorder) FinishProcessingWithError(i model.CoreInstance, cause error) error {
	r.events = append(r.events, "error "+i.Name()+": "+cause.Error())
	return r.fail
}

func instances(names ...string) []model.CoreInstance {
	repo := model.NewRepository()
	out := make([]model.CoreInstance, len(names))
	for i, n := range names {
		out[i] = repo.NewInstance(n, nil, nil)
	}
	return out
}

func TestCombine_NotifiesEveryMemberAndCollectsErrors(t *testing.T) {
	first := &recorder{fail: errors.New("first")}
	second := &recorder{fail: errors.New("second")}
	third := &recorder{}
	combined := Combine(first, nil, second, third)
	a := instances("A")[0]

	err := combined.StartProcessing(a)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.EqualError(t, Primary(err), "first")

	for _, r := range []*recorder{first, second, third} {
		assert.Equal(t, []string{"start A"}, r.events)
	}

	assert.NoError(t, Combine(third).FinishProcessing(a))
	assert.IsType(t, Nop{}, Combine())
	assert.NoError(t, Primary(nil))
}

func TestFilter(t *testing.T) {
	r := &recorder{}
	insts := instances("keep", "drop")
	f := Filter(r, func(i model.CoreInstance) bool { return i.Name() == "keep" })

	for _, i := range insts {
		require.NoError(t, f.StartProcessing(i))
		require.NoError(t, f.FinishProcessingWithError(i, errors.New("x")))
	}
	assert.Equal(t, []string{"start keep", "error keep: x"}, r.events)
	assert.False(t, PackageableElementsOnly(insts[0]))
}

// A spans [0, 10ms); B is nested within it over [2ms, 6ms).
func runNested(t *testing.T, o Observer, clock *fakeClock, a, b model.CoreInstance) {
	t.Helper()
	require.NoError(t, o.StartProcessing(a))
	clock.advance(2 * time.Millisecond)
	require.NoError(t, o.StartProcessing(b))
	clock.advance(4 * time.Millisecond)
	require.NoError(t, o.FinishProcessing(b))
	clock.advance(4 * time.Millisecond)
	require.NoError(t, o.FinishProcessing(a))
}

func TestNetTiming_SubtractsNestedTime(t *testing.T) {
	clock := newFakeClock()
	insts := instances("A", "B")
	net := NewNetTiming(clock.Now)

	runNested(t, net, clock, insts[0], insts[1])

	assert.Equal(t, 6*time.Millisecond, net.DurationOf(insts[0]))
	assert.Equal(t, 4*time.Millisecond, net.DurationOf(insts[1]))
}

func TestSimpleTiming_RecordsWallTime(t *testing.T) {
	clock := newFakeClock()
	insts := instances("A", "B")
	simple := NewSimpleTiming(clock.Now)

	runNested(t, simple, clock, insts[0], insts[1])

	assert.Equal(t, 10*time.Millisecond, simple.DurationOf(insts[0]))
	assert.Equal(t, 4*time.Millisecond, simple.DurationOf(insts[1]))
}

func TestTiming_AccumulatesAndIgnoresZero(t *testing.T) {
	clock := newFakeClock()
	insts := instances("A", "B", "C")
	simple := NewSimpleTiming(clock.Now)

	for i := 0; i < 2; i++ {
		require.NoError(t, simple.StartProcessing(insts[0]))
		clock.advance(time.Millisecond)
		require.NoError(t, simple.FinishProcessing(insts[0]))
	}
	require.NoError(t, simple.StartProcessing(insts[1]))
	require.NoError(t, simple.FinishProcessingWithError(insts[1], errors.New("boom")))

	assert.Equal(t, 2*time.Millisecond, simple.DurationOf(insts[0]))
	assert.Equal(t, time.Duration(-1), simple.DurationOf(insts[1]), "zero durations are not recorded")
	assert.Equal(t, time.Duration(-1), simple.DurationOf(insts[2]))
	assert.Error(t, simple.FinishProcessing(insts[2]))
}

func TestNetTiming_MismatchedFinish(t *testing.T) {
	insts := instances("A", "B")
	net := NewNetTiming(nil)

	assert.Error(t, net.FinishProcessing(insts[0]))
	require.NoError(t, net.StartProcessing(insts[0]))
	assert.Error(t, net.FinishProcessing(insts[1]))
}

func TestDurations_Queries(t *testing.T) {
	clock := newFakeClock()
	insts := instances("A", "B", "C")
	simple := NewSimpleTiming(clock.Now)
	for i, inst := range insts {
		require.NoError(t, simple.StartProcessing(inst))
		clock.advance(time.Duration(i+1) * time.Millisecond)
		require.NoError(t, simple.FinishProcessing(inst))
	}

	names := func(ts []Timing) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.Instance.Name())
		}
		return out
	}

	assert.Equal(t, []string{"C", "B"}, names(simple.Longest(2)))
	assert.Equal(t, []string{"A"}, names(simple.Shortest(1)))
	assert.Equal(t, []string{"B", "C"}, names(simple.AtLeast(2*time.Millisecond)))
	assert.Equal(t, []string{"A", "B"}, names(simple.AtMost(2*time.Millisecond)))
	assert.Len(t, simple.Longest(-1), 3)
	assert.Equal(t, 6*time.Millisecond, simple.Total())
	assert.Equal(t, 3, simple.Len())

	count := 0
	simple.ForEach(func(Timing) { count++ })
	assert.Equal(t, 3, count)
}

func TestTracing(t *testing.T) {
	clock := newFakeClock()
	insts := instances("A", "B")
	var buf bytes.Buffer
	tracing := NewTracing(&buf, WithClock(clock.Now))

	require.NoError(t, tracing.StartProcessing(insts[0]))
	clock.advance(time.Millisecond)
	require.NoError(t, tracing.StartProcessing(insts[1]))
	clock.advance(time.Millisecond)
	require.NoError(t, tracing.FinishProcessingWithError(insts[1], errors.New("bad")))
	require.NoError(t, tracing.FinishProcessing(insts[0]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "> 12:00:00.000 A", lines[0])
	assert.Equal(t, "  > 12:00:00.001 B", lines[1])
	assert.Equal(t, "  ! 12:00:00.002 B (1ms) error: bad", lines[2])
	assert.Equal(t, "< 12:00:00.002 A (2ms)", lines[3])
}

func TestSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	insts := instances("A", "B")
	o := NewSpan(context.Background(), provider.Tracer("test"))

	require.NoError(t, o.StartProcessing(insts[0]))
	require.NoError(t, o.StartProcessing(insts[1]))
	require.NoError(t, o.FinishProcessingWithError(insts[1], errors.New("bad")))
	require.NoError(t, o.FinishProcessing(insts[0]))

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "process B", ended[0].Name())
	assert.Equal(t, "process A", ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	insts := instances("A")

	require.NoError(t, m.StartProcessing(insts[0]))
	require.NoError(t, m.FinishProcessingWithError(insts[0], errors.New("bad")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice fails")
}

func TestLogging(t *testing.T) {
	l := NewLogging(nil)
	i := instances("A")[0]
	assert.NoError(t, l.StartProcessing(i))
	assert.NoError(t, l.FinishProcessing(i))
	assert.NoError(t, l.FinishProcessingWithError(i, errors.New("x")))
}
