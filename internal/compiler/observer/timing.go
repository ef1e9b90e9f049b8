package observer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conduit-lang/metacore/internal/model"
)

// Timing is the processing time recorded for one instance.
type Timing struct {
	Instance model.CoreInstance
	Duration time.Duration
}

// Durations accumulates processing times per instance. Only positive
// durations are recorded.
type Durations struct {
	mu     sync.Mutex
	values map[model.CoreInstance]time.Duration
	order  []model.CoreInstance
}

func newDurations() *Durations {
	return &Durations{values: make(map[model.CoreInstance]time.Duration)}
}

func (d *Durations) add(instance model.CoreInstance, duration time.Duration) {
	if duration <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.values[instance]; !ok {
		d.order = append(d.order, instance)
	}
	d.values[instance] += duration
}

// DurationOf returns the recorded duration, or -1 when none was recorded.
func (d *Durations) DurationOf(instance model.CoreInstance) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.values[instance]; ok {
		return v
	}
	return -1
}

// All returns every recorded timing in first-recorded order.
func (d *Durations) All() []Timing {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Timing, len(d.order))
	for i, inst := range d.order {
		out[i] = Timing{Instance: inst, Duration: d.values[inst]}
	}
	return out
}

// Len returns the number of instances with a recorded duration.
func (d *Durations) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Total returns the sum of all recorded durations.
func (d *Durations) Total() time.Duration {
	var total time.Duration
	for _, t := range d.All() {
		total += t.Duration
	}
	return total
}

// Longest returns up to n timings, longest first.
func (d *Durations) Longest(n int) []Timing {
	all := d.All()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Duration > all[j].Duration })
	return firstN(all, n)
}

// Shortest returns up to n timings, shortest first.
func (d *Durations) Shortest(n int) []Timing {
	all := d.All()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Duration < all[j].Duration })
	return firstN(all, n)
}

// AtLeast returns the timings of at least min.
func (d *Durations) AtLeast(min time.Duration) []Timing {
	return d.Filter(func(t Timing) bool { return t.Duration >= min })
}

// AtMost returns the timings of at most max.
func (d *Durations) AtMost(max time.Duration) []Timing {
	return d.Filter(func(t Timing) bool { return t.Duration <= max })
}

// Filter returns the timings accepted by predicate.
func (d *Durations) Filter(predicate func(Timing) bool) []Timing {
	var out []Timing
	for _, t := range d.All() {
		if predicate(t) {
			out = append(out, t)
		}
	}
	return out
}

// ForEach calls fn for every timing.
func (d *Durations) ForEach(fn func(Timing)) {
	for _, t := range d.All() {
		fn(t)
	}
}

func firstN(timings []Timing, n int) []Timing {
	if n >= 0 && n < len(timings) {
		return timings[:n]
	}
	return timings
}

// Clock returns the current time; tests substitute a fake.
type Clock func() time.Time

// SimpleTiming records the wall time between start and finish of each
// instance, including time spent in nested processing.
type SimpleTiming struct {
	*Durations
	clock  Clock
	mu     sync.Mutex
	starts map[model.CoreInstance]time.Time
}

// NewSimpleTiming creates a simple timing observer; a nil clock means time.Now.
func NewSimpleTiming(clock Clock) *SimpleTiming {
	if clock == nil {
		clock = time.Now
	}
	return &SimpleTiming{Durations: newDurations(), clock: clock, starts: make(map[model.CoreInstance]time.Time)}
}

func (s *SimpleTiming) StartProcessing(instance model.CoreInstance) error {
	s.mu.Lock()
	s.starts[instance] = s.clock()
	s.mu.Unlock()
	return nil
}

func (s *SimpleTiming) FinishProcessing(instance model.CoreInstance) error {
	now := s.clock()
	s.mu.Lock()
	start, ok := s.starts[instance]
	delete(s.starts, instance)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("finished processing %v without starting it", instance)
	}
	s.add(instance, now.Sub(start))
	return nil
}

func (s *SimpleTiming) FinishProcessingWithError(instance model.CoreInstance, _ error) error {
	return s.FinishProcessing(instance)
}

type frame struct {
	instance model.CoreInstance
	start    time.Time
	nested   time.Duration
}

// NetTiming records for each instance its wall time minus the wall time
// of the processing nested inside it.
type NetTiming struct {
	*Durations
	clock Clock
	mu    sync.Mutex
	stack []frame
}

// NewNetTiming creates a net timing observer; a nil clock means time.Now.
func NewNetTiming(clock Clock) *NetTiming {
	if clock == nil {
		clock = time.Now
	}
	return &NetTiming{Durations: newDurations(), clock: clock}
}

func (n *NetTiming) StartProcessing(instance model.CoreInstance) error {
	n.mu.Lock()
	n.stack = append(n.stack, frame{instance: instance, start: n.clock()})
	n.mu.Unlock()
	return nil
}

func (n *NetTiming) FinishProcessing(instance model.CoreInstance) error {
	now := n.clock()
	n.mu.Lock()
	if len(n.stack) == 0 {
		n.mu.Unlock()
		return fmt.Errorf("finished processing %v without starting it", instance)
	}
	top := n.stack[len(n.stack)-1]
	if top.instance != instance {
		n.mu.Unlock()
		return fmt.Errorf("finished processing %v while %v is in progress", instance, top.instance)
	}
	n.stack = n.stack[:len(n.stack)-1]
	elapsed := now.Sub(top.start)
	if len(n.stack) > 0 {
		n.stack[len(n.stack)-1].nested += elapsed
	}
	n.mu.Unlock()
	n.add(instance, elapsed-top.nested)
	return nil
}

func (n *NetTiming) FinishProcessingWithError(instance model.CoreInstance, _ error) error {
	return n.FinishProcessing(instance)
}
