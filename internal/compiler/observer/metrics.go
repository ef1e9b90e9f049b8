package observer

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/conduit-lang/metacore/internal/model"
)

// Metrics exports processing durations and failures as Prometheus metrics,
// labelled by classifier name.
type Metrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	clock    Clock

	mu     sync.Mutex
	starts map[model.CoreInstance]time.Time
}

// NewMetrics registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metacore",
			Name:      "element_processing_seconds",
			Help:      "Time spent processing an element, nested processing included.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"classifier"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacore",
			Name:      "element_processing_failures_total",
			Help:      "Number of elements whose processing failed.",
		}, []string{"classifier"}),
		clock:  time.Now,
		starts: make(map[model.CoreInstance]time.Time),
	}
	for _, c := range []prometheus.Collector{m.duration, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register processing metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) StartProcessing(instance model.CoreInstance) error {
	m.mu.Lock()
	m.starts[instance] = m.clock()
	m.mu.Unlock()
	return nil
}

func (m *Metrics) FinishProcessing(instance model.CoreInstance) error {
	m.observe(instance)
	return nil
}

func (m *Metrics) FinishProcessingWithError(instance model.CoreInstance, _ error) error {
	m.observe(instance)
	m.failures.WithLabelValues(classifierLabel(instance)).Inc()
	return nil
}

func (m *Metrics) observe(instance model.CoreInstance) {
	m.mu.Lock()
	start, ok := m.starts[instance]
	delete(m.starts, instance)
	m.mu.Unlock()
	if ok {
		m.duration.WithLabelValues(classifierLabel(instance)).Observe(m.clock().Sub(start).Seconds())
	}
}

func classifierLabel(instance model.CoreInstance) string {
	if c := instance.Classifier(); c != nil {
		return c.Name()
	}
	return "unknown"
}
