package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/runtime"
)

// Status describes the outcome of the most recent compile.
type Status struct {
	OK          bool         `json:"ok"`
	Sources     int          `json:"sources"`
	LastCompile time.Time    `json:"last_compile"`
	Duration    float64      `json:"duration"` // milliseconds
	Errors      []*ErrorInfo `json:"errors,omitempty"`
}

type sessionMetrics struct {
	compiles *prometheus.CounterVec
	duration prometheus.Histogram
	sources  prometheus.Gauge
}

func newSessionMetrics(reg prometheus.Registerer) (*sessionMetrics, error) {
	m := &sessionMetrics{
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacore",
			Name:      "compiles_total",
			Help:      "Number of compiles run by the watch session.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metacore",
			Name:      "compile_duration_seconds",
			Help:      "Duration of the compiles run by the watch session.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		sources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "metacore",
			Name:      "sources",
			Help:      "Number of sources known to the runtime.",
		}),
	}
	for _, c := range []prometheus.Collector{m.compiles, m.duration, m.sources} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register session metrics: %w", err)
		}
	}
	return m, nil
}

// Session keeps a runtime in step with the source files under a set of
// directories.
type Session struct {
	rt     *runtime.Runtime
	dirs   []string
	ext    string
	logger *zap.Logger
	events *EventServer

	reg      prometheus.Registerer
	metrics  *sessionMetrics
	debounce time.Duration
	ignored  []string

	compileMu sync.Mutex
	statusMu  sync.RWMutex
	status    Status
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithEvents publishes compile events to es.
func WithEvents(es *EventServer) SessionOption {
	return func(s *Session) { s.events = es }
}

// WithRegisterer registers the session metrics with reg instead of the
// default registry.
func WithRegisterer(reg prometheus.Registerer) SessionOption {
	return func(s *Session) { s.reg = reg }
}

func WithSessionDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

func WithSessionIgnored(patterns ...string) SessionOption {
	return func(s *Session) { s.ignored = append(s.ignored, patterns...) }
}

// NewSession creates a session compiling the files with extension ext
// found under dirs into rt.
func NewSession(rt *runtime.Runtime, dirs []string, ext string, opts ...SessionOption) (*Session, error) {
	s := &Session{
		rt:       rt,
		dirs:     dirs,
		ext:      ext,
		logger:   zap.NewNop(),
		reg:      prometheus.DefaultRegisterer,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics, err := newSessionMetrics(s.reg)
	if err != nil {
		return nil, err
	}
	s.metrics = metrics
	return s, nil
}

// Runtime returns the runtime the session compiles into.
func (s *Session) Runtime() *runtime.Runtime { return s.rt }

// Status returns the outcome of the most recent compile.
func (s *Session) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Load stages every file under the session directories and compiles.
func (s *Session) Load(ctx context.Context) error {
	s.compileMu.Lock()
	defer s.compileMu.Unlock()

	result, err := s.rt.Sync(s.dirs, s.ext)
	if err != nil {
		return err
	}
	s.logger.Info("sources loaded",
		zap.Int("created", result.Created),
		zap.Int("modified", result.Modified),
		zap.Int("deleted", result.Deleted))
	return s.compile(ctx, s.rt.Sources())
}

// Apply stages the changes of the given files and compiles when anything
// changed or a previous compile left the runtime dirty. Files that no
// longer exist are deleted from the runtime.
func (s *Session) Apply(ctx context.Context, files []string) error {
	s.compileMu.Lock()
	defer s.compileMu.Unlock()

	var changed []string
	for _, file := range files {
		kind, err := s.stage(file)
		if err != nil {
			return err
		}
		if kind != runtime.ChangeNone {
			s.logger.Debug("source staged", zap.String("source", runtime.SourceID(file)), zap.Stringer("change", kind))
			changed = append(changed, runtime.SourceID(file))
		}
	}
	if len(changed) == 0 && !s.rt.Dirty() {
		return nil
	}
	return s.compile(ctx, changed)
}

func (s *Session) stage(file string) (runtime.ChangeKind, error) {
	if _, err := os.Stat(file); err == nil {
		return s.rt.SyncFile(file)
	} else if !errors.Is(err, os.ErrNotExist) {
		return runtime.ChangeNone, err
	}
	id := runtime.SourceID(file)
	if _, ok := s.rt.Source(id); !ok {
		return runtime.ChangeNone, nil
	}
	return runtime.ChangeDelete, s.rt.DeleteSource(id)
}

// compile runs a compile and reports it. A failed compile is reported but
// not returned; it leaves the runtime dirty for the next change.
func (s *Session) compile(ctx context.Context, files []string) error {
	if s.events != nil {
		s.events.NotifyCompiling(files)
	}

	metrics, err := s.rt.Compile(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := Status{
		OK:          err == nil,
		Sources:     metrics.Sources,
		LastCompile: metrics.EndTime,
		Duration:    float64(metrics.TotalDuration.Milliseconds()),
		Errors:      ErrorInfos(err),
	}
	s.statusMu.Lock()
	s.status = status
	s.statusMu.Unlock()

	result := "success"
	if err != nil {
		result = "error"
		s.logger.Warn("compile failed", zap.Int("errors", len(status.Errors)), zap.Error(err))
	} else {
		s.logger.Info("compile succeeded",
			zap.Int("sources", metrics.Sources),
			zap.Int("parsed", metrics.SourcesParsed),
			zap.Duration("duration", metrics.TotalDuration))
	}
	s.metrics.compiles.WithLabelValues(result).Inc()
	s.metrics.duration.Observe(metrics.TotalDuration.Seconds())
	s.metrics.sources.Set(float64(metrics.Sources))

	if s.events != nil {
		s.events.NotifyResult(metrics.TotalDuration, metrics.Sources, err)
	}
	return nil
}

// Run loads the sources, then recompiles on every batch of file changes
// until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	watcher, err := NewFileWatcher(s.dirs, s.ext, func(files []string) error {
		return s.Apply(ctx, files)
	},
		WithWatcherLogger(s.logger),
		WithDebounce(s.debounce),
		WithIgnored(s.ignored...),
	)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return err
	}
	defer watcher.Stop()

	if err := s.Load(ctx); err != nil {
		return err
	}
	s.logger.Info("watching for changes", zap.Strings("dirs", s.dirs), zap.String("ext", s.ext))

	<-ctx.Done()
	s.rt.Stop()
	return nil
}
