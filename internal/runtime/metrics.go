package runtime

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CompilationMetrics describes one Compile call.
type CompilationMetrics struct {
	Sources          int // sources known after the compile
	SourcesParsed    int
	SourcesUnchanged int // modifications skipped because the content hash matched
	SourcesDeleted   int
	ElementsUnbound  int
	ElementsBound    int
	Suppressed       int // unbind failures tolerated

	UnbindDuration   time.Duration
	ParseDuration    time.Duration
	BindDuration     time.Duration
	ValidateDuration time.Duration
	TotalDuration    time.Duration
	StartTime        time.Time
	EndTime          time.Time
}

// CacheHitRate returns the share of pending sources that did not need
// parsing, as a percentage.
func (m *CompilationMetrics) CacheHitRate() float64 {
	total := m.SourcesParsed + m.SourcesUnchanged
	if total == 0 {
		return 0.0
	}
	return float64(m.SourcesUnchanged) / float64(total) * 100.0
}

// MarshalLogObject lets the metrics be logged with zap.Object.
func (m *CompilationMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("sources", m.Sources)
	enc.AddInt("parsed", m.SourcesParsed)
	enc.AddInt("unchanged", m.SourcesUnchanged)
	enc.AddInt("deleted", m.SourcesDeleted)
	enc.AddInt("unbound", m.ElementsUnbound)
	enc.AddInt("bound", m.ElementsBound)
	enc.AddInt("suppressed", m.Suppressed)
	enc.AddDuration("unbind", m.UnbindDuration)
	enc.AddDuration("parse", m.ParseDuration)
	enc.AddDuration("bind", m.BindDuration)
	enc.AddDuration("validate", m.ValidateDuration)
	enc.AddDuration("total", m.TotalDuration)
	return nil
}

var _ zapcore.ObjectMarshaler = (*CompilationMetrics)(nil)

func metricsField(m *CompilationMetrics) zap.Field { return zap.Object("metrics", m) }
