package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.opentelemetry.io/otel"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/cli/config"
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/observer"
	mcruntime "github.com/conduit-lang/metacore/internal/runtime"
	"github.com/conduit-lang/metacore/internal/store"
	"github.com/conduit-lang/metacore/internal/store/badger"
	"github.com/conduit-lang/metacore/internal/store/memory"
	"github.com/conduit-lang/metacore/internal/store/sqlite"
	"github.com/conduit-lang/metacore/internal/telemetry"
)

// ErrCompilationFailed is returned by commands whose compile reported
// errors; the errors themselves are printed.
var ErrCompilationFailed = errors.New("compilation failed")

// timings is implemented by the timing observers.
type timings interface {
	Longest(n int) []observer.Timing
	Len() int
	Total() time.Duration
}

// observers builds the observers named in the compile config. The
// returned closer releases the trace output.
func (a *app) observers(ctx context.Context, names []string) (observer.Observer, timings, func(), error) {
	var members []observer.Observer
	var timing timings
	closer := func() {}
	for _, name := range names {
		switch name {
		case config.ObserverTiming:
			if a.cfg.Compile.NetTiming {
				t := observer.NewNetTiming(nil)
				members, timing = append(members, t), t
			} else {
				t := observer.NewSimpleTiming(nil)
				members, timing = append(members, t), t
			}
		case config.ObserverTrace:
			var w io.Writer = os.Stderr
			if path := a.cfg.Compile.TraceOutput; path != "" {
				f, err := os.Create(path)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("open trace output: %w", err)
				}
				w, closer = f, func() { f.Close() }
			}
			members = append(members, observer.NewTracing(w, observer.WithColors(!color.NoColor && w == os.Stderr)))
		case config.ObserverLog:
			members = append(members, observer.NewLogging(a.logger))
		case config.ObserverMetrics:
			m, err := observer.NewMetrics(a.registry)
			if err != nil {
				return nil, nil, nil, err
			}
			members = append(members, m)
		case config.ObserverSpan:
			members = append(members, observer.NewSpan(ctx, otel.Tracer(telemetry.TracerName)))
		default:
			return nil, nil, nil, fmt.Errorf("unknown observer %q", name)
		}
	}
	return observer.Combine(members...), timing, closer, nil
}

// newRuntime creates a runtime with the configured extensions, reference
// id version and observer.
func (a *app) newRuntime(obs observer.Observer) (*mcruntime.Runtime, error) {
	opts := []mcruntime.Option{
		mcruntime.WithLogger(a.logger),
		mcruntime.WithExtensions(a.extensions...),
		mcruntime.WithReferenceIDVersion(a.cfg.ReferenceIDs.Version),
	}
	if obs != nil {
		opts = append(opts, mcruntime.WithObserver(obs))
	}
	return mcruntime.New(opts...)
}

// sourcePaths returns the directories named on the command line, or the
// configured ones.
func (a *app) sourcePaths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return a.cfg.Sources.Paths
}

// load stages the sources under dirs and compiles them. Compilation errors
// are printed to w and reported as ErrCompilationFailed.
func (a *app) load(ctx context.Context, rt *mcruntime.Runtime, dirs []string, w io.Writer) (*mcruntime.CompilationMetrics, error) {
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("source directory %s not found", dir)
		}
	}
	if _, err := rt.Sync(dirs, a.cfg.Sources.Extension); err != nil {
		return nil, err
	}
	metrics, err := rt.Compile(ctx)
	if err != nil {
		var list cerrors.ErrorList
		if !errors.As(err, &list) {
			ce, ok := cerrors.AsCompilationError(err)
			if !ok {
				return metrics, err
			}
			list = cerrors.ErrorList{ce}
		}
		fmt.Fprintln(w, cerrors.FormatErrorList(list, sourceLines(rt, list)))
		for _, oerr := range multierr.Errors(err)[1:] {
			fmt.Fprintf(w, "observer failed: %v\n", oerr)
		}
		return metrics, ErrCompilationFailed
	}
	return metrics, nil
}

func sourceLines(rt *mcruntime.Runtime, list cerrors.ErrorList) map[string][]string {
	lines := make(map[string][]string)
	for _, ce := range list {
		if ce.Source == nil {
			continue
		}
		id := ce.Source.SourceID
		if _, done := lines[id]; done {
			continue
		}
		if src, ok := rt.Source(id); ok {
			lines[id] = strings.Split(string(src.Content), "\n")
		}
	}
	return lines
}

// openStore opens the configured element store.
func (a *app) openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		return sqlite.Open(sqlite.DefaultConfig(cfg.Path))
	case config.DriverBadger:
		bc := badger.DefaultConfig(cfg.Path)
		bc.Logger = a.logger.Named("badger")
		return badger.Open(bc)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (a *app) printSummary(w io.Writer, m *mcruntime.CompilationMetrics) {
	color.New(color.FgGreen, color.Bold).Fprint(w, "✓ ")
	fmt.Fprintf(w, "Compiled %d source(s), %d element(s) bound in %s\n",
		m.Sources, m.ElementsBound, m.TotalDuration.Round(time.Microsecond))
	a.logger.Debug("compile metrics", zap.Object("metrics", m))
}
