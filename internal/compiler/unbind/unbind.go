// Package unbind reverses what package postprocess does to an element so
// that its sources can be removed or recompiled. Unbinding never fails:
// anything it cannot undo is logged and counted as suppressed.
package unbind

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/compiler/matcher"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Matcher dispatches unbinders.
type Matcher = matcher.Matcher[*State]

// Unbinder undoes the bind step of one metaclass and its subclasses.
type Unbinder interface {
	ClassName() string
	Unbind(instance model.CoreInstance, state *State, m *Matcher) error
}

type unbinderRunner struct{ Unbinder }

func (r unbinderRunner) Run(instance model.CoreInstance, state *State, m *Matcher) error {
	return r.Unbind(instance, state, m)
}

// AsRunner adapts an unbinder so a Matcher can dispatch to it.
func AsRunner(u Unbinder) matcher.MatchRunner[*State] { return unbinderRunner{u} }

// State is shared by the unbinders of one pass.
type State struct {
	support *navigation.Support
	logger  *zap.Logger
	visited map[model.CoreInstance]bool

	// Suppressed counts the failures tolerated during the pass.
	Suppressed int
}

// NewState creates unbind state; a nil logger discards output.
func NewState(support *navigation.Support, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{support: support, logger: logger, visited: make(map[model.CoreInstance]bool)}
}

func (s *State) Support() *navigation.Support { return s.support }
func (s *State) Logger() *zap.Logger          { return s.logger }

// Suppress records a failure that unbinding tolerates.
func (s *State) Suppress(instance model.CoreInstance, err error) {
	s.Suppressed++
	s.logger.Debug("unbind failure suppressed",
		zap.String("instance", s.describe(instance)),
		zap.Error(err))
}

func (s *State) describe(instance model.CoreInstance) string {
	if instance == nil {
		return ""
	}
	if s.support.IsPackageable(instance) {
		if path := s.support.UserPath(instance); path != "" {
			return path
		}
	}
	return fmt.Sprintf("%s#%d", instance.Name(), instance.ID())
}

// Resolve returns what value denotes, resolving stubs optimistically.
// A value that no longer resolves has nothing left to clean up: the
// failure is suppressed and nil returned.
func (s *State) Resolve(owner, value model.CoreInstance) model.CoreInstance {
	resolved, err := s.support.WithImportStubByPass(value)
	if err != nil {
		s.Suppress(owner, err)
		return nil
	}
	return resolved
}

// UnbindElement runs the unbinders of instance once per pass and clears
// its compile states. Unbinder failures are suppressed.
func UnbindElement(m *Matcher, instance model.CoreInstance, state *State) {
	if instance == nil || state.visited[instance] {
		return
	}
	state.visited[instance] = true
	if err := m.Match(instance, state); err != nil {
		state.Suppress(instance, err)
	}
	instance.RemoveCompileState(model.Processed)
	instance.RemoveCompileState(model.Validated)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithUnbinders registers additional unbinders, typically from extensions.
func WithUnbinders(unbinders ...Unbinder) Option {
	return func(p *Pipeline) {
		for _, u := range unbinders {
			p.matcher.AddRunner(AsRunner(u))
		}
	}
}

// Pipeline unbinds batches of elements.
type Pipeline struct {
	support *navigation.Support
	matcher *Matcher
	logger  *zap.Logger
}

// New creates a pipeline with the core unbinders registered.
func New(support *navigation.Support, opts ...Option) *Pipeline {
	p := &Pipeline{
		support: support,
		matcher: matcher.New[*State](support),
		logger:  zap.NewNop(),
	}
	for _, u := range CoreUnbinders() {
		p.matcher.AddRunner(AsRunner(u))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CoreUnbinders returns the unbinders mirroring postprocess.CoreProcessors.
func CoreUnbinders() []Unbinder {
	return []Unbinder{
		typeUnbinder{},
		classUnbinder{},
		enumerationUnbinder{},
		associationUnbinder{},
		abstractPropertyUnbinder{},
		qualifiedPropertyUnbinder{},
		stereotypesUnbinder{},
		taggedValuesUnbinder{},
		functionUnbinder{},
	}
}

func (p *Pipeline) Matcher() *Matcher { return p.matcher }

// Unbind unbinds elements in the reverse of bind order. The returned state
// reports how many failures were suppressed. Cancellation is checked
// between elements and leaves the remaining elements bound.
func (p *Pipeline) Unbind(ctx context.Context, elements []model.CoreInstance) (*State, error) {
	state := NewState(p.support, p.logger)
	sorted := postprocess.SortForBind(p.support, elements)
	for i := len(sorted) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("unbind interrupted: %w", err)
		}
		UnbindElement(p.matcher, sorted[i], state)
	}
	if state.Suppressed > 0 {
		p.logger.Debug("unbind finished with suppressed failures", zap.Int("suppressed", state.Suppressed))
	}
	return state, nil
}
