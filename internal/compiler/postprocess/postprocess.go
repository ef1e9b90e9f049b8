// Package postprocess binds parsed elements: it resolves stubs, records
// back references, infers expression types and generates milestoning
// properties. Unbinding mirrors every step in package unbind.
package postprocess

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/matcher"
	"github.com/conduit-lang/metacore/internal/compiler/observer"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Matcher dispatches bind processors.
type Matcher = matcher.Matcher[*State]

// Processor binds instances of one metaclass and its subclasses.
type Processor interface {
	ClassName() string
	Process(instance model.CoreInstance, state *State, m *Matcher) error
	PopulateReferenceUsages(instance model.CoreInstance, state *State) error
}

type processorRunner struct{ Processor }

func (r processorRunner) Run(instance model.CoreInstance, state *State, m *Matcher) error {
	if err := r.Process(instance, state, m); err != nil {
		return err
	}
	return r.PopulateReferenceUsages(instance, state)
}

// AsRunner adapts a processor so a Matcher can dispatch to it.
func AsRunner(p Processor) matcher.MatchRunner[*State] { return processorRunner{p} }

// State is shared by the processors of one bind pass.
type State struct {
	support  *navigation.Support
	observer observer.Observer
	logger   *zap.Logger
	vars     *VariableContext

	// observerErr collects failing observer hooks; they surface once the
	// pass is over.
	observerErr error
}

// NewState creates bind state. A nil observer or logger is replaced by a no-op.
func NewState(support *navigation.Support, obs observer.Observer, logger *zap.Logger) *State {
	if obs == nil {
		obs = observer.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{support: support, observer: obs, logger: logger}
}

func (s *State) Support() *navigation.Support { return s.support }
func (s *State) Logger() *zap.Logger          { return s.logger }

// ObserverErr returns the observer failures collected so far.
func (s *State) ObserverErr() error { return s.observerErr }

func (s *State) observed(hook string, instance model.CoreInstance, err error) {
	if err == nil {
		return
	}
	s.logger.Debug("observer failed", zap.String("hook", hook), zap.String("instance", s.support.UserPath(instance)), zap.Error(err))
	s.observerErr = multierr.Append(s.observerErr, err)
}

// ProcessElement binds instance unless it is already processed. The
// instance is marked Processed before its processors run so cycles through
// the graph terminate. Observer failures never interrupt binding; they are
// collected on state.
func ProcessElement(m *Matcher, instance model.CoreInstance, state *State) error {
	if instance == nil || instance.HasCompileState(model.Processed) {
		return nil
	}
	state.observed("start", instance, state.observer.StartProcessing(instance))
	instance.AddCompileState(model.Processed)
	if err := m.Match(instance, state); err != nil {
		state.observed("finishWithError", instance, state.observer.FinishProcessingWithError(instance, err))
		return err
	}
	state.observed("finish", instance, state.observer.FinishProcessing(instance))
	return nil
}

// Option configures a PostProcessor.
type Option func(*PostProcessor)

// WithObserver sets the observer notified around every processed instance.
func WithObserver(obs observer.Observer) Option {
	return func(p *PostProcessor) { p.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *PostProcessor) { p.logger = logger }
}

// WithProcessors registers additional processors, typically from extensions.
func WithProcessors(processors ...Processor) Option {
	return func(p *PostProcessor) {
		for _, proc := range processors {
			p.matcher.AddRunner(AsRunner(proc))
		}
	}
}

// PostProcessor binds batches of parsed elements.
type PostProcessor struct {
	support  *navigation.Support
	matcher  *Matcher
	observer observer.Observer
	logger   *zap.Logger
	stopped  atomic.Bool
}

// New creates a post processor with the core processors registered.
func New(support *navigation.Support, opts ...Option) *PostProcessor {
	p := &PostProcessor{
		support: support,
		matcher: matcher.New[*State](support),
		logger:  zap.NewNop(),
	}
	for _, proc := range CoreProcessors() {
		p.matcher.AddRunner(AsRunner(proc))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CoreProcessors returns the processors for the core metaclasses.
func CoreProcessors() []Processor {
	return []Processor{
		typeProcessor{},
		classProcessor{},
		enumerationProcessor{},
		associationProcessor{},
		abstractPropertyProcessor{},
		qualifiedPropertyProcessor{},
		stereotypesProcessor{},
		taggedValuesProcessor{},
		functionProcessor{},
	}
}

func (p *PostProcessor) Matcher() *Matcher { return p.matcher }

// Stop makes Process return before the next element. The element being
// processed when Stop is called is completed.
func (p *PostProcessor) Stop() { p.stopped.Store(true) }

// ErrStopped is returned by Process after Stop.
var ErrStopped = errors.New("post processing stopped")

// Process binds elements in bind order. A failing element does not stop
// its siblings; the failures are returned together as an ErrorList.
// Cancellation and Stop are checked between elements.
//
// Observer failures are reported after every element has been processed.
// When binding itself failed its error leads and observer.Primary returns
// it; the observer failures follow it in the combined error.
func (p *PostProcessor) Process(ctx context.Context, elements []model.CoreInstance) error {
	state := NewState(p.support, p.observer, p.logger)
	var errs cerrors.ErrorList
	for _, element := range SortForBind(p.support, elements) {
		if err := ctx.Err(); err != nil {
			return multierr.Append(fmt.Errorf("post processing interrupted: %w", err), state.observerErr)
		}
		if p.stopped.Load() {
			return multierr.Append(ErrStopped, state.observerErr)
		}
		if err := ProcessElement(p.matcher, element, state); err != nil {
			p.logger.Debug("bind failed", zap.String("element", p.support.UserPath(element)), zap.Error(err))
			if ce, ok := cerrors.AsCompilationError(err); ok && ce.Element == "" {
				ce.WithElement(p.support.UserPath(element))
			}
			errs.Add(err)
		}
	}
	if state.observerErr == nil {
		return errs.Err()
	}
	if err := errs.Err(); err != nil {
		return multierr.Append(err, state.observerErr)
	}
	return fmt.Errorf("observer failed: %w", state.observerErr)
}

// BindRank orders elements for binding: profiles, enumerations, classes,
// associations, functions, then everything else.
func BindRank(support *navigation.Support, element model.CoreInstance) int {
	switch {
	case support.ClassifierIs(element, metamodel.Profile):
		return 0
	case support.ClassifierIs(element, metamodel.Enumeration):
		return 1
	case support.ClassifierIs(element, metamodel.Class), support.ClassifierIs(element, metamodel.PrimitiveType):
		return 2
	case support.ClassifierIs(element, metamodel.Association):
		return 3
	case support.ClassifierIs(element, metamodel.ConcreteFunctionDefinition):
		return 4
	default:
		return 5
	}
}

// SortForBind returns elements in bind order, ties broken by path. Unbind
// uses the reverse of this order.
func SortForBind(support *navigation.Support, elements []model.CoreInstance) []model.CoreInstance {
	sorted := append([]model.CoreInstance(nil), elements...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := BindRank(support, sorted[i]), BindRank(support, sorted[j])
		if ri != rj {
			return ri < rj
		}
		return support.UserPath(sorted[i]) < support.UserPath(sorted[j])
	})
	return sorted
}
