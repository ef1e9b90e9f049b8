// Package validation checks bound elements. Validators are dispatched by
// classifier like bind processors and mark what they accept Validated.
package validation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/matcher"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Matcher dispatches validators.
type Matcher = matcher.Matcher[*State]

// Validator checks instances of one metaclass and its subclasses.
type Validator interface {
	ClassName() string
	Validate(instance model.CoreInstance, state *State, m *Matcher) error
}

type validatorRunner struct{ Validator }

func (r validatorRunner) Run(instance model.CoreInstance, state *State, m *Matcher) error {
	return r.Validate(instance, state, m)
}

// AsRunner adapts a validator so a Matcher can dispatch to it.
func AsRunner(v Validator) matcher.MatchRunner[*State] { return validatorRunner{v} }

// State is shared by the validators of one pass.
type State struct {
	support *navigation.Support
	logger  *zap.Logger
}

func NewState(support *navigation.Support, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{support: support, logger: logger}
}

func (s *State) Support() *navigation.Support { return s.support }
func (s *State) Logger() *zap.Logger          { return s.logger }

// ValidateElement runs the validators of instance unless it is already
// validated, and marks it Validated when they all pass.
func ValidateElement(m *Matcher, instance model.CoreInstance, state *State) error {
	if instance == nil || instance.HasCompileState(model.Validated) {
		return nil
	}
	if err := m.Match(instance, state); err != nil {
		return err
	}
	instance.AddCompileState(model.Validated)
	return nil
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithValidators registers additional validators.
func WithValidators(validators ...Validator) Option {
	return func(p *Pipeline) {
		for _, v := range validators {
			p.matcher.AddRunner(AsRunner(v))
		}
	}
}

// Pipeline validates batches of bound elements.
type Pipeline struct {
	support *navigation.Support
	matcher *Matcher
	logger  *zap.Logger
}

// New creates a pipeline with the core validators registered.
func New(support *navigation.Support, opts ...Option) *Pipeline {
	p := &Pipeline{
		support: support,
		matcher: matcher.New[*State](support),
		logger:  zap.NewNop(),
	}
	for _, v := range CoreValidators() {
		p.matcher.AddRunner(AsRunner(v))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CoreValidators returns the validators for the core metaclasses.
func CoreValidators() []Validator {
	return []Validator{
		classValidator{},
		associationValidator{},
		stereotypesValidator{},
		taggedValuesValidator{},
		functionValidator{},
	}
}

func (p *Pipeline) Matcher() *Matcher { return p.matcher }

// Validate checks elements in bind order and returns every failure as an
// ErrorList. Elements that fail are left without the Validated state.
func (p *Pipeline) Validate(ctx context.Context, elements []model.CoreInstance) error {
	state := NewState(p.support, p.logger)
	var errs cerrors.ErrorList
	for _, element := range postprocess.SortForBind(p.support, elements) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("validation interrupted: %w", err)
		}
		if !element.HasCompileState(model.Processed) {
			continue
		}
		var elementErrs cerrors.ErrorList
		elementErrs.Add(ValidateElement(p.matcher, element, state))
		for _, ce := range elementErrs {
			if ce.Element == "" {
				ce.WithElement(p.support.UserPath(element))
			}
		}
		errs = append(errs, elementErrs...)
	}
	return errs.Err()
}
