// Package runtime keeps a compiled graph in step with a changing set of
// sources. Changes are staged with CreateSource, ModifySource and
// DeleteSource and applied by Compile, which unbinds what the change
// invalidates, reparses the changed sources and binds the result inside
// a transaction.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/compiler/cache"
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/observer"
	"github.com/conduit-lang/metacore/internal/compiler/parser"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/compiler/unbind"
	"github.com/conduit-lang/metacore/internal/compiler/validation"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
	"github.com/conduit-lang/metacore/internal/reference"
	"github.com/conduit-lang/metacore/internal/serialization"
)

// Extension plugs metaclasses and their pipeline steps into a runtime.
type Extension interface {
	Name() string
	ClassDefs() []metamodel.ClassDef
	BlockParsers() []parser.BlockParser
	Processors() []postprocess.Processor
	Unbinders() []unbind.Unbinder
	Validators() []validation.Validator
}

var (
	ErrSourceExists   = errors.New("source already exists")
	ErrSourceNotFound = errors.New("source not found")
)

// Source is a snapshot of one source known to the runtime.
type Source struct {
	ID       string
	Content  []byte
	Hash     string // hash of the content the elements were parsed from
	Elements []model.CoreInstance
}

type source struct {
	id       string
	content  []byte
	elements []model.CoreInstance
}

// ChangeKind is a change staged for a source.
type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangeCreate
	ChangeModify
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreate:
		return "create"
	case ChangeModify:
		return "modify"
	case ChangeDelete:
		return "delete"
	default:
		return "none"
	}
}

// Option configures a Runtime.
type Option func(*Runtime)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// WithObserver sets the observer notified while elements are bound.
func WithObserver(obs observer.Observer) Option {
	return func(r *Runtime) { r.observer = obs }
}

// WithExtensions registers extensions before the metamodel is bootstrapped.
func WithExtensions(extensions ...Extension) Option {
	return func(r *Runtime) { r.extensions = append(r.extensions, extensions...) }
}

// WithReferenceIDVersion selects the reference id version used by Snapshot.
func WithReferenceIDVersion(version int) Option {
	return func(r *Runtime) { r.idVersion = version }
}

// Runtime owns a repository and the sources compiled into it. Its methods
// are safe for concurrent use; compiles are serialized.
type Runtime struct {
	logger     *zap.Logger
	observer   observer.Observer
	extensions []Extension
	idVersion  int

	repo      *model.Repository
	support   *navigation.Support
	parser    *parser.Parser
	post      *postprocess.PostProcessor
	unbinder  *unbind.Pipeline
	validator *validation.Pipeline
	ids       *reference.ReferenceIDs
	hashes    *cache.SourceHashes
	deps      *cache.DependencyGraph
	compileMu sync.Mutex
	mu        sync.RWMutex
	sources   map[string]*source
	pending   map[string]ChangeKind
}

// New bootstraps a repository with the core metamodel and every extension.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		logger:  zap.NewNop(),
		hashes:  cache.NewSourceHashes(),
		deps:    cache.NewDependencyGraph(),
		sources: make(map[string]*source),
		pending: make(map[string]ChangeKind),
	}
	for _, opt := range opts {
		opt(r)
	}

	var classes []metamodel.ClassDef
	var blocks []parser.BlockParser
	var processors []postprocess.Processor
	var unbinders []unbind.Unbinder
	var validators []validation.Validator
	for _, ext := range r.extensions {
		classes = append(classes, ext.ClassDefs()...)
		blocks = append(blocks, ext.BlockParsers()...)
		processors = append(processors, ext.Processors()...)
		unbinders = append(unbinders, ext.Unbinders()...)
		validators = append(validators, ext.Validators()...)
	}

	r.repo = model.NewRepository()
	meta, err := metamodel.Bootstrap(r.repo, classes...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap metamodel: %w", err)
	}
	r.support = navigation.NewSupport(meta)
	r.parser = parser.New(r.support, blocks...)
	postOpts := []postprocess.Option{postprocess.WithLogger(r.logger), postprocess.WithProcessors(processors...)}
	if r.observer != nil {
		postOpts = append(postOpts, postprocess.WithObserver(r.observer))
	}
	r.post = postprocess.New(r.support, postOpts...)
	r.unbinder = unbind.New(r.support, unbind.WithLogger(r.logger), unbind.WithUnbinders(unbinders...))
	r.validator = validation.New(r.support, validation.WithLogger(r.logger), validation.WithValidators(validators...))

	if r.ids, err = reference.NewReferenceIDs(r.support, reference.V1{}); err != nil {
		return nil, err
	}
	if r.idVersion == 0 {
		r.idVersion = r.ids.DefaultVersion()
	}
	if _, err := r.ids.Provider(r.idVersion); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) Repository() *model.Repository         { return r.repo }
func (r *Runtime) Support() *navigation.Support          { return r.support }
func (r *Runtime) ReferenceIDs() *reference.ReferenceIDs { return r.ids }
func (r *Runtime) Dependencies() *cache.DependencyGraph  { return r.deps }

// CreateSource stages a new source.
func (r *Runtime) CreateSource(id string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; ok && r.pending[id] != ChangeDelete {
		return fmt.Errorf("%w: %s", ErrSourceExists, id)
	}
	if s, ok := r.sources[id]; ok {
		s.content = append([]byte(nil), content...)
		r.pending[id] = ChangeModify
		return nil
	}
	r.sources[id] = &source{id: id, content: append([]byte(nil), content...)}
	r.pending[id] = ChangeCreate
	return nil
}

// ModifySource stages new content for an existing source.
func (r *Runtime) ModifySource(id string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok || r.pending[id] == ChangeDelete {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	s.content = append([]byte(nil), content...)
	if r.pending[id] != ChangeCreate {
		r.pending[id] = ChangeModify
	}
	return nil
}

// DeleteSource stages the removal of a source.
func (r *Runtime) DeleteSource(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok || r.pending[id] == ChangeDelete {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	if r.pending[id] == ChangeCreate && len(r.sources[id].elements) == 0 {
		delete(r.sources, id)
		delete(r.pending, id)
		return nil
	}
	r.pending[id] = ChangeDelete
	return nil
}

// Source returns a source by id. Staged content is returned even before
// it is compiled.
func (r *Runtime) Source(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok || r.pending[id] == ChangeDelete {
		return Source{}, false
	}
	hash, _ := r.hashes.Get(id)
	return Source{
		ID:       s.id,
		Content:  append([]byte(nil), s.content...),
		Hash:     hash,
		Elements: append([]model.CoreInstance(nil), s.elements...),
	}, true
}

// Sources returns the ids of the sources, sorted.
func (r *Runtime) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		if r.pending[id] != ChangeDelete {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Dirty reports whether changes are staged or elements are left unbound
// by a failed compile.
func (r *Runtime) Dirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending) > 0 || len(r.unbound()) > 0
}

// Stop makes the current and every later Compile end before its next
// element.
func (r *Runtime) Stop() { r.post.Stop() }

// Snapshot encodes the compiled graph canonically.
func (r *Runtime) Snapshot(ctx context.Context) ([]byte, error) {
	provider, err := r.ids.Provider(r.idVersion)
	if err != nil {
		return nil, err
	}
	return serialization.Snapshot(ctx, serialization.NewSerializer(r.support, provider))
}

// Compile applies the staged changes. Parse, bind and validation failures
// of every source are returned together as a cerrors.ErrorList; the bind
// is then rolled back and the affected elements stay unbound until a later
// Compile succeeds. Validation only runs when binding succeeded.
func (r *Runtime) Compile(ctx context.Context) (*CompilationMetrics, error) {
	r.compileMu.Lock()
	defer r.compileMu.Unlock()

	ctx, span := otel.Tracer("github.com/conduit-lang/metacore/runtime").Start(ctx, "compile")
	defer span.End()

	m := &CompilationMetrics{StartTime: time.Now()}
	err := r.compile(ctx, m)
	m.EndTime = time.Now()
	m.TotalDuration = m.EndTime.Sub(m.StartTime)
	m.Sources = len(r.Sources())

	span.SetAttributes(
		attribute.Int("metacore.sources.parsed", m.SourcesParsed),
		attribute.Int("metacore.elements.bound", m.ElementsBound),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compilation failed")
		r.logger.Info("compile failed", metricsField(m), zap.Error(err))
		return m, err
	}
	r.logger.Info("compile finished", metricsField(m))
	return m, nil
}

func (r *Runtime) compile(ctx context.Context, m *CompilationMetrics) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]ChangeKind)
	var reparse, deleted []*source
	for _, id := range sortedKeys(r.sources) {
		s := r.sources[id]
		kind, staged := pending[id]
		_, parsed := r.hashes.Get(id)
		switch {
		case staged && kind == ChangeDelete:
			deleted = append(deleted, s)
		case !parsed || r.hashes.Changed(id, s.content):
			reparse = append(reparse, s)
		case staged:
			m.SourcesUnchanged++
		}
	}
	r.mu.Unlock()

	outgoing := make(map[string]bool)
	var old []model.CoreInstance
	for _, s := range append(append([]*source(nil), reparse...), deleted...) {
		outgoing[s.id] = true
		old = append(old, s.elements...)
	}

	start := time.Now()
	toUnbind := append(append([]model.CoreInstance(nil), old...), r.dependents(old, outgoing)...)
	state, err := r.unbinder.Unbind(ctx, toUnbind)
	m.UnbindDuration = time.Since(start)
	m.ElementsUnbound = len(toUnbind)
	if state != nil {
		m.Suppressed = state.Suppressed
	}
	if err != nil {
		r.requeue(pending)
		return err
	}
	for _, element := range old {
		r.support.RemoveChild(element)
	}

	r.mu.Lock()
	for _, s := range deleted {
		delete(r.sources, s.id)
		r.hashes.Forget(s.id)
		r.deps.RemoveSource(s.id)
		m.SourcesDeleted++
	}
	for _, s := range reparse {
		s.elements = nil
	}
	r.mu.Unlock()

	var errs cerrors.ErrorList
	start = time.Now()
	for _, s := range reparse {
		result, err := r.parser.Parse(s.id, s.content)
		m.SourcesParsed++
		if err != nil {
			r.hashes.Forget(s.id)
			errs.Add(err)
			continue
		}
		r.mu.Lock()
		s.elements = result.Elements
		r.mu.Unlock()
		r.hashes.Record(s.id, s.content)
		r.deps.AddSource(s.id)
	}
	m.ParseDuration = time.Since(start)

	r.mu.RLock()
	toBind := r.unbound()
	r.mu.RUnlock()
	m.ElementsBound = len(toBind)
	if len(toBind) == 0 {
		errs.Sort()
		return errs.Err()
	}

	tx, err := r.repo.NewTransaction(true)
	if err != nil {
		return err
	}
	r.logger.Debug("binding", zap.Stringer("transaction", tx.ID()), zap.Int("elements", len(toBind)))

	start = time.Now()
	bindErr := r.post.Process(ctx, toBind)
	m.BindDuration = time.Since(start)
	if bindErr == nil {
		start = time.Now()
		bindErr = r.validator.Validate(ctx, toBind)
		m.ValidateDuration = time.Since(start)
	}
	var observerErr error
	if bindErr != nil {
		if _, ok := cerrors.AsCompilationError(bindErr); !ok {
			if rerr := tx.Rollback(); rerr != nil {
				return rerr
			}
			return bindErr
		}
		// Observer failures trail the compilation errors they accompany.
		parts := multierr.Errors(bindErr)
		errs.Add(parts[0])
		observerErr = multierr.Combine(parts[1:]...)
	}
	if len(errs) > 0 {
		if err := tx.Rollback(); err != nil {
			return err
		}
		m.ElementsBound = 0
		errs.Sort()
		if observerErr != nil {
			return multierr.Append(errs, observerErr)
		}
		return errs
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range sourcesOf(toBind) {
		if s, ok := r.sources[id]; ok {
			r.deps.BuildDependencies(r.support, id, s.elements)
		}
	}
	return nil
}

// dependents returns the elements outside the outgoing sources that refer
// to the old elements, found through back references and through the
// dependency graph.
func (r *Runtime) dependents(old []model.CoreInstance, outgoing map[string]bool) []model.CoreInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[model.CoreInstance]bool)
	var out []model.CoreInstance
	add := func(element model.CoreInstance) {
		if element != nil && !seen[element] {
			seen[element] = true
			out = append(out, element)
		}
	}
	for _, element := range old {
		for _, referrer := range cache.Referrers(r.support, element) {
			if id := referrer.SourceInformation().SourceID; !outgoing[id] {
				add(r.owningElement(id, referrer))
			}
		}
	}
	for _, id := range sortedKeys(outgoing) {
		for _, dependent := range r.deps.GetDependents(id) {
			s, ok := r.sources[dependent]
			if !ok || outgoing[dependent] {
				continue
			}
			for _, element := range s.elements {
				for _, target := range cache.References(r.support, element) {
					if outgoing[target] {
						add(element)
						break
					}
				}
			}
		}
	}
	return out
}

// owningElement finds the element of a source whose span encloses instance.
func (r *Runtime) owningElement(sourceID string, instance model.CoreInstance) model.CoreInstance {
	s, ok := r.sources[sourceID]
	if !ok {
		return nil
	}
	for _, element := range s.elements {
		if element == instance || element.SourceInformation().Subsumes(instance.SourceInformation()) {
			return element
		}
	}
	return nil
}

// unbound returns the elements of every source that are not processed.
// Callers hold r.mu.
func (r *Runtime) unbound() []model.CoreInstance {
	var out []model.CoreInstance
	for _, id := range sortedKeys(r.sources) {
		for _, element := range r.sources[id].elements {
			if !element.HasCompileState(model.Processed) {
				out = append(out, element)
			}
		}
	}
	return out
}

// requeue restores changes that an interrupted compile did not apply.
func (r *Runtime) requeue(pending map[string]ChangeKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, kind := range pending {
		if _, staged := r.pending[id]; !staged {
			r.pending[id] = kind
		}
	}
}

func sourcesOf(elements []model.CoreInstance) []string {
	ids := make(map[string]bool)
	for _, element := range elements {
		if source := element.SourceInformation(); source != nil {
			ids[source.SourceID] = true
		}
	}
	return sortedKeys(ids)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
