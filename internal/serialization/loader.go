package serialization

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
	"github.com/conduit-lang/metacore/internal/reference"
	"github.com/conduit-lang/metacore/internal/store"
)

// Loader reconstitutes a stored graph into a bootstrapped repository.
//
// Open registers an empty shell for every stored element in its package.
// An element is materialized on first use, when one of its instances is
// resolved or Element is called: its instances are created and each
// property becomes a lazy cell that resolves its reference ids on first
// access. Back references are installed the same way on their targets.
type Loader struct {
	store    store.Store
	support  *navigation.Support
	resolver reference.Resolver
	logger   *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	shells   map[string]model.CoreInstance
	loaded   map[string]map[string]model.CoreInstance
	incoming map[string][]BackReference
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithResolver sets the resolver used for ids of instances that are not
// stored, such as platform instances.
func WithResolver(resolver reference.Resolver) LoaderOption {
	return func(l *Loader) { l.resolver = resolver }
}

// NewLoader creates a loader reading s into the repository of support,
// which must not contain the stored elements yet.
func NewLoader(s store.Store, support *navigation.Support, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:    s,
		support:  support,
		logger:   zap.NewNop(),
		shells:   make(map[string]model.CoreInstance),
		loaded:   make(map[string]map[string]model.CoreInstance),
		incoming: make(map[string][]BackReference),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.resolver == nil {
		l.resolver = reference.V1{}.NewResolver(support)
	}
	return l
}

// Open registers the stored elements and the back references that target
// instances outside the store.
func (l *Loader) Open(ctx context.Context) error {
	index, err := l.store.Index(ctx)
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	repo := l.support.Repository()
	meta := l.support.Metamodel()
	for _, r := range index {
		classifier := l.platform(r.Classifier)
		if classifier == nil {
			return fmt.Errorf("element %s: unknown classifier %s", r.Path, r.Classifier)
		}
		if existing := l.support.PackageByUserPath(r.Path); existing != nil {
			return fmt.Errorf("element %s already exists", r.Path)
		}
		pkgPath, name := metamodel.SplitPath(r.Path)
		shell := repo.NewInstance(name, classifier, nil)
		pkg, _ := meta.EnsurePackage(pkgPath)
		l.support.AddChild(pkg, shell)
		l.shells[r.Path] = shell
	}

	external := map[string][]BackReference{}
	var order []string
	for _, r := range index {
		refs, err := DecodeBackReferences(r)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			element, _, err := reference.ParsePath(ref.Target)
			if err != nil {
				return err
			}
			if _, stored := l.shells[element]; stored {
				l.incoming[element] = append(l.incoming[element], ref)
				continue
			}
			if _, seen := external[ref.Target]; !seen {
				order = append(order, ref.Target)
			}
			external[ref.Target] = append(external[ref.Target], ref)
		}
	}
	for _, target := range order {
		inst, err := l.resolver.ResolveReference(target)
		if err != nil {
			return fmt.Errorf("back reference target: %w", err)
		}
		l.installBackReferences(inst, external[target])
	}
	l.logger.Debug("graph opened", zap.Int("elements", len(index)), zap.Int("externalTargets", len(order)))
	return nil
}

// Paths returns the paths of the stored elements.
func (l *Loader) Paths() []string {
	out := make([]string, 0, len(l.shells))
	for p := range l.shells {
		out = append(out, p)
	}
	return out
}

// IsLoaded reports whether the element at path has been materialized.
func (l *Loader) IsLoaded(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.loaded[path]
	return ok
}

// Element materializes the element at path and returns it.
func (l *Loader) Element(ctx context.Context, path string) (model.CoreInstance, error) {
	if _, err := l.materialize(ctx, path); err != nil {
		return nil, err
	}
	return l.shells[path], nil
}

// Resolve returns the instance with the given reference id.
func (l *Loader) Resolve(ctx context.Context, id string) (model.CoreInstance, error) {
	element, segments, err := reference.ParsePath(id)
	if err != nil {
		return nil, err
	}
	shell, stored := l.shells[element]
	if !stored {
		return l.resolver.ResolveReference(id)
	}
	if len(segments) == 0 {
		return shell, nil
	}
	instances, err := l.materialize(ctx, element)
	if err != nil {
		return nil, err
	}
	inst, ok := instances[id]
	if !ok {
		return nil, &reference.UnresolvableIDError{ID: id, Reason: "not stored with " + element}
	}
	return inst, nil
}

func (l *Loader) materialize(ctx context.Context, path string) (map[string]model.CoreInstance, error) {
	l.mu.RLock()
	instances, ok := l.loaded[path]
	l.mu.RUnlock()
	if ok {
		return instances, nil
	}
	if _, stored := l.shells[path]; !stored {
		return nil, fmt.Errorf("element %s: %w", path, store.ErrNotFound)
	}

	v, err, _ := l.group.Do(path, func() (any, error) {
		l.mu.RLock()
		instances, ok := l.loaded[path]
		l.mu.RUnlock()
		if ok {
			return instances, nil
		}
		instances, err := l.load(ctx, path)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded[path] = instances
		l.mu.Unlock()
		return instances, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]model.CoreInstance), nil
}

func (l *Loader) load(ctx context.Context, path string) (map[string]model.CoreInstance, error) {
	record, err := l.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	data, err := DecodeRecord(record)
	if err != nil {
		return nil, err
	}

	repo := l.support.Repository()
	instances := make(map[string]model.CoreInstance, len(data.Instances))
	for _, d := range data.Instances {
		classifier, err := l.element(d.Classifier)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d.ReferenceID, err)
		}
		var inst model.CoreInstance
		if d.ReferenceID == path {
			inst = l.shells[path]
			inst.SetName(d.Name)
			inst.SetClassifier(classifier)
			inst.SetSourceInformation(d.Source)
		} else {
			inst = repo.NewInstance(d.Name, classifier, d.Source)
		}
		if d.CompileStates != 0 {
			inst.AddCompileState(d.CompileStates)
		}
		instances[d.ReferenceID] = inst
	}

	for _, d := range data.Instances {
		inst := instances[d.ReferenceID]
		for _, prop := range d.Properties {
			values := prop.Values
			if len(values) == 0 {
				inst.AddKeyWithEmptyList(prop.Key)
				continue
			}
			inst.SetLazyValues(prop.Key, func() ([]model.CoreInstance, error) {
				return l.values(instances, values)
			})
		}
	}

	byTarget := map[string][]BackReference{}
	var order []string
	for _, ref := range l.incoming[path] {
		if _, seen := byTarget[ref.Target]; !seen {
			order = append(order, ref.Target)
		}
		byTarget[ref.Target] = append(byTarget[ref.Target], ref)
	}
	for _, target := range order {
		inst, ok := instances[target]
		if !ok {
			return nil, &reference.UnresolvableIDError{ID: target, Reason: "back reference target not stored with " + path}
		}
		l.installBackReferences(inst, byTarget[target])
	}

	l.logger.Debug("element loaded", zap.String("element", path), zap.Int("instances", len(instances)))
	return instances, nil
}

// element finds a packageable element by path without materializing it.
func (l *Loader) element(path string) (model.CoreInstance, error) {
	if shell, ok := l.shells[path]; ok {
		return shell, nil
	}
	if inst := l.platform(path); inst != nil {
		return inst, nil
	}
	return nil, &reference.UnresolvableIDError{ID: path, Reason: "unknown element"}
}

func (l *Loader) platform(path string) model.CoreInstance {
	if class := l.support.Class(path); class != nil {
		return class
	}
	return l.support.PackageByUserPath(path)
}

// values resolves serialized values; ids local to the element being
// loaded are looked up directly.
func (l *Loader) values(local map[string]model.CoreInstance, values []Value) ([]model.CoreInstance, error) {
	repo := l.support.Repository()
	out := make([]model.CoreInstance, 0, len(values))
	for _, v := range values {
		if v.IsPrimitive() {
			lit, err := v.literal()
			if err != nil {
				return nil, fmt.Errorf("literal %s: %w", v, err)
			}
			out = append(out, repo.NewPrimitive(lit, v.Type))
			continue
		}
		if inst, ok := local[v.Ref]; ok {
			out = append(out, inst)
			continue
		}
		inst, err := l.Resolve(context.Background(), v.Ref)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// installBackReferences adds refs to target as lazy properties, after any
// values the target already has.
func (l *Loader) installBackReferences(target model.CoreInstance, refs []BackReference) {
	byProperty := map[string][]BackReference{}
	var order []string
	for _, ref := range refs {
		if _, seen := byProperty[ref.Property]; !seen {
			order = append(order, ref.Property)
		}
		byProperty[ref.Property] = append(byProperty[ref.Property], ref)
	}
	for _, prop := range order {
		key := l.support.RealKey(target, prop)
		if key == nil {
			key = []string{prop}
		}
		existing := append([]model.CoreInstance(nil), target.ValuesToMany(prop)...)
		pending := byProperty[prop]
		target.SetLazyValues(key, func() ([]model.CoreInstance, error) {
			values := existing
			for _, ref := range pending {
				v, err := l.backReferenceValue(ref)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			return values, nil
		})
	}
}

func (l *Loader) backReferenceValue(ref BackReference) (model.CoreInstance, error) {
	referrer, err := l.Resolve(context.Background(), ref.Referrer)
	if err != nil {
		return nil, err
	}
	if ref.Property != metamodel.PropReferenceUsages {
		return referrer, nil
	}
	repo := l.support.Repository()
	usage := repo.NewAnonymousInstance(l.support.Class(metamodel.ReferenceUsage), nil)
	usage.SetKeyValues(metamodel.KeyUsageOwner, []model.CoreInstance{referrer})
	usage.SetKeyValues(metamodel.KeyUsagePropertyName, []model.CoreInstance{repo.NewString(ref.UsageProperty)})
	usage.SetKeyValues(metamodel.KeyUsageOffset, []model.CoreInstance{repo.NewInteger(int64(ref.Offset))})
	return usage, nil
}

// LoadAll materializes every stored element using up to concurrency
// goroutines.
func (l *Loader) LoadAll(ctx context.Context, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for path := range l.shells {
		path := path
		g.Go(func() error {
			_, err := l.materialize(ctx, path)
			return err
		})
	}
	return g.Wait()
}

// Warm materializes every element and then every property of every
// loaded instance, returning the first supplier error.
func (l *Loader) Warm(ctx context.Context, concurrency int) error {
	if err := l.LoadAll(ctx, concurrency); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	l.mu.RLock()
	var all []model.CoreInstance
	for _, instances := range l.loaded {
		for _, inst := range instances {
			all = append(all, inst)
		}
	}
	l.mu.RUnlock()
	for _, inst := range all {
		inst := inst
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			state := inst.CommittedState()
			for _, key := range state.Keys() {
				if _, err := state.Load(key); err != nil {
					return fmt.Errorf("warm %s: %w", inst, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
