// Package reference computes and resolves reference ids: strings that
// identify instances of a compiled graph independently of the process.
// Id schemes are versioned extensions selected through ReferenceIDs.
package reference

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Provider computes reference ids.
type Provider interface {
	Version() int
	HasReferenceID(instance model.CoreInstance) bool
	// ReferenceID returns the id of instance or a *ProvisionError.
	ReferenceID(instance model.CoreInstance) (string, error)
}

// Resolver finds the instance a reference id denotes. It returns an
// *InvalidIDError for malformed ids and an *UnresolvableIDError for ids
// that denote nothing.
type Resolver interface {
	Version() int
	ResolveReference(id string) (model.CoreInstance, error)
}

// Extension is one version of the reference id scheme.
type Extension interface {
	Version() int
	NewProvider(support *navigation.Support) Provider
	NewResolver(support *navigation.Support) Resolver
}

type entry struct {
	ext Extension

	providerOnce sync.Once
	provider     Provider
	resolverOnce sync.Once
	resolver     Resolver
}

// registry finds the entry of a version.
type registry interface {
	get(version int) *entry
	strategy() string
}

type singleRegistry struct {
	version int
	entry   *entry
}

func (r *singleRegistry) get(version int) *entry {
	if version == r.version {
		return r.entry
	}
	return nil
}

func (r *singleRegistry) strategy() string { return "single" }

type contiguousRegistry struct {
	min     int
	entries []*entry
}

func (r *contiguousRegistry) get(version int) *entry {
	i := version - r.min
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return r.entries[i]
}

func (r *contiguousRegistry) strategy() string { return "contiguous" }

type sparseRegistry map[int]*entry

func (r sparseRegistry) get(version int) *entry { return r[version] }
func (r sparseRegistry) strategy() string       { return "sparse" }

// ReferenceIDs holds the registered extensions of a graph. Providers and
// resolvers are created on first use and cached per version.
type ReferenceIDs struct {
	support  *navigation.Support
	versions []int
	registry registry
}

// NewReferenceIDs registers extensions. Versions must be unique.
func NewReferenceIDs(support *navigation.Support, extensions ...Extension) (*ReferenceIDs, error) {
	if len(extensions) == 0 {
		return nil, errors.New("no reference id extensions")
	}
	byVersion := make(map[int]*entry, len(extensions))
	versions := make([]int, 0, len(extensions))
	for _, ext := range extensions {
		v := ext.Version()
		if _, dup := byVersion[v]; dup {
			return nil, fmt.Errorf("reference id version %d registered twice", v)
		}
		byVersion[v] = &entry{ext: ext}
		versions = append(versions, v)
	}
	sort.Ints(versions)

	ids := &ReferenceIDs{support: support, versions: versions}
	lo, hi := versions[0], versions[len(versions)-1]
	switch {
	case len(versions) == 1:
		ids.registry = &singleRegistry{version: lo, entry: byVersion[lo]}
	case hi-lo+1 == len(versions):
		entries := make([]*entry, len(versions))
		for i, v := range versions {
			entries[i] = byVersion[v]
		}
		ids.registry = &contiguousRegistry{min: lo, entries: entries}
	default:
		ids.registry = sparseRegistry(byVersion)
	}
	return ids, nil
}

// Versions returns the registered versions in ascending order.
func (r *ReferenceIDs) Versions() []int { return append([]int(nil), r.versions...) }

// DefaultVersion is the highest registered version.
func (r *ReferenceIDs) DefaultVersion() int { return r.versions[len(r.versions)-1] }

// Strategy names the registry layout: single, contiguous or sparse.
func (r *ReferenceIDs) Strategy() string { return r.registry.strategy() }

func (r *ReferenceIDs) entry(version int) (*entry, error) {
	e := r.registry.get(version)
	if e == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	return e, nil
}

// Provider returns the provider of a version.
func (r *ReferenceIDs) Provider(version int) (Provider, error) {
	e, err := r.entry(version)
	if err != nil {
		return nil, err
	}
	e.providerOnce.Do(func() { e.provider = e.ext.NewProvider(r.support) })
	return e.provider, nil
}

// Resolver returns the resolver of a version.
func (r *ReferenceIDs) Resolver(version int) (Resolver, error) {
	e, err := r.entry(version)
	if err != nil {
		return nil, err
	}
	e.resolverOnce.Do(func() { e.resolver = e.ext.NewResolver(r.support) })
	return e.resolver, nil
}
