package cache

import (
	"sort"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
	"github.com/conduit-lang/metacore/internal/reference"
)

// References returns the sources, other than its own, that the instances
// owned by element point to, sorted. Platform instances belong to no source.
func References(support *navigation.Support, element model.CoreInstance) []string {
	own := sourceID(element)
	seen := make(map[string]bool)
	note := func(target model.CoreInstance) {
		if id := sourceID(target); id != "" && id != own && !metamodel.IsPlatform(target) {
			seen[id] = true
		}
	}
	for inst := range reference.ElementPaths(support, element) {
		if c := inst.Classifier(); c != nil {
			note(c)
		}
		for _, prop := range inst.Keys() {
			if metamodel.BackReferenceProperties[prop] || prop == metamodel.PropPackage || prop == metamodel.PropChildren {
				continue
			}
			for _, v := range inst.ValuesToMany(prop) {
				if _, ok := v.Primitive(); !ok {
					note(v)
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// BuildDependencies replaces the dependencies of a source with the
// references of its elements.
func (dg *DependencyGraph) BuildDependencies(support *navigation.Support, sourceID string, elements []model.CoreInstance) {
	targets := make(map[string]bool)
	for _, element := range elements {
		for _, id := range References(support, element) {
			targets[id] = true
		}
	}
	list := make([]string, 0, len(targets))
	for id := range targets {
		list = append(list, id)
	}
	dg.SetDependencies(sourceID, list)
}

// Referrers returns the instances holding a back reference into element:
// the values of the back-reference properties of everything element owns,
// with reference usages replaced by their owners. Platform referrers are
// left out.
func Referrers(support *navigation.Support, element model.CoreInstance) []model.CoreInstance {
	var out []model.CoreInstance
	seen := make(map[model.CoreInstance]bool)
	for inst := range reference.ElementPaths(support, element) {
		for _, prop := range inst.Keys() {
			if !metamodel.BackReferenceProperties[prop] {
				continue
			}
			for _, v := range inst.ValuesToMany(prop) {
				referrer := v
				if prop == metamodel.PropReferenceUsages {
					referrer = v.ValueToOne(metamodel.PropOwner)
				}
				if referrer == nil || seen[referrer] || sourceID(referrer) == "" || metamodel.IsPlatform(referrer) {
					continue
				}
				seen[referrer] = true
				out = append(out, referrer)
			}
		}
	}
	return out
}

func sourceID(instance model.CoreInstance) string {
	if source := instance.SourceInformation(); source != nil {
		return source.SourceID
	}
	return ""
}
