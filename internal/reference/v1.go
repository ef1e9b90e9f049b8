package reference

import (
	"fmt"
	"sort"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// V1 identifies packageable elements by their path and every other
// instance by the shortest graph path from the element that owns it, e.g.
// my::Person.properties['name'].genericType. An element owns the instances
// whose source lies within its own and that are reachable from it without
// crossing reference or back-reference properties.
type V1 struct{}

func (V1) Version() int { return 1 }

func (V1) NewProvider(support *navigation.Support) Provider { return &v1Provider{support: support} }

func (V1) NewResolver(support *navigation.Support) Resolver { return &v1Resolver{support: support} }

type v1Provider struct {
	support *navigation.Support
}

func (p *v1Provider) Version() int { return 1 }

func (p *v1Provider) HasReferenceID(instance model.CoreInstance) bool {
	_, err := p.ReferenceID(instance)
	return err == nil
}

func (p *v1Provider) ReferenceID(instance model.CoreInstance) (string, error) {
	switch {
	case instance == nil:
		return "", &ProvisionError{Instance: "<nil>", Reason: "no instance"}
	case isPrimitive(instance):
		return "", &ProvisionError{Instance: instance.Name(), Reason: "primitive values are written inline"}
	case p.support.IsPackageable(instance):
		return p.support.UserPath(instance), nil
	}
	owner := OwningElement(p.support, instance)
	if owner == nil {
		return "", &ProvisionError{Instance: describe(instance), Reason: "no element owns it"}
	}
	if id, ok := ElementPaths(p.support, owner)[instance]; ok {
		return id, nil
	}
	return "", &ProvisionError{Instance: describe(instance), Reason: fmt.Sprintf("not reachable from %s", p.support.UserPath(owner))}
}

// OwningElement finds the packageable element whose source encloses the
// source of instance, or nil.
func OwningElement(support *navigation.Support, instance model.CoreInstance) model.CoreInstance {
	source := instance.SourceInformation()
	if source == nil {
		return nil
	}
	for _, element := range support.Elements() {
		if element != instance && element.SourceInformation().Subsumes(source) {
			return element
		}
	}
	return nil
}

// ElementPaths returns the v1 id of element and of every instance it owns.
func ElementPaths(support *navigation.Support, element model.CoreInstance) map[model.CoreInstance]string {
	root := support.UserPath(element)
	ids := map[model.CoreInstance]string{element: root}
	scope := element.SourceInformation()
	if scope == nil {
		return ids
	}
	queue := []model.CoreInstance{element}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range ownedEdges(support, node) {
			if _, seen := ids[e.target]; seen || !scope.Subsumes(e.target.SourceInformation()) {
				continue
			}
			ids[e.target] = ids[node] + e.segment.String()
			queue = append(queue, e.target)
		}
	}
	return ids
}

type edge struct {
	kind    int
	segment Segment
	target  model.CoreInstance
}

const (
	edgeToOne = iota
	edgeKeyed
	edgeIndexed
)

// ownedEdges lists the edges from node that may lead to owned instances,
// to-one edges first, then keyed, then indexed, each by property name.
func ownedEdges(support *navigation.Support, node model.CoreInstance) []edge {
	var edges []edge
	for _, prop := range node.Keys() {
		if metamodel.BackReferenceProperties[prop] || metamodel.ReferenceProperties[prop] {
			continue
		}
		values := node.ValuesToMany(prop)
		if len(values) == 1 && support.IsToOne(node, prop) {
			if followable(support, values[0]) {
				edges = append(edges, edge{kind: edgeToOne, segment: Segment{Property: prop}, target: values[0]})
			}
			continue
		}
		for i, v := range values {
			if !followable(support, v) {
				continue
			}
			if key := keyOf(v); key != "" && len(childrenByKey(values, key)) == 1 {
				edges = append(edges, edge{kind: edgeKeyed, segment: Segment{Property: prop, Key: key, Keyed: true}, target: v})
			} else {
				edges = append(edges, edge{kind: edgeIndexed, segment: Segment{Property: prop, Index: i, Indexed: true}, target: v})
			}
		}
	}
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].kind != edges[j].kind {
			return edges[i].kind < edges[j].kind
		}
		return edges[i].segment.Property < edges[j].segment.Property
	})
	return edges
}

func followable(support *navigation.Support, v model.CoreInstance) bool {
	return v != nil && !isPrimitive(v) && !support.IsPackageable(v)
}

// keyOf is the id of a child when it has one, else its name.
func keyOf(v model.CoreInstance) string {
	if id := navigation.StringValue(v, metamodel.PropID); id != "" {
		return id
	}
	return v.Name()
}

func childrenByKey(values []model.CoreInstance, key string) []model.CoreInstance {
	var out []model.CoreInstance
	for _, v := range values {
		if v != nil && !isPrimitive(v) && keyOf(v) == key {
			out = append(out, v)
		}
	}
	return out
}

func isPrimitive(v model.CoreInstance) bool {
	_, ok := v.Primitive()
	return ok
}

func describe(instance model.CoreInstance) string {
	name := instance.Name()
	if name == "" {
		name = "<anonymous>"
	}
	if c := instance.Classifier(); c != nil {
		return fmt.Sprintf("%s instance of %s", name, c.Name())
	}
	return name
}

type v1Resolver struct {
	support *navigation.Support
}

func (r *v1Resolver) Version() int { return 1 }

func (r *v1Resolver) ResolveReference(id string) (model.CoreInstance, error) {
	path, segments, err := ParsePath(id)
	if err != nil {
		return nil, err
	}
	current := r.support.PackageByUserPath(path)
	if current == nil {
		return nil, &UnresolvableIDError{ID: id, Reason: fmt.Sprintf("no element %s", path)}
	}
	for _, seg := range segments {
		values := current.ValuesToMany(seg.Property)
		switch {
		case seg.Keyed:
			matches := childrenByKey(values, seg.Key)
			if len(matches) != 1 {
				return nil, &UnresolvableIDError{ID: id, Reason: fmt.Sprintf("%d values with key '%s' in %s", len(matches), seg.Key, seg.Property)}
			}
			current = matches[0]
		case seg.Indexed:
			if seg.Index >= len(values) {
				return nil, &UnresolvableIDError{ID: id, Reason: fmt.Sprintf("index %d out of range for %s (%d values)", seg.Index, seg.Property, len(values))}
			}
			current = values[seg.Index]
		default:
			if len(values) != 1 {
				return nil, &UnresolvableIDError{ID: id, Reason: fmt.Sprintf("%s has %d values", seg.Property, len(values))}
			}
			current = values[0]
		}
	}
	return current, nil
}
