package serialization

import (
	"context"
	"fmt"
	"sort"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
	"github.com/conduit-lang/metacore/internal/reference"
	"github.com/conduit-lang/metacore/internal/store"
)

// Serializer turns the user elements of a graph into ElementData.
// Packages and platform elements are not serialized: packages are
// recreated from element paths and the platform is bootstrapped.
type Serializer struct {
	support  *navigation.Support
	provider reference.Provider
}

// NewSerializer creates a serializer using provider for values owned by
// elements that are not serialized.
func NewSerializer(support *navigation.Support, provider reference.Provider) *Serializer {
	return &Serializer{support: support, provider: provider}
}

// Serializable reports whether an element is written by Serialize.
func Serializable(support *navigation.Support, element model.CoreInstance) bool {
	return !support.ClassifierIs(element, metamodel.Package) && !metamodel.IsPlatform(element) &&
		element.SourceInformation() != nil
}

type graphIndex struct {
	ids     map[model.CoreInstance]string
	element map[model.CoreInstance]string
	owned   map[string][]model.CoreInstance
}

// Serialize returns the data of every serializable element sorted by path.
func (s *Serializer) Serialize(ctx context.Context) ([]*ElementData, error) {
	var elements []model.CoreInstance
	idx := graphIndex{
		ids:     map[model.CoreInstance]string{},
		element: map[model.CoreInstance]string{},
		owned:   map[string][]model.CoreInstance{},
	}
	var targets []model.CoreInstance
	for _, element := range s.support.Elements() {
		paths := reference.ElementPaths(s.support, element)
		serializable := Serializable(s.support, element)
		if serializable {
			elements = append(elements, element)
		}
		for inst, id := range paths {
			if _, seen := idx.ids[inst]; seen {
				continue
			}
			idx.ids[inst] = id
			if serializable {
				idx.element[inst] = paths[element]
				idx.owned[paths[element]] = append(idx.owned[paths[element]], inst)
			}
			targets = append(targets, inst)
		}
	}

	byPath := make(map[string]*ElementData, len(elements))
	out := make([]*ElementData, 0, len(elements))
	for _, element := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.element(element, idx)
		if err != nil {
			return nil, err
		}
		byPath[data.Path] = data
		out = append(out, data)
	}

	// deterministic target order keeps back references in bind order per target
	sort.Slice(targets, func(i, j int) bool { return idx.ids[targets[i]] < idx.ids[targets[j]] })
	for _, target := range targets {
		s.backReferences(target, idx, byPath)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Serializer) element(element model.CoreInstance, idx graphIndex) (*ElementData, error) {
	path := s.support.UserPath(element)
	classifier, err := s.ref(element.Classifier(), idx)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", path, err)
	}
	data := &ElementData{Path: path, Classifier: classifier}

	owned := idx.owned[path]
	sort.Slice(owned, func(i, j int) bool { return idx.ids[owned[i]] < idx.ids[owned[j]] })
	for _, inst := range owned {
		instance, err := s.instance(inst, idx)
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", path, err)
		}
		data.Instances = append(data.Instances, instance)
	}
	return data, nil
}

func (s *Serializer) instance(inst model.CoreInstance, idx graphIndex) (InstanceData, error) {
	data := InstanceData{
		ReferenceID:   idx.ids[inst],
		Name:          inst.Name(),
		Source:        inst.SourceInformation(),
		CompileStates: inst.CompileStates(),
	}
	classifier, err := s.ref(inst.Classifier(), idx)
	if err != nil {
		return data, err
	}
	data.Classifier = classifier

	for _, name := range inst.Keys() {
		if metamodel.BackReferenceProperties[name] || name == metamodel.PropPackage || name == metamodel.PropChildren {
			continue
		}
		prop := PropertyData{Key: inst.RealKey(name), Values: []Value{}}
		for _, v := range inst.ValuesToMany(name) {
			value, err := s.value(v, idx)
			if err != nil {
				return data, fmt.Errorf("%s.%s: %w", data.ReferenceID, name, err)
			}
			prop.Values = append(prop.Values, value)
		}
		data.Properties = append(data.Properties, prop)
	}
	return data, nil
}

func (s *Serializer) value(v model.CoreInstance, idx graphIndex) (Value, error) {
	if _, ok := v.Primitive(); ok {
		return primitiveValue(v), nil
	}
	ref, err := s.ref(v, idx)
	return Value{Ref: ref}, err
}

func (s *Serializer) ref(v model.CoreInstance, idx graphIndex) (string, error) {
	if id, ok := idx.ids[v]; ok {
		return id, nil
	}
	return s.provider.ReferenceID(v)
}

// backReferences records the back references of target on the elements
// of their referrers. Edges between platform instances are skipped; the
// platform recreates them.
func (s *Serializer) backReferences(target model.CoreInstance, idx graphIndex, byPath map[string]*ElementData) {
	for _, prop := range target.Keys() {
		if !metamodel.BackReferenceProperties[prop] {
			continue
		}
		for _, v := range target.ValuesToMany(prop) {
			ref := BackReference{Target: idx.ids[target], Property: prop}
			referrer := v
			if prop == metamodel.PropReferenceUsages {
				referrer = v.ValueToOne(metamodel.PropOwner)
				ref.UsageProperty = navigation.StringValue(v, metamodel.PropPropertyName)
				offset, _ := navigation.IntValue(v, metamodel.PropOffset)
				ref.Offset = int(offset)
			}
			owner, ok := idx.element[referrer]
			if !ok {
				continue
			}
			ref.Referrer = idx.ids[referrer]
			data := byPath[owner]
			data.BackReferences = append(data.BackReferences, ref)
		}
	}
}

// Records encodes elements as store records.
func Records(elements []*ElementData) ([]store.Record, error) {
	records := make([]store.Record, 0, len(elements))
	for _, e := range elements {
		r, err := EncodeRecord(e)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Save serializes the graph and makes s hold exactly its elements.
func Save(ctx context.Context, s store.Store, serializer *Serializer) ([]*ElementData, error) {
	elements, err := serializer.Serialize(ctx)
	if err != nil {
		return nil, err
	}
	records, err := Records(elements)
	if err != nil {
		return nil, err
	}
	if err := store.Replace(ctx, s, records); err != nil {
		return nil, fmt.Errorf("save graph: %w", err)
	}
	return elements, nil
}
