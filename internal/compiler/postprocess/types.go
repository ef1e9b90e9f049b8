package postprocess

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// typeProcessor links generalizations to their general types.
type typeProcessor struct{}

func (typeProcessor) ClassName() string { return metamodel.Type }

func (typeProcessor) Process(typ model.CoreInstance, state *State, _ *Matcher) error {
	for _, generalization := range typ.ValuesToMany(metamodel.PropGeneralizations) {
		general, err := resolveType(state.support, generalization.ValueToOne(metamodel.PropGeneral))
		if err != nil {
			return err
		}
		if general != nil {
			general.AddKeyValue(metamodel.KeySpecializations, generalization)
		}
	}
	return nil
}

func (typeProcessor) PopulateReferenceUsages(typ model.CoreInstance, state *State) error {
	for _, generalization := range typ.ValuesToMany(metamodel.PropGeneralizations) {
		addRawTypeUsage(state.support, generalization.ValueToOne(metamodel.PropGeneral))
	}
	return nil
}

// classProcessor applies milestoning and binds the properties of a class.
type classProcessor struct{}

func (classProcessor) ClassName() string { return metamodel.Class }

func (classProcessor) Process(class model.CoreInstance, state *State, m *Matcher) error {
	if err := milestoneClass(class, state); err != nil {
		return err
	}
	for _, prop := range []string{metamodel.PropProperties, metamodel.PropQualifiedProperties} {
		for _, property := range class.ValuesToMany(prop) {
			setOwner(property, class)
			if err := ProcessElement(m, property, state); err != nil {
				return err
			}
		}
	}
	return nil
}

func (classProcessor) PopulateReferenceUsages(model.CoreInstance, *State) error { return nil }

// enumerationProcessor binds enum values.
type enumerationProcessor struct{}

func (enumerationProcessor) ClassName() string { return metamodel.Enumeration }

func (enumerationProcessor) Process(enumeration model.CoreInstance, state *State, m *Matcher) error {
	for _, value := range enumeration.ValuesToMany(metamodel.PropValues) {
		if err := ProcessElement(m, value, state); err != nil {
			return err
		}
	}
	return nil
}

func (enumerationProcessor) PopulateReferenceUsages(model.CoreInstance, *State) error { return nil }
