package unbind

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// typeUnbinder removes a type's generalizations from the specializations
// of their general types.
type typeUnbinder struct{}

func (typeUnbinder) ClassName() string { return metamodel.Type }

func (typeUnbinder) Unbind(typ model.CoreInstance, state *State, _ *Matcher) error {
	for _, generalization := range typ.ValuesToMany(metamodel.PropGeneralizations) {
		gt := generalization.ValueToOne(metamodel.PropGeneral)
		if general := rawType(state, gt); general != nil {
			general.RemoveValue(metamodel.PropSpecializations, generalization)
		}
		removeRawTypeUsage(state, gt)
	}
	return nil
}

// classUnbinder unbinds the properties of a class, then undoes milestoning.
type classUnbinder struct{}

func (classUnbinder) ClassName() string { return metamodel.Class }

func (classUnbinder) Unbind(class model.CoreInstance, state *State, m *Matcher) error {
	for _, prop := range []string{metamodel.PropProperties, metamodel.PropQualifiedProperties} {
		for _, property := range class.ValuesToMany(prop) {
			UnbindElement(m, property, state)
		}
	}
	return restoreMilestoned(class, state)
}

type enumerationUnbinder struct{}

func (enumerationUnbinder) ClassName() string { return metamodel.Enumeration }

func (enumerationUnbinder) Unbind(enumeration model.CoreInstance, state *State, m *Matcher) error {
	for _, value := range enumeration.ValuesToMany(metamodel.PropValues) {
		UnbindElement(m, value, state)
	}
	return nil
}
