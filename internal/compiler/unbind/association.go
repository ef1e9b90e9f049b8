package unbind

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// associationUnbinder withdraws the association's properties from the
// classes at both ends, then undoes milestoning.
type associationUnbinder struct{}

func (associationUnbinder) ClassName() string { return metamodel.Association }

func (associationUnbinder) Unbind(association model.CoreInstance, state *State, m *Matcher) error {
	properties := association.ValuesToMany(metamodel.PropProperties)
	qualified := association.ValuesToMany(metamodel.PropQualifiedProperties)

	// Ends are read before the properties are unbound, which cleans their type stubs.
	for _, property := range properties {
		end := rawType(state, property.ValueToOne(metamodel.PropGenericType))
		if end == nil || !state.support.IsClass(end) {
			continue
		}
		for _, p := range properties {
			end.RemoveValue(metamodel.PropPropertiesFromAssociations, p)
		}
		for _, q := range qualified {
			end.RemoveValue(metamodel.PropQualifiedPropertiesFromAssociations, q)
		}
	}

	for _, property := range properties {
		UnbindElement(m, property, state)
	}
	for _, q := range qualified {
		UnbindElement(m, q, state)
	}
	return restoreMilestoned(association, state)
}
