package unbind

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// abstractPropertyUnbinder drops the owner and the type usage of a property.
type abstractPropertyUnbinder struct{}

func (abstractPropertyUnbinder) ClassName() string { return metamodel.AbstractProperty }

func (abstractPropertyUnbinder) Unbind(property model.CoreInstance, state *State, _ *Matcher) error {
	removeRawTypeUsage(state, property.ValueToOne(metamodel.PropGenericType))
	property.RemoveProperty(metamodel.PropOwner)
	return nil
}

// qualifiedPropertyUnbinder drops the signature id, parameter usages and
// what bind inferred for the body.
type qualifiedPropertyUnbinder struct{}

func (qualifiedPropertyUnbinder) ClassName() string { return metamodel.QualifiedProperty }

func (qualifiedPropertyUnbinder) Unbind(property model.CoreInstance, state *State, _ *Matcher) error {
	property.RemoveProperty(metamodel.PropID)
	for _, parameter := range property.ValuesToMany(metamodel.PropParameters) {
		removeRawTypeUsage(state, parameter.ValueToOne(metamodel.PropGenericType))
	}
	for _, expression := range property.ValuesToMany(metamodel.PropExpressionSequence) {
		unbindExpression(expression, state)
	}
	return nil
}
