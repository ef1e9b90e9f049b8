package unbind

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

type functionUnbinder struct{}

func (functionUnbinder) ClassName() string { return metamodel.ConcreteFunctionDefinition }

func (functionUnbinder) Unbind(function model.CoreInstance, state *State, _ *Matcher) error {
	for _, expression := range function.ValuesToMany(metamodel.PropExpressionSequence) {
		unbindExpression(expression, state)
	}
	for _, parameter := range function.ValuesToMany(metamodel.PropParameters) {
		removeRawTypeUsage(state, parameter.ValueToOne(metamodel.PropGenericType))
	}
	removeRawTypeUsage(state, function.ValueToOne(metamodel.PropReturnType))
	return nil
}

// unbindExpression removes the property a property access resolved to,
// its usage, enum stub resolutions and the inferred type and multiplicity.
func unbindExpression(expression model.CoreInstance, state *State) {
	if expression == nil {
		return
	}
	support := state.support
	switch {
	case support.ClassifierIs(expression, metamodel.SimpleFunctionExpression):
		if property := expression.ValueToOne(metamodel.PropFunc); property != nil {
			support.RemoveReferenceUsage(property, expression, metamodel.PropFunc, 0)
			expression.RemoveProperty(metamodel.PropFunc)
		}
		for _, parameter := range expression.ValuesToMany(metamodel.PropParametersValues) {
			unbindExpression(parameter, state)
		}
	case support.ClassifierIs(expression, metamodel.InstanceValue):
		for _, value := range expression.ValuesToMany(metamodel.PropValues) {
			support.CleanStub(value)
		}
	case !support.ClassifierIs(expression, metamodel.VariableExpression):
		return
	}
	expression.RemoveProperty(metamodel.PropGenericType)
	expression.RemoveProperty(metamodel.PropMultiplicity)
}
