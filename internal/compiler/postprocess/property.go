package postprocess

import (
	"strings"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// abstractPropertyProcessor resolves the type of simple and qualified properties.
type abstractPropertyProcessor struct{}

func (abstractPropertyProcessor) ClassName() string { return metamodel.AbstractProperty }

func (abstractPropertyProcessor) Process(property model.CoreInstance, state *State, _ *Matcher) error {
	_, err := resolveType(state.support, property.ValueToOne(metamodel.PropGenericType))
	return err
}

func (abstractPropertyProcessor) PopulateReferenceUsages(property model.CoreInstance, state *State) error {
	addRawTypeUsage(state.support, property.ValueToOne(metamodel.PropGenericType))
	return nil
}

// qualifiedPropertyProcessor binds parameters and body and assigns the signature id.
type qualifiedPropertyProcessor struct{}

func (qualifiedPropertyProcessor) ClassName() string { return metamodel.QualifiedProperty }

func (qualifiedPropertyProcessor) Process(property model.CoreInstance, state *State, m *Matcher) error {
	support := state.support
	parameters := property.ValuesToMany(metamodel.PropParameters)
	for _, parameter := range parameters {
		if _, err := resolveType(support, parameter.ValueToOne(metamodel.PropGenericType)); err != nil {
			return err
		}
	}

	body := property.ValuesToMany(metamodel.PropExpressionSequence)
	if len(body) > 0 {
		vars := NewVariableContext(state.vars)
		if owner := property.ValueToOne(metamodel.PropOwner); owner != nil && support.IsClass(owner) {
			vars.Set("this", owner, support.Metamodel().SharedMultiplicity(1, 1))
		}
		declareParameters(support, vars, parameters)
		if err := processBody(body, vars, state, m); err != nil {
			return err
		}
	}

	id := QualifiedPropertyID(support, property)
	property.SetKeyValues(metamodel.KeyQualifiedID, []model.CoreInstance{support.Repository().NewString(id)})
	return nil
}

func (qualifiedPropertyProcessor) PopulateReferenceUsages(property model.CoreInstance, state *State) error {
	for _, parameter := range property.ValuesToMany(metamodel.PropParameters) {
		addRawTypeUsage(state.support, parameter.ValueToOne(metamodel.PropGenericType))
	}
	return nil
}

// QualifiedPropertyID renders name(T1[m1],T2[m2]) from the declared parameters.
func QualifiedPropertyID(support *navigation.Support, property model.CoreInstance) string {
	parameters := property.ValuesToMany(metamodel.PropParameters)
	signatures := make([]string, len(parameters))
	for i, parameter := range parameters {
		signatures[i] = support.TypeSignature(parameter.ValueToOne(metamodel.PropGenericType), parameter.ValueToOne(metamodel.PropMultiplicity))
	}
	return navigation.StringValue(property, metamodel.PropName) + "(" + strings.Join(signatures, ",") + ")"
}
