package postprocess

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Variable is an entry of a VariableContext.
type Variable struct {
	Type         model.CoreInstance
	Multiplicity model.CoreInstance
}

// VariableContext scopes the variables visible to an expression.
type VariableContext struct {
	parent *VariableContext
	vars   map[string]Variable
}

// NewVariableContext creates a scope nested in parent, which may be nil.
func NewVariableContext(parent *VariableContext) *VariableContext {
	return &VariableContext{parent: parent, vars: make(map[string]Variable)}
}

// Set declares a variable of the given raw type in this scope.
func (c *VariableContext) Set(name string, typ, multiplicity model.CoreInstance) {
	c.vars[name] = Variable{Type: typ, Multiplicity: multiplicity}
}

// Lookup finds a variable in this scope or an enclosing one.
func (c *VariableContext) Lookup(name string) (Variable, bool) {
	for scope := c; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, true
		}
	}
	return Variable{}, false
}

func declareParameters(support *navigation.Support, vars *VariableContext, parameters []model.CoreInstance) {
	for _, parameter := range parameters {
		raw := support.WithImportStubByPassDoNotResolve(parameter.ValueToOne(metamodel.PropGenericType).ValueToOne(metamodel.PropRawType))
		vars.Set(navigation.StringValue(parameter, metamodel.PropName), raw, parameter.ValueToOne(metamodel.PropMultiplicity))
	}
}

// functionProcessor binds a concrete function definition.
type functionProcessor struct{}

func (functionProcessor) ClassName() string { return metamodel.ConcreteFunctionDefinition }

func (functionProcessor) Process(function model.CoreInstance, state *State, m *Matcher) error {
	support := state.support
	parameters := function.ValuesToMany(metamodel.PropParameters)
	for _, parameter := range parameters {
		if _, err := resolveType(support, parameter.ValueToOne(metamodel.PropGenericType)); err != nil {
			return err
		}
	}
	if _, err := resolveType(support, function.ValueToOne(metamodel.PropReturnType)); err != nil {
		return err
	}
	vars := NewVariableContext(state.vars)
	declareParameters(support, vars, parameters)
	return processBody(function.ValuesToMany(metamodel.PropExpressionSequence), vars, state, m)
}

func (functionProcessor) PopulateReferenceUsages(function model.CoreInstance, state *State) error {
	for _, parameter := range function.ValuesToMany(metamodel.PropParameters) {
		addRawTypeUsage(state.support, parameter.ValueToOne(metamodel.PropGenericType))
	}
	addRawTypeUsage(state.support, function.ValueToOne(metamodel.PropReturnType))
	return nil
}

func processBody(body []model.CoreInstance, vars *VariableContext, state *State, m *Matcher) error {
	outer := state.vars
	state.vars = vars
	defer func() { state.vars = outer }()
	for _, expression := range body {
		if err := processExpression(expression, state, m); err != nil {
			return err
		}
	}
	return nil
}

// processExpression infers the type and multiplicity of a value
// specification, resolving the properties and enum values it refers to.
func processExpression(expression model.CoreInstance, state *State, m *Matcher) error {
	support := state.support
	source := expression.SourceInformation()
	var (
		raw          model.CoreInstance
		multiplicity model.CoreInstance
	)
	switch {
	case support.ClassifierIs(expression, metamodel.VariableExpression):
		name := navigation.StringValue(expression, metamodel.PropName)
		v, ok := state.vars.Lookup(name)
		if !ok {
			return cerrors.NewUnknownVariable(source, name)
		}
		raw, multiplicity = v.Type, copyMultiplicity(support, v.Multiplicity, source)

	case support.ClassifierIs(expression, metamodel.SimpleFunctionExpression):
		name := navigation.StringValue(expression, metamodel.PropPropertyName)
		if name == "" {
			return cerrors.NewUndefined(source, navigation.StringValue(expression, metamodel.PropFunctionName)+"()")
		}
		receiver := expression.ValueToOne(metamodel.PropParametersValues)
		if err := processExpression(receiver, state, m); err != nil {
			return err
		}
		receiverType, err := support.RawType(receiver.ValueToOne(metamodel.PropGenericType))
		if err != nil {
			return err
		}
		property, err := propertyOf(receiverType, name, source, state, m)
		if err != nil {
			return err
		}
		expression.SetKeyValues(metamodel.KeyFunc, []model.CoreInstance{property})
		support.AddReferenceUsage(property, expression, metamodel.PropFunc, 0)
		if raw, err = support.RawType(property.ValueToOne(metamodel.PropGenericType)); err != nil {
			return err
		}
		rl, ru := navigation.MultiplicityBounds(receiver.ValueToOne(metamodel.PropMultiplicity))
		pl, pu := navigation.MultiplicityBounds(property.ValueToOne(metamodel.PropMultiplicity))
		upper := metamodel.Unbounded
		if ru != metamodel.Unbounded && pu != metamodel.Unbounded {
			upper = ru * pu
		}
		multiplicity = support.Multiplicity(rl*pl, upper, source)

	case support.ClassifierIs(expression, metamodel.InstanceValue):
		values := expression.ValuesToMany(metamodel.PropValues)
		for _, value := range values {
			resolved, err := support.WithImportStubByPass(value)
			if err != nil {
				return err
			}
			typ := resolved.Classifier()
			if raw == nil {
				raw = typ
			} else if raw != typ {
				raw = support.Metamodel().Type("Any")
			}
		}
		if raw == nil {
			raw = support.Repository().TopLevel(metamodel.Nil)
		}
		multiplicity = support.Multiplicity(len(values), len(values), source)

	default:
		return nil
	}
	expression.SetKeyValues(metamodel.KeyValueGenericType, []model.CoreInstance{support.NewGenericType(raw, source)})
	expression.SetKeyValues(metamodel.KeyValueMultiplicity, []model.CoreInstance{multiplicity})
	return nil
}

// propertyOf finds the property name of a class, binding the class first
// when it is a model element that has not been processed yet.
func propertyOf(class model.CoreInstance, name string, source *model.SourceInformation, state *State, m *Matcher) (model.CoreInstance, error) {
	support := state.support
	if class == nil || !support.IsClass(class) {
		return nil, cerrors.NewPropertyNotInClass(source, name, support.UserPath(class))
	}
	if !metamodel.IsPlatform(class) {
		if err := ProcessElement(m, class, state); err != nil {
			return nil, err
		}
	}
	property, err := support.ClassPropertyByName(class, name)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, cerrors.NewPropertyNotInClass(source, name, support.UserPath(class))
	}
	return property, nil
}
