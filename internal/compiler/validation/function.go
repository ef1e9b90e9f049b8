package validation

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// functionValidator checks the last body expression against the declared
// return type and multiplicity.
type functionValidator struct{}

func (functionValidator) ClassName() string { return metamodel.ConcreteFunctionDefinition }

func (functionValidator) Validate(function model.CoreInstance, state *State, _ *Matcher) error {
	support := state.support
	body := function.ValuesToMany(metamodel.PropExpressionSequence)
	if len(body) == 0 {
		return nil
	}
	last := body[len(body)-1]
	path := support.UserPath(function)

	expected := support.WithImportStubByPassDoNotResolve(rawTypeOf(function.ValueToOne(metamodel.PropReturnType)))
	found := rawTypeOf(last.ValueToOne(metamodel.PropGenericType))
	if expected != nil && found != nil && !Compatible(support, found, expected) {
		return cerrors.NewReturnTypeError(last.SourceInformation(), path, support.UserPath(found), support.UserPath(expected))
	}

	el, eu := navigation.MultiplicityBounds(function.ValueToOne(metamodel.PropReturnMultiplicity))
	fl, fu := navigation.MultiplicityBounds(last.ValueToOne(metamodel.PropMultiplicity))
	if last.ValueToOne(metamodel.PropMultiplicity) != nil && !subsumes(el, eu, fl, fu) {
		return cerrors.NewReturnMultiplicityError(last.SourceInformation(), path,
			navigation.MultiplicityString(fl, fu), navigation.MultiplicityString(el, eu))
	}
	return nil
}

func rawTypeOf(genericType model.CoreInstance) model.CoreInstance {
	if genericType == nil {
		return nil
	}
	return genericType.ValueToOne(metamodel.PropRawType)
}

// Compatible reports whether a value of type found may be returned where
// expected is declared. Nil conforms to every type and every type to Any.
func Compatible(support *navigation.Support, found, expected model.CoreInstance) bool {
	switch {
	case found == expected:
		return true
	case found == support.Class(metamodel.NilClass), expected == support.Class(metamodel.Any):
		return true
	}
	return support.IsSubType(found, expected)
}

// subsumes reports whether [lower..upper] contains [l..u].
func subsumes(lower, upper, l, u int) bool {
	if l < lower {
		return false
	}
	if upper == metamodel.Unbounded {
		return true
	}
	return u != metamodel.Unbounded && u <= upper
}
