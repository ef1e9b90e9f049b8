package validation

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// stereotypesValidator reports the stereotypes bind could not resolve.
type stereotypesValidator struct{}

func (stereotypesValidator) ClassName() string { return metamodel.ElementWithStereotypes }

func (stereotypesValidator) Validate(instance model.CoreInstance, state *State, _ *Matcher) error {
	var errs cerrors.ErrorList
	for _, stereotype := range instance.ValuesToMany(metamodel.PropStereotypes) {
		_, err := state.support.WithImportStubByPass(stereotype)
		errs.Add(err)
	}
	return errs.Err()
}

type taggedValuesValidator struct{}

func (taggedValuesValidator) ClassName() string { return metamodel.ElementWithTaggedValues }

func (taggedValuesValidator) Validate(instance model.CoreInstance, state *State, _ *Matcher) error {
	var errs cerrors.ErrorList
	for _, tv := range instance.ValuesToMany(metamodel.PropTaggedValues) {
		_, err := state.support.WithImportStubByPass(tv.ValueToOne(metamodel.PropTag))
		errs.Add(err)
	}
	return errs.Err()
}
