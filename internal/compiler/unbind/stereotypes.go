package unbind

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// stereotypesUnbinder removes an instance from the model elements of its
// stereotypes and cleans the stereotype stubs.
type stereotypesUnbinder struct{}

func (stereotypesUnbinder) ClassName() string { return metamodel.ElementWithStereotypes }

func (stereotypesUnbinder) Unbind(instance model.CoreInstance, state *State, _ *Matcher) error {
	for _, stereotype := range instance.ValuesToMany(metamodel.PropStereotypes) {
		if resolved := state.Resolve(instance, stereotype); resolved != nil {
			resolved.RemoveValue(metamodel.PropModelElements, instance)
		}
		state.support.CleanImportStub(stereotype)
	}
	return nil
}

type taggedValuesUnbinder struct{}

func (taggedValuesUnbinder) ClassName() string { return metamodel.ElementWithTaggedValues }

func (taggedValuesUnbinder) Unbind(instance model.CoreInstance, state *State, _ *Matcher) error {
	for _, tv := range instance.ValuesToMany(metamodel.PropTaggedValues) {
		tag := tv.ValueToOne(metamodel.PropTag)
		if resolved := state.Resolve(instance, tag); resolved != nil {
			resolved.RemoveValue(metamodel.PropModelElements, instance)
		}
		state.support.CleanImportStub(tag)
	}
	return nil
}
