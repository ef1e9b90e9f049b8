package postprocess

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// stereotypesProcessor resolves stereotype references and registers the
// annotated instance as a model element of each stereotype. Stereotypes
// that do not resolve yet are skipped here and reported by validation.
type stereotypesProcessor struct{}

func (stereotypesProcessor) ClassName() string { return metamodel.ElementWithStereotypes }

func (stereotypesProcessor) Process(instance model.CoreInstance, state *State, _ *Matcher) error {
	for _, stereotype := range instance.ValuesToMany(metamodel.PropStereotypes) {
		if _, err := state.support.WithImportStubByPass(stereotype); err != nil {
			state.logger.Debug("stereotype not resolved", zap.Stringer("instance", instanceName{state, instance}), zap.Error(err))
		}
	}
	return nil
}

func (stereotypesProcessor) PopulateReferenceUsages(instance model.CoreInstance, state *State) error {
	for _, stereotype := range instance.ValuesToMany(metamodel.PropStereotypes) {
		if resolved := state.support.WithImportStubByPassDoNotResolve(stereotype); resolved != nil {
			resolved.AddKeyValue(metamodel.KeyStereotypeModelElements, instance)
		}
	}
	return nil
}

// taggedValuesProcessor does the same for the tags of tagged values.
type taggedValuesProcessor struct{}

func (taggedValuesProcessor) ClassName() string { return metamodel.ElementWithTaggedValues }

func (taggedValuesProcessor) Process(instance model.CoreInstance, state *State, _ *Matcher) error {
	for _, tv := range instance.ValuesToMany(metamodel.PropTaggedValues) {
		if _, err := state.support.WithImportStubByPass(tv.ValueToOne(metamodel.PropTag)); err != nil {
			state.logger.Debug("tag not resolved", zap.Stringer("instance", instanceName{state, instance}), zap.Error(err))
		}
	}
	return nil
}

func (taggedValuesProcessor) PopulateReferenceUsages(instance model.CoreInstance, state *State) error {
	for _, tv := range instance.ValuesToMany(metamodel.PropTaggedValues) {
		if tag := state.support.WithImportStubByPassDoNotResolve(tv.ValueToOne(metamodel.PropTag)); tag != nil {
			tag.AddKeyValue(metamodel.KeyTagModelElements, instance)
		}
	}
	return nil
}

type instanceName struct {
	state    *State
	instance model.CoreInstance
}

func (n instanceName) String() string {
	if path := n.state.support.UserPath(n.instance); path != "" && n.state.support.IsPackageable(n.instance) {
		return path
	}
	return n.instance.Name()
}
