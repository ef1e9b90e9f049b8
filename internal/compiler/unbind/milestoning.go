package unbind

import (
	"strings"

	"go.uber.org/multierr"

	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// restoreMilestoned undoes milestoning on a class or an association:
// generated properties are dropped and every original property goes back
// to the index held by its edge point.
func restoreMilestoned(owner model.CoreInstance, state *State) error {
	support := state.support
	originals := owner.ValuesToMany(metamodel.PropOriginalMilestonedProperties)

	var errs error
	for i, property := range owner.ValuesToMany(metamodel.PropProperties) {
		if !postprocess.IsGenerated(support, property, metamodel.GeneratedMilestoningProperty) {
			continue
		}
		name := strings.TrimSuffix(property.Name(), postprocess.AllVersionsSuffix)
		if original := byName(originals, name); original != nil {
			errs = multierr.Append(errs, owner.ModifyValue(metamodel.PropProperties, i, original))
		}
	}
	for _, property := range owner.ValuesToMany(metamodel.PropProperties) {
		if postprocess.IsGenerated(support, property, metamodel.GeneratedMilestoningProperty) ||
			postprocess.IsGenerated(support, property, metamodel.GeneratedMilestoningDateProperty) {
			owner.RemoveValue(metamodel.PropProperties, property)
		}
	}
	for _, property := range owner.ValuesToMany(metamodel.PropQualifiedProperties) {
		if postprocess.IsGenerated(support, property, metamodel.GeneratedMilestoningProperty) {
			owner.RemoveValue(metamodel.PropQualifiedProperties, property)
		}
	}

	for _, original := range originals {
		cleanGenericType(state, original.ValueToOne(metamodel.PropGenericType))
	}
	owner.RemoveProperty(metamodel.PropOriginalMilestonedProperties)
	return errs
}

func byName(instances []model.CoreInstance, name string) model.CoreInstance {
	for _, inst := range instances {
		if inst.Name() == name {
			return inst
		}
	}
	return nil
}
