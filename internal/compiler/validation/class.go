package validation

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// classValidator rejects hierarchy cycles through the class and
// properties declared twice.
type classValidator struct{}

func (classValidator) ClassName() string { return metamodel.Class }

func (classValidator) Validate(class model.CoreInstance, state *State, _ *Matcher) error {
	support := state.support
	var errs cerrors.ErrorList
	if cycle := generalizationCycle(support, class); cycle != nil {
		paths := make([]string, len(cycle))
		for i, t := range cycle {
			paths[i] = support.UserPath(t)
		}
		errs.Add(cerrors.NewCircularGeneralization(class.SourceInformation(), paths))
	}

	path := support.UserPath(class)
	seen := map[string]bool{}
	for _, prop := range []string{metamodel.PropProperties, metamodel.PropPropertiesFromAssociations} {
		for _, property := range class.ValuesToMany(prop) {
			if seen[property.Name()] {
				errs.Add(cerrors.NewDuplicateProperty(property.SourceInformation(), property.Name(), path))
			}
			seen[property.Name()] = true
		}
	}
	ids := map[string]bool{}
	for _, prop := range []string{metamodel.PropQualifiedProperties, metamodel.PropQualifiedPropertiesFromAssociations} {
		for _, property := range class.ValuesToMany(prop) {
			id := navigation.StringValue(property, metamodel.PropID)
			if ids[id] {
				errs.Add(cerrors.NewDuplicateProperty(property.SourceInformation(), id, path))
			}
			ids[id] = true
		}
	}
	return errs.Err()
}

// generalizationCycle returns a generalization path leading from class
// back to itself, or nil.
func generalizationCycle(support *navigation.Support, class model.CoreInstance) []model.CoreInstance {
	var path []model.CoreInstance
	done := map[model.CoreInstance]bool{}
	var visit func(t model.CoreInstance) bool
	visit = func(t model.CoreInstance) bool {
		path = append(path, t)
		for _, g := range t.ValuesToMany(metamodel.PropGeneralizations) {
			gt := g.ValueToOne(metamodel.PropGeneral)
			if gt == nil {
				continue
			}
			general := support.WithImportStubByPassDoNotResolve(gt.ValueToOne(metamodel.PropRawType))
			if general == class {
				path = append(path, class)
				return true
			}
			if general == nil || done[general] {
				continue
			}
			done[general] = true
			if visit(general) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	done[class] = true
	if visit(class) {
		return path
	}
	return nil
}

// associationValidator rejects associations whose ends share a name.
type associationValidator struct{}

func (associationValidator) ClassName() string { return metamodel.Association }

func (associationValidator) Validate(association model.CoreInstance, state *State, _ *Matcher) error {
	properties := association.ValuesToMany(metamodel.PropProperties)
	if len(properties) == 2 && properties[0].Name() == properties[1].Name() {
		return cerrors.NewDuplicateProperty(properties[1].SourceInformation(), properties[1].Name(), state.support.UserPath(association))
	}
	return nil
}
