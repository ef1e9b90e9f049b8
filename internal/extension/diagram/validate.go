package diagram

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/validation"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

const (
	// ErrUnknownView indicates a property view names a type view the diagram lacks.
	ErrUnknownView cerrors.ErrorCode = "RES110"
	// ErrViewMismatch indicates a property view does not connect the views it names.
	ErrViewMismatch cerrors.ErrorCode = "TYP210"
	// ErrDuplicateView indicates two views of a diagram share an id.
	ErrDuplicateView cerrors.ErrorCode = "VAL310"
)

// validator checks that view ids are unique and that every property view
// leads from a view of a type owning the property to a view of its type.
type validator struct{}

func (validator) ClassName() string { return Diagram }

func (validator) Validate(diagram model.CoreInstance, state *validation.State, _ *validation.Matcher) error {
	support := state.Support()
	path := support.UserPath(diagram)
	var errs cerrors.ErrorList

	types := make(map[string]model.CoreInstance)
	seen := make(map[string]bool)
	for _, view := range diagram.ValuesToMany(PropTypeViews) {
		id := navigation.StringValue(view, metamodel.PropID)
		if seen[id] {
			errs.Add(duplicateView(view, id, path))
			continue
		}
		seen[id] = true
		types[id] = support.WithImportStubByPassDoNotResolve(view.ValueToOne(PropType))
	}

	for _, view := range diagram.ValuesToMany(PropPropertyViews) {
		id := navigation.StringValue(view, metamodel.PropID)
		if seen[id] {
			errs.Add(duplicateView(view, id, path))
			continue
		}
		seen[id] = true

		property := support.WithImportStubByPassDoNotResolve(view.ValueToOne(PropProperty))
		if property == nil {
			continue
		}
		source, ok := types[navigation.StringValue(view, PropSource)]
		if !ok {
			errs.Add(unknownView(view, navigation.StringValue(view, PropSource), path))
			continue
		}
		target, ok := types[navigation.StringValue(view, PropTarget)]
		if !ok {
			errs.Add(unknownView(view, navigation.StringValue(view, PropTarget), path))
			continue
		}

		found, err := support.ClassPropertyByName(source, property.Name())
		if err != nil {
			errs.Add(err)
			continue
		}
		if found != property {
			errs.Add(cerrors.New(ErrViewMismatch, cerrors.CategoryType, view.SourceInformation(),
				"The property '%s' is not a property of %s", property.Name(), support.UserPath(source)))
			continue
		}
		genericType := property.ValueToOne(metamodel.PropGenericType)
		if genericType == nil {
			continue
		}
		raw := support.WithImportStubByPassDoNotResolve(genericType.ValueToOne(metamodel.PropRawType))
		if !support.IsSubType(target, raw) {
			errs.Add(cerrors.New(ErrViewMismatch, cerrors.CategoryType, view.SourceInformation(),
				"The property '%s' has type %s, found: %s", property.Name(), support.UserPath(raw), support.UserPath(target)))
		}
	}
	return errs.Err()
}

func duplicateView(view model.CoreInstance, id, path string) *cerrors.CompilationError {
	return cerrors.New(ErrDuplicateView, cerrors.CategoryValidation, view.SourceInformation(),
		"The view '%s' is defined more than once in diagram %s", id, path)
}

func unknownView(view model.CoreInstance, id, path string) *cerrors.CompilationError {
	return cerrors.New(ErrUnknownView, cerrors.CategoryResolution, view.SourceInformation(),
		"The type view '%s' can't be found in diagram %s", id, path)
}
