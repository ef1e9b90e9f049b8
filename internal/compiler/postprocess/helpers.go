package postprocess

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// resolveType resolves the raw type of a generic type and checks that it is a type.
func resolveType(support *navigation.Support, genericType model.CoreInstance) (model.CoreInstance, error) {
	raw, err := support.RawType(genericType)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	if !support.IsType(raw) {
		return nil, cerrors.NewExpectedType(genericType.SourceInformation(), support.UserPath(raw))
	}
	return raw, nil
}

// addRawTypeUsage records the usage of the resolved raw type of a generic type.
func addRawTypeUsage(support *navigation.Support, genericType model.CoreInstance) {
	if genericType == nil {
		return
	}
	raw := support.WithImportStubByPassDoNotResolve(genericType.ValueToOne(metamodel.PropRawType))
	support.AddReferenceUsage(raw, genericType, metamodel.PropRawType, 0)
}

func setOwner(property, owner model.CoreInstance) {
	property.SetKeyValues(metamodel.KeyPropertyOwner, []model.CoreInstance{owner})
}

// copyMultiplicity returns a multiplicity with the bounds of m that the
// caller may own: shared multiplicities are returned as is.
func copyMultiplicity(support *navigation.Support, m model.CoreInstance, source *model.SourceInformation) model.CoreInstance {
	lower, upper := navigation.MultiplicityBounds(m)
	return support.Multiplicity(lower, upper, source)
}
