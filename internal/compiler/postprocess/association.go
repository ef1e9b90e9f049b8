package postprocess

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// associationProcessor binds the two ends of an association and
// contributes each end to the class at the opposite end.
type associationProcessor struct{}

func (associationProcessor) ClassName() string { return metamodel.Association }

func (associationProcessor) Process(association model.CoreInstance, state *State, m *Matcher) error {
	support := state.support
	properties := association.ValuesToMany(metamodel.PropProperties)
	if len(properties) != 2 {
		return cerrors.NewAssociationArity(association.SourceInformation(), support.UserPath(association), len(properties))
	}

	var ends [2]model.CoreInstance
	for i, property := range properties {
		typ, err := resolveType(support, property.ValueToOne(metamodel.PropGenericType))
		if err != nil {
			return err
		}
		if typ == nil || !support.IsClass(typ) {
			return cerrors.NewExpectedClass(property.SourceInformation(), support.UserPath(typ))
		}
		ends[i] = typ
	}

	for i, property := range properties {
		// The end typed by ends[i] belongs to the class at the other end.
		owner := ends[1-i]
		name := property.Name()
		if model.ValueByName(owner, metamodel.PropProperties, name) != nil ||
			model.ValueByName(owner, metamodel.PropPropertiesFromAssociations, name) != nil {
			return cerrors.NewPropertyConflict(property.SourceInformation(), name, support.UserPath(owner))
		}

		contributed := property
		targetTemporal := TemporalStereotype(support, ends[i])
		if targetTemporal != "" {
			generated := milestone(support, property, ends[i], targetTemporal, TemporalStereotype(support, owner))
			if err := association.ModifyValue(metamodel.PropProperties, i, generated.edgePoint); err != nil {
				return err
			}
			association.AddKeyValue(metamodel.KeyAssociationOriginalMilestoned, property)
			for _, q := range generated.qualified {
				association.AddKeyValue(metamodel.KeyAssociationQualifiedProperties, q)
				setOwner(q, association)
				if err := ProcessElement(m, q, state); err != nil {
					return err
				}
				owner.AddKeyValue(metamodel.KeyQualifiedPropertiesFromAssociations, q)
			}
			contributed = generated.edgePoint
		}

		setOwner(contributed, association)
		if err := ProcessElement(m, contributed, state); err != nil {
			return err
		}
		owner.AddKeyValue(metamodel.KeyPropertiesFromAssociations, contributed)
	}
	return nil
}

func (associationProcessor) PopulateReferenceUsages(model.CoreInstance, *State) error { return nil }
