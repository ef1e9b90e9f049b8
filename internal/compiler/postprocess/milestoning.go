package postprocess

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Date property names generated on temporal classes.
const (
	BusinessDate      = "businessDate"
	ProcessingDate    = "processingDate"
	MilestoningProp   = "milestoning"
	AllVersionsSuffix = "AllVersions"
)

// TemporalStereotype returns the temporal stereotype of a class
// (businesstemporal, processingtemporal or bitemporal), or "" when the
// class is not temporal. Unresolvable stereotypes are ignored.
func TemporalStereotype(support *navigation.Support, class model.CoreInstance) string {
	for _, stereotype := range class.ValuesToMany(metamodel.PropStereotypes) {
		resolved, err := support.WithImportStubByPass(stereotype)
		if err != nil || resolved == nil {
			continue
		}
		if support.UserPath(resolved.ValueToOne(metamodel.PropProfile)) == metamodel.TemporalProfile {
			return resolved.Name()
		}
	}
	return ""
}

// DatePropertyNames returns the date properties of a temporal stereotype
// in declaration order.
func DatePropertyNames(temporal string) []string {
	switch temporal {
	case metamodel.BusinessTemporal:
		return []string{BusinessDate}
	case metamodel.ProcessingTemporal:
		return []string{ProcessingDate}
	case metamodel.BiTemporal:
		return []string{ProcessingDate, BusinessDate}
	}
	return nil
}

func milestoningClassPath(temporal string) string {
	switch temporal {
	case metamodel.BusinessTemporal:
		return metamodel.BusinessDateMilestoning
	case metamodel.ProcessingTemporal:
		return metamodel.ProcessingDateMilestoning
	default:
		return metamodel.BiTemporalMilestoning
	}
}

// IsGenerated reports whether a property carries the given milestoning stereotype.
func IsGenerated(support *navigation.Support, property model.CoreInstance, stereotype string) bool {
	for _, value := range property.ValuesToMany(metamodel.PropStereotypes) {
		resolved := support.WithImportStubByPassDoNotResolve(value)
		if resolved != nil && resolved.Name() == stereotype &&
			support.UserPath(resolved.ValueToOne(metamodel.PropProfile)) == metamodel.MilestoningProfile {
			return true
		}
	}
	return false
}

func milestoningStereotype(support *navigation.Support, value string) model.CoreInstance {
	return navigation.FindStereotype(support.PackageByUserPath(metamodel.MilestoningProfile), value)
}

// generatedProperty creates a property marked with a milestoning stereotype.
func generatedProperty(support *navigation.Support, classPath, name string, raw, multiplicity model.CoreInstance, source *model.SourceInformation, stereotype string) model.CoreInstance {
	repo := support.Repository()
	property := repo.NewInstance(name, support.Class(classPath), source)
	property.SetKeyValues(metamodel.KeyPropertyName, []model.CoreInstance{repo.NewString(name)})
	property.SetKeyValues(metamodel.KeyPropertyGenericType, []model.CoreInstance{support.NewGenericType(raw, source)})
	property.SetKeyValues(metamodel.KeyPropertyMultiplicity, []model.CoreInstance{multiplicity})
	property.SetKeyValues(metamodel.KeyStereotypes, []model.CoreInstance{milestoningStereotype(support, stereotype)})
	return property
}

func dateParameter(support *navigation.Support, name string, source *model.SourceInformation) model.CoreInstance {
	repo := support.Repository()
	parameter := repo.NewAnonymousInstance(support.Class(metamodel.VariableExpression), source)
	parameter.SetKeyValues(metamodel.KeyVariableName, []model.CoreInstance{repo.NewString(name)})
	parameter.SetKeyValues(metamodel.KeyValueGenericType, []model.CoreInstance{support.NewGenericType(repo.TopLevel(metamodel.Date), source)})
	parameter.SetKeyValues(metamodel.KeyValueMultiplicity, []model.CoreInstance{support.Metamodel().SharedMultiplicity(1, 1)})
	return parameter
}

// milestonedProperty holds what milestoning generates for one property
// whose type is a temporal class.
type milestonedProperty struct {
	original  model.CoreInstance
	edgePoint model.CoreInstance
	qualified []model.CoreInstance
}

// milestone generates the edge point and the dated qualified properties
// for original, whose raw type target is temporal. The no-argument
// qualified property is generated when the owning class shares the
// target's temporal stereotype.
func milestone(support *navigation.Support, original, target model.CoreInstance, targetTemporal, ownerTemporal string) milestonedProperty {
	source := original.SourceInformation()
	name := navigation.StringValue(original, metamodel.PropName)
	multiplicity := original.ValueToOne(metamodel.PropMultiplicity)
	out := milestonedProperty{original: original}
	out.edgePoint = generatedProperty(support, metamodel.Property, name+AllVersionsSuffix, target,
		support.Metamodel().SharedMultiplicity(0, metamodel.Unbounded), source, metamodel.GeneratedMilestoningProperty)

	dated := generatedProperty(support, metamodel.QualifiedProperty, name, target,
		copyMultiplicity(support, multiplicity, source), source, metamodel.GeneratedMilestoningProperty)
	for _, date := range DatePropertyNames(targetTemporal) {
		dated.AddKeyValue(metamodel.KeyQualifiedParameters, dateParameter(support, date, source))
	}
	out.qualified = append(out.qualified, dated)

	if ownerTemporal == targetTemporal {
		out.qualified = append(out.qualified, generatedProperty(support, metamodel.QualifiedProperty, name, target,
			copyMultiplicity(support, multiplicity, source), source, metamodel.GeneratedMilestoningProperty))
	}
	return out
}

// milestoneClass adds the date properties of a temporal class and replaces
// every property typed by a temporal class with its edge point, keeping the
// original in originalMilestonedProperties.
func milestoneClass(class model.CoreInstance, state *State) error {
	support := state.support
	temporal := TemporalStereotype(support, class)
	properties := class.ValuesToMany(metamodel.PropProperties)

	for i, property := range properties {
		target, err := resolveType(support, property.ValueToOne(metamodel.PropGenericType))
		if err != nil {
			return err
		}
		if target == nil || !support.IsClass(target) {
			continue
		}
		targetTemporal := TemporalStereotype(support, target)
		if targetTemporal == "" {
			continue
		}
		generated := milestone(support, property, target, targetTemporal, temporal)
		if err := class.ModifyValue(metamodel.PropProperties, i, generated.edgePoint); err != nil {
			return err
		}
		class.AddKeyValue(metamodel.KeyClassOriginalMilestonedProperties, property)
		for _, q := range generated.qualified {
			class.AddKeyValue(metamodel.KeyClassQualifiedProperties, q)
		}
	}

	if temporal == "" {
		return nil
	}
	source := class.SourceInformation()
	date := support.Repository().TopLevel(metamodel.Date)
	for _, name := range DatePropertyNames(temporal) {
		class.AddKeyValue(metamodel.KeyClassProperties, generatedProperty(support, metamodel.Property, name, date,
			support.Metamodel().SharedMultiplicity(1, 1), source, metamodel.GeneratedMilestoningDateProperty))
	}
	class.AddKeyValue(metamodel.KeyClassProperties, generatedProperty(support, metamodel.Property, MilestoningProp,
		support.Class(milestoningClassPath(temporal)), support.Metamodel().SharedMultiplicity(0, 1), source, metamodel.GeneratedMilestoningDateProperty))
	return nil
}
