// Package metamodel bootstraps the metaclasses, primitive types, shared
// multiplicities and platform profiles every compiled graph builds on.
package metamodel

// Package paths.
const (
	Root             = "Root"
	MetaPackage      = "meta::pure::metamodel"
	TypePackage      = "meta::pure::metamodel::type"
	ImportsPackage   = "system::imports"
	ProfilesPackage  = "meta::pure::profiles"
	MilestoningPkg   = "meta::pure::milestoning"
	MultiplicityPkg  = "meta::pure::metamodel::multiplicity"
	PlatformSourceID = "/platform/m3.pure"
)

// Metaclass paths.
const (
	Any                        = "meta::pure::metamodel::type::Any"
	ElementWithStereotypes     = "meta::pure::metamodel::extension::ElementWithStereotypes"
	ElementWithTaggedValues    = "meta::pure::metamodel::extension::ElementWithTaggedValues"
	PackageableElement         = "meta::pure::metamodel::PackageableElement"
	Package                    = "Package"
	Type                       = "meta::pure::metamodel::type::Type"
	Class                      = "meta::pure::metamodel::type::Class"
	PrimitiveType              = "meta::pure::metamodel::type::PrimitiveType"
	Enumeration                = "meta::pure::metamodel::type::Enumeration"
	Enum                       = "meta::pure::metamodel::type::Enum"
	GenericType                = "meta::pure::metamodel::type::generics::GenericType"
	Generalization             = "meta::pure::metamodel::relationship::Generalization"
	Multiplicity               = "meta::pure::metamodel::multiplicity::Multiplicity"
	AbstractProperty           = "meta::pure::metamodel::function::property::AbstractProperty"
	Property                   = "meta::pure::metamodel::function::property::Property"
	QualifiedProperty          = "meta::pure::metamodel::function::property::QualifiedProperty"
	Association                = "meta::pure::metamodel::relationship::Association"
	Profile                    = "meta::pure::metamodel::extension::Profile"
	Stereotype                 = "meta::pure::metamodel::extension::Stereotype"
	Tag                        = "meta::pure::metamodel::extension::Tag"
	TaggedValue                = "meta::pure::metamodel::extension::TaggedValue"
	ImportStub                 = "meta::pure::metamodel::import::ImportStub"
	PropertyStub               = "meta::pure::metamodel::import::PropertyStub"
	EnumStub                   = "meta::pure::metamodel::import::EnumStub"
	ImportGroup                = "meta::pure::metamodel::import::ImportGroup"
	Import                     = "meta::pure::metamodel::import::Import"
	ConcreteFunctionDefinition = "meta::pure::metamodel::function::ConcreteFunctionDefinition"
	ValueSpecification         = "meta::pure::metamodel::valuespecification::ValueSpecification"
	VariableExpression         = "meta::pure::metamodel::valuespecification::VariableExpression"
	SimpleFunctionExpression   = "meta::pure::metamodel::valuespecification::SimpleFunctionExpression"
	InstanceValue              = "meta::pure::metamodel::valuespecification::InstanceValue"
	ReferenceUsage             = "meta::pure::metamodel::ReferenceUsage"
	NilClass                   = "meta::pure::metamodel::type::Nil"
)

// Primitive types, registered as top-level instances.
const (
	String     = "String"
	Boolean    = "Boolean"
	Integer    = "Integer"
	Float      = "Float"
	Number     = "Number"
	Date       = "Date"
	StrictDate = "StrictDate"
	DateTime   = "DateTime"
	Nil        = "Nil"
)

// PrimitiveTypes lists the primitive types in declaration order.
var PrimitiveTypes = []string{String, Boolean, Integer, Float, Number, Date, StrictDate, DateTime}

// SpecialTypes are resolvable from any import context without a package.
var SpecialTypes = map[string]bool{
	String: true, Boolean: true, Integer: true, Float: true, Number: true,
	Date: true, StrictDate: true, DateTime: true, "Any": true, Nil: true,
	Package: true, Root: true,
}

// Shared multiplicities.
const (
	PureOne  = "meta::pure::metamodel::multiplicity::PureOne"
	ZeroOne  = "meta::pure::metamodel::multiplicity::ZeroOne"
	ZeroMany = "meta::pure::metamodel::multiplicity::ZeroMany"
	OneMany  = "meta::pure::metamodel::multiplicity::OneMany"
)

// Platform profiles and stereotypes.
const (
	TemporalProfile    = "meta::pure::profiles::temporal"
	MilestoningProfile = "meta::pure::profiles::milestoning"
	DocProfile         = "meta::pure::profiles::doc"

	BusinessTemporal   = "businesstemporal"
	ProcessingTemporal = "processingtemporal"
	BiTemporal         = "bitemporal"

	GeneratedMilestoningProperty     = "generatedmilestoningproperty"
	GeneratedMilestoningDateProperty = "generatedmilestoningdateproperty"

	BusinessDateMilestoning   = "meta::pure::milestoning::BusinessDateMilestoning"
	ProcessingDateMilestoning = "meta::pure::milestoning::ProcessingDateMilestoning"
	BiTemporalMilestoning     = "meta::pure::milestoning::BiTemporalMilestoning"
)

// Property names.
const (
	PropClassifierGenericType               = "classifierGenericType"
	PropReferenceUsages                     = "referenceUsages"
	PropStereotypes                         = "stereotypes"
	PropTaggedValues                        = "taggedValues"
	PropName                                = "name"
	PropPackage                             = "package"
	PropChildren                            = "children"
	PropGeneralizations                     = "generalizations"
	PropSpecializations                     = "specializations"
	PropProperties                          = "properties"
	PropQualifiedProperties                 = "qualifiedProperties"
	PropPropertiesFromAssociations          = "propertiesFromAssociations"
	PropQualifiedPropertiesFromAssociations = "qualifiedPropertiesFromAssociations"
	PropOriginalMilestonedProperties        = "originalMilestonedProperties"
	PropValues                              = "values"
	PropRawType                             = "rawType"
	PropTypeArguments                       = "typeArguments"
	PropGeneral                             = "general"
	PropSpecific                            = "specific"
	PropLowerBound                          = "lowerBound"
	PropUpperBound                          = "upperBound"
	PropOwner                               = "owner"
	PropGenericType                         = "genericType"
	PropMultiplicity                        = "multiplicity"
	PropParameters                          = "parameters"
	PropExpressionSequence                  = "expressionSequence"
	PropID                                  = "id"
	PropPStereotypes                        = "p_stereotypes"
	PropPTags                               = "p_tags"
	PropValue                               = "value"
	PropProfile                             = "profile"
	PropModelElements                       = "modelElements"
	PropTag                                 = "tag"
	PropIDOrPath                            = "idOrPath"
	PropImportGroup                         = "importGroup"
	PropResolvedNode                        = "resolvedNode"
	PropPropertyName                        = "propertyName"
	PropResolvedProperty                    = "resolvedProperty"
	PropEnumeration                         = "enumeration"
	PropEnumName                            = "enumName"
	PropResolvedEnum                        = "resolvedEnum"
	PropImports                             = "imports"
	PropPath                                = "path"
	PropFunctionName                        = "functionName"
	PropReturnType                          = "returnType"
	PropReturnMultiplicity                  = "returnMultiplicity"
	PropFunc                                = "func"
	PropParametersValues                    = "parametersValues"
	PropOffset                              = "offset"
)

// BackReferenceProperties are derived inverse edges maintained by bind and unbind.
var BackReferenceProperties = map[string]bool{
	PropSpecializations:                     true,
	PropModelElements:                       true,
	PropReferenceUsages:                     true,
	PropPropertiesFromAssociations:          true,
	PropQualifiedPropertiesFromAssociations: true,
}

// ReferenceProperties point at instances owned elsewhere in the graph and
// are never followed when walking the instances an element owns.
var ReferenceProperties = map[string]bool{
	PropPackage:          true,
	PropChildren:         true,
	PropProfile:          true,
	PropImportGroup:      true,
	PropResolvedNode:     true,
	PropResolvedProperty: true,
	PropResolvedEnum:     true,
	PropFunc:             true,
}
