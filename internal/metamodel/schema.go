package metamodel

import "strings"

// Unbounded marks an open upper multiplicity bound.
const Unbounded = -1

// PropertyDef declares a property of a metaclass.
type PropertyDef struct {
	Name  string
	Type  string
	Lower int
	Upper int
}

// ToOne reports whether the property holds at most one value.
func (p PropertyDef) ToOne() bool { return p.Upper == 1 }

// ClassDef declares a metaclass. Extensions contribute their own.
type ClassDef struct {
	Path       string
	Supers     []string
	Properties []PropertyDef
}

func one(name, typ string) PropertyDef     { return PropertyDef{name, typ, 1, 1} }
func zeroOne(name, typ string) PropertyDef { return PropertyDef{name, typ, 0, 1} }
func many(name, typ string) PropertyDef    { return PropertyDef{name, typ, 0, Unbounded} }

// CoreClasses is the metamodel bootstrapped into every repository.
var CoreClasses = []ClassDef{
	{Path: Any, Properties: []PropertyDef{
		zeroOne(PropClassifierGenericType, GenericType),
		many(PropReferenceUsages, ReferenceUsage),
	}},
	{Path: ElementWithStereotypes, Supers: []string{Any}, Properties: []PropertyDef{
		many(PropStereotypes, Stereotype),
	}},
	{Path: ElementWithTaggedValues, Supers: []string{Any}, Properties: []PropertyDef{
		many(PropTaggedValues, TaggedValue),
	}},
	{Path: PackageableElement, Supers: []string{ElementWithStereotypes, ElementWithTaggedValues}, Properties: []PropertyDef{
		zeroOne(PropName, String),
		zeroOne(PropPackage, Package),
	}},
	{Path: Package, Supers: []string{PackageableElement}, Properties: []PropertyDef{
		many(PropChildren, PackageableElement),
	}},
	{Path: Type, Supers: []string{Any}, Properties: []PropertyDef{
		many(PropGeneralizations, Generalization),
		many(PropSpecializations, Generalization),
	}},
	{Path: Class, Supers: []string{Type, PackageableElement}, Properties: []PropertyDef{
		many(PropProperties, Property),
		many(PropQualifiedProperties, QualifiedProperty),
		many(PropPropertiesFromAssociations, Property),
		many(PropQualifiedPropertiesFromAssociations, QualifiedProperty),
		many(PropOriginalMilestonedProperties, Property),
	}},
	{Path: PrimitiveType, Supers: []string{Type, PackageableElement}},
	{Path: Enumeration, Supers: []string{Type, PackageableElement}, Properties: []PropertyDef{
		many(PropValues, Enum),
	}},
	{Path: Enum, Supers: []string{ElementWithStereotypes}, Properties: []PropertyDef{
		one(PropName, String),
	}},
	{Path: GenericType, Supers: []string{Any}, Properties: []PropertyDef{
		zeroOne(PropRawType, Type),
		many(PropTypeArguments, GenericType),
	}},
	{Path: Generalization, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropGeneral, GenericType),
		one(PropSpecific, Type),
	}},
	{Path: Multiplicity, Supers: []string{PackageableElement}, Properties: []PropertyDef{
		one(PropLowerBound, Integer),
		zeroOne(PropUpperBound, Integer),
	}},
	{Path: AbstractProperty, Supers: []string{ElementWithStereotypes, ElementWithTaggedValues}, Properties: []PropertyDef{
		one(PropName, String),
		zeroOne(PropOwner, Any),
		one(PropGenericType, GenericType),
		one(PropMultiplicity, Multiplicity),
	}},
	{Path: Property, Supers: []string{AbstractProperty}},
	{Path: QualifiedProperty, Supers: []string{AbstractProperty}, Properties: []PropertyDef{
		many(PropParameters, VariableExpression),
		many(PropExpressionSequence, ValueSpecification),
		zeroOne(PropID, String),
	}},
	{Path: Association, Supers: []string{PackageableElement}, Properties: []PropertyDef{
		many(PropProperties, Property),
		many(PropQualifiedProperties, QualifiedProperty),
		many(PropOriginalMilestonedProperties, Property),
	}},
	{Path: Profile, Supers: []string{PackageableElement}, Properties: []PropertyDef{
		many(PropPStereotypes, Stereotype),
		many(PropPTags, Tag),
	}},
	{Path: Stereotype, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropValue, String),
		one(PropProfile, Profile),
		many(PropModelElements, Any),
	}},
	{Path: Tag, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropValue, String),
		one(PropProfile, Profile),
		many(PropModelElements, Any),
	}},
	{Path: TaggedValue, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropTag, Tag),
		one(PropValue, String),
	}},
	{Path: ImportStub, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropIDOrPath, String),
		one(PropImportGroup, ImportGroup),
		zeroOne(PropResolvedNode, Any),
	}},
	{Path: PropertyStub, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropOwner, Any),
		one(PropPropertyName, String),
		zeroOne(PropResolvedProperty, AbstractProperty),
	}},
	{Path: EnumStub, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropEnumeration, Any),
		one(PropEnumName, String),
		zeroOne(PropResolvedEnum, Enum),
	}},
	{Path: ImportGroup, Supers: []string{PackageableElement}, Properties: []PropertyDef{
		many(PropImports, Import),
	}},
	{Path: Import, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropPath, String),
	}},
	{Path: ConcreteFunctionDefinition, Supers: []string{PackageableElement}, Properties: []PropertyDef{
		one(PropFunctionName, String),
		many(PropParameters, VariableExpression),
		one(PropReturnType, GenericType),
		one(PropReturnMultiplicity, Multiplicity),
		many(PropExpressionSequence, ValueSpecification),
	}},
	{Path: ValueSpecification, Supers: []string{Any}, Properties: []PropertyDef{
		zeroOne(PropGenericType, GenericType),
		zeroOne(PropMultiplicity, Multiplicity),
	}},
	{Path: VariableExpression, Supers: []string{ValueSpecification}, Properties: []PropertyDef{
		one(PropName, String),
	}},
	{Path: SimpleFunctionExpression, Supers: []string{ValueSpecification}, Properties: []PropertyDef{
		zeroOne(PropFunctionName, String),
		zeroOne(PropPropertyName, String),
		zeroOne(PropFunc, Any),
		many(PropParametersValues, ValueSpecification),
	}},
	{Path: InstanceValue, Supers: []string{ValueSpecification}, Properties: []PropertyDef{
		many(PropValues, Any),
	}},
	{Path: NilClass, Supers: []string{Any}},
	{Path: ReferenceUsage, Supers: []string{Any}, Properties: []PropertyDef{
		one(PropOwner, Any),
		one(PropPropertyName, String),
		one(PropOffset, Integer),
	}},
	{Path: BusinessDateMilestoning, Properties: []PropertyDef{
		one("from", Date),
		one("thru", Date),
	}},
	{Path: ProcessingDateMilestoning, Properties: []PropertyDef{
		one("in", Date),
		one("out", Date),
	}},
	{Path: BiTemporalMilestoning, Properties: []PropertyDef{
		one("from", Date),
		one("thru", Date),
		one("in", Date),
		one("out", Date),
	}},
}

// Key returns the real key of a property declared by the class at classPath.
func Key(classPath, property string) []string {
	key := []string{Root}
	if classPath != Package && classPath != Root {
		key = append(key, strings.Split(classPath, "::")...)
	} else {
		key = append(key, classPath)
	}
	return append(key, PropProperties, property)
}

// Real keys of the metamodel properties.
var (
	KeyClassifierGenericType               = Key(Any, PropClassifierGenericType)
	KeyReferenceUsages                     = Key(Any, PropReferenceUsages)
	KeyStereotypes                         = Key(ElementWithStereotypes, PropStereotypes)
	KeyTaggedValues                        = Key(ElementWithTaggedValues, PropTaggedValues)
	KeyElementName                         = Key(PackageableElement, PropName)
	KeyPackage                             = Key(PackageableElement, PropPackage)
	KeyChildren                            = Key(Package, PropChildren)
	KeyGeneralizations                     = Key(Type, PropGeneralizations)
	KeySpecializations                     = Key(Type, PropSpecializations)
	KeyClassProperties                     = Key(Class, PropProperties)
	KeyClassQualifiedProperties            = Key(Class, PropQualifiedProperties)
	KeyPropertiesFromAssociations          = Key(Class, PropPropertiesFromAssociations)
	KeyQualifiedPropertiesFromAssociations = Key(Class, PropQualifiedPropertiesFromAssociations)
	KeyClassOriginalMilestonedProperties   = Key(Class, PropOriginalMilestonedProperties)
	KeyEnumerationValues                   = Key(Enumeration, PropValues)
	KeyEnumName                            = Key(Enum, PropName)
	KeyRawType                             = Key(GenericType, PropRawType)
	KeyTypeArguments                       = Key(GenericType, PropTypeArguments)
	KeyGeneral                             = Key(Generalization, PropGeneral)
	KeySpecific                            = Key(Generalization, PropSpecific)
	KeyLowerBound                          = Key(Multiplicity, PropLowerBound)
	KeyUpperBound                          = Key(Multiplicity, PropUpperBound)
	KeyPropertyName                        = Key(AbstractProperty, PropName)
	KeyPropertyOwner                       = Key(AbstractProperty, PropOwner)
	KeyPropertyGenericType                 = Key(AbstractProperty, PropGenericType)
	KeyPropertyMultiplicity                = Key(AbstractProperty, PropMultiplicity)
	KeyQualifiedParameters                 = Key(QualifiedProperty, PropParameters)
	KeyQualifiedExpressionSequence         = Key(QualifiedProperty, PropExpressionSequence)
	KeyQualifiedID                         = Key(QualifiedProperty, PropID)
	KeyAssociationProperties               = Key(Association, PropProperties)
	KeyAssociationQualifiedProperties      = Key(Association, PropQualifiedProperties)
	KeyAssociationOriginalMilestoned       = Key(Association, PropOriginalMilestonedProperties)
	KeyPStereotypes                        = Key(Profile, PropPStereotypes)
	KeyPTags                               = Key(Profile, PropPTags)
	KeyStereotypeValue                     = Key(Stereotype, PropValue)
	KeyStereotypeProfile                   = Key(Stereotype, PropProfile)
	KeyStereotypeModelElements             = Key(Stereotype, PropModelElements)
	KeyTagValue                            = Key(Tag, PropValue)
	KeyTagProfile                          = Key(Tag, PropProfile)
	KeyTagModelElements                    = Key(Tag, PropModelElements)
	KeyTaggedValueTag                      = Key(TaggedValue, PropTag)
	KeyTaggedValueValue                    = Key(TaggedValue, PropValue)
	KeyIDOrPath                            = Key(ImportStub, PropIDOrPath)
	KeyImportGroup                         = Key(ImportStub, PropImportGroup)
	KeyResolvedNode                        = Key(ImportStub, PropResolvedNode)
	KeyPropertyStubOwner                   = Key(PropertyStub, PropOwner)
	KeyPropertyStubName                    = Key(PropertyStub, PropPropertyName)
	KeyResolvedProperty                    = Key(PropertyStub, PropResolvedProperty)
	KeyEnumStubEnumeration                 = Key(EnumStub, PropEnumeration)
	KeyEnumStubName                        = Key(EnumStub, PropEnumName)
	KeyResolvedEnum                        = Key(EnumStub, PropResolvedEnum)
	KeyImports                             = Key(ImportGroup, PropImports)
	KeyImportPath                          = Key(Import, PropPath)
	KeyFunctionName                        = Key(ConcreteFunctionDefinition, PropFunctionName)
	KeyFunctionParameters                  = Key(ConcreteFunctionDefinition, PropParameters)
	KeyReturnType                          = Key(ConcreteFunctionDefinition, PropReturnType)
	KeyReturnMultiplicity                  = Key(ConcreteFunctionDefinition, PropReturnMultiplicity)
	KeyFunctionExpressionSequence          = Key(ConcreteFunctionDefinition, PropExpressionSequence)
	KeyValueGenericType                    = Key(ValueSpecification, PropGenericType)
	KeyValueMultiplicity                   = Key(ValueSpecification, PropMultiplicity)
	KeyVariableName                        = Key(VariableExpression, PropName)
	KeyExpressionFunctionName              = Key(SimpleFunctionExpression, PropFunctionName)
	KeyExpressionPropertyName              = Key(SimpleFunctionExpression, PropPropertyName)
	KeyFunc                                = Key(SimpleFunctionExpression, PropFunc)
	KeyParametersValues                    = Key(SimpleFunctionExpression, PropParametersValues)
	KeyInstanceValues                      = Key(InstanceValue, PropValues)
	KeyUsageOwner                          = Key(ReferenceUsage, PropOwner)
	KeyUsagePropertyName                   = Key(ReferenceUsage, PropPropertyName)
	KeyUsageOffset                         = Key(ReferenceUsage, PropOffset)
)
