package parser

import (
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

func coreBlocks() []BlockParser {
	return []BlockParser{
		profileBlock{},
		enumerationBlock{},
		classBlock{},
		associationBlock{},
		functionBlock{},
	}
}

type profileBlock struct{}

func (profileBlock) BlockType() string { return "profile" }
func (profileBlock) ClassPath() string { return metamodel.Profile }

func (profileBlock) Parse(ctx *Context, block *hclsyntax.Block, profile model.CoreInstance) error {
	if err := ctx.CheckBody(block.Body, []string{"stereotypes", "tags"}, nil); err != nil {
		return err
	}
	repo := ctx.Repository()
	for _, member := range []struct {
		attr  string
		class string
		key   []string
		value []string
		owner []string
	}{
		{"stereotypes", metamodel.Stereotype, metamodel.KeyPStereotypes, metamodel.KeyStereotypeValue, metamodel.KeyStereotypeProfile},
		{"tags", metamodel.Tag, metamodel.KeyPTags, metamodel.KeyTagValue, metamodel.KeyTagProfile},
	} {
		attr, ok := block.Body.Attributes[member.attr]
		if !ok {
			continue
		}
		values, err := ctx.Strings(attr.Expr)
		if err != nil {
			return err
		}
		at := ctx.Source(attr.Expr.Range())
		for _, value := range values {
			instance := repo.NewInstance(value, ctx.Class(member.class), at)
			instance.SetKeyValues(member.value, []model.CoreInstance{repo.NewString(value)})
			instance.SetKeyValues(member.owner, []model.CoreInstance{profile})
			profile.AddKeyValue(member.key, instance)
		}
	}
	return nil
}

type enumerationBlock struct{}

func (enumerationBlock) BlockType() string { return "enumeration" }
func (enumerationBlock) ClassPath() string { return metamodel.Enumeration }

func (enumerationBlock) Parse(ctx *Context, block *hclsyntax.Block, enumeration model.CoreInstance) error {
	if err := ctx.CheckBody(block.Body, []string{"values", "stereotypes", "tagged_values"}, nil); err != nil {
		return err
	}
	repo := ctx.Repository()
	attr, ok := block.Body.Attributes["values"]
	if !ok {
		return ctx.Errorf(block.OpenBraceRange, "Missing required attribute 'values'")
	}
	names, err := ctx.Strings(attr.Expr)
	if err != nil {
		return err
	}
	at := ctx.Source(attr.Expr.Range())
	for _, name := range names {
		value := repo.NewInstance(name, enumeration, at)
		value.SetKeyValues(metamodel.KeyEnumName, []model.CoreInstance{repo.NewString(name)})
		enumeration.AddKeyValue(metamodel.KeyEnumerationValues, value)
	}

	// Enumerations specialize Enum so their values dispatch like Enum instances.
	generalization := repo.NewAnonymousInstance(ctx.Class(metamodel.Generalization), ctx.ElementSource(block))
	generalization.SetKeyValues(metamodel.KeyGeneral, []model.CoreInstance{ctx.Support().NewGenericType(ctx.Class(metamodel.Enum), ctx.ElementSource(block))})
	generalization.SetKeyValues(metamodel.KeySpecific, []model.CoreInstance{enumeration})
	enumeration.AddKeyValue(metamodel.KeyGeneralizations, generalization)

	if err := ctx.Stereotypes(block.Body, enumeration); err != nil {
		return err
	}
	return ctx.TaggedValues(block.Body, enumeration)
}

type classBlock struct{}

func (classBlock) BlockType() string { return "class" }
func (classBlock) ClassPath() string { return metamodel.Class }

func (classBlock) Parse(ctx *Context, block *hclsyntax.Block, class model.CoreInstance) error {
	if err := ctx.CheckBody(block.Body, []string{"extends", "stereotypes", "tagged_values"}, []string{"property", "qualified_property"}); err != nil {
		return err
	}
	repo := ctx.Repository()
	if attr, ok := block.Body.Attributes["extends"]; ok {
		supers, err := ctx.Strings(attr.Expr)
		if err != nil {
			return err
		}
		at := ctx.Source(attr.Expr.Range())
		for _, id := range supers {
			gt := repo.NewAnonymousInstance(ctx.Class(metamodel.GenericType), at)
			gt.SetKeyValues(metamodel.KeyRawType, []model.CoreInstance{ctx.ImportStub(id, at)})
			generalization := repo.NewAnonymousInstance(ctx.Class(metamodel.Generalization), at)
			generalization.SetKeyValues(metamodel.KeyGeneral, []model.CoreInstance{gt})
			generalization.SetKeyValues(metamodel.KeySpecific, []model.CoreInstance{class})
			class.AddKeyValue(metamodel.KeyGeneralizations, generalization)
		}
	}
	if err := ctx.Stereotypes(block.Body, class); err != nil {
		return err
	}
	if err := ctx.TaggedValues(block.Body, class); err != nil {
		return err
	}
	for _, nested := range block.Body.Blocks {
		switch nested.Type {
		case "property":
			property, err := parseProperty(ctx, nested)
			if err != nil {
				return err
			}
			class.AddKeyValue(metamodel.KeyClassProperties, property)
		case "qualified_property":
			property, err := parseQualifiedProperty(ctx, nested)
			if err != nil {
				return err
			}
			class.AddKeyValue(metamodel.KeyClassQualifiedProperties, property)
		}
	}
	return nil
}

type associationBlock struct{}

func (associationBlock) BlockType() string { return "association" }
func (associationBlock) ClassPath() string { return metamodel.Association }

func (associationBlock) Parse(ctx *Context, block *hclsyntax.Block, association model.CoreInstance) error {
	if err := ctx.CheckBody(block.Body, []string{"stereotypes", "tagged_values"}, []string{"property"}); err != nil {
		return err
	}
	if err := ctx.Stereotypes(block.Body, association); err != nil {
		return err
	}
	if err := ctx.TaggedValues(block.Body, association); err != nil {
		return err
	}
	for _, nested := range block.Body.Blocks {
		property, err := parseProperty(ctx, nested)
		if err != nil {
			return err
		}
		association.AddKeyValue(metamodel.KeyAssociationProperties, property)
	}
	return nil
}

type functionBlock struct{}

func (functionBlock) BlockType() string { return "function" }
func (functionBlock) ClassPath() string { return metamodel.ConcreteFunctionDefinition }

func (functionBlock) Parse(ctx *Context, block *hclsyntax.Block, function model.CoreInstance) error {
	if err := ctx.CheckBody(block.Body, []string{"return_type", "return_multiplicity", "body", "stereotypes", "tagged_values"}, []string{"parameter"}); err != nil {
		return err
	}
	repo := ctx.Repository()
	function.SetKeyValues(metamodel.KeyFunctionName, []model.CoreInstance{repo.NewString(function.Name())})
	for _, nested := range block.Body.Blocks {
		parameter, err := parseParameter(ctx, nested)
		if err != nil {
			return err
		}
		function.AddKeyValue(metamodel.KeyFunctionParameters, parameter)
	}
	returnType, err := ctx.GenericType(block.Body, "return_type", block.OpenBraceRange)
	if err != nil {
		return err
	}
	function.SetKeyValues(metamodel.KeyReturnType, []model.CoreInstance{returnType})
	multiplicity, err := ctx.Multiplicity(block.Body, "return_multiplicity")
	if err != nil {
		return err
	}
	function.SetKeyValues(metamodel.KeyReturnMultiplicity, []model.CoreInstance{multiplicity})
	body, err := ctx.Body(block.Body)
	if err != nil {
		return err
	}
	if len(body) > 0 {
		function.SetKeyValues(metamodel.KeyFunctionExpressionSequence, body)
	}
	if err := ctx.Stereotypes(block.Body, function); err != nil {
		return err
	}
	return ctx.TaggedValues(block.Body, function)
}

func nestedName(ctx *Context, block *hclsyntax.Block) (string, error) {
	if len(block.Labels) != 1 {
		return "", ctx.Errorf(block.TypeRange, "Block '%s' takes exactly one label, its name", block.Type)
	}
	return block.Labels[0], nil
}

func parseProperty(ctx *Context, block *hclsyntax.Block) (model.CoreInstance, error) {
	if err := ctx.CheckBody(block.Body, []string{"type", "multiplicity", "stereotypes", "tagged_values"}, nil); err != nil {
		return nil, err
	}
	name, err := nestedName(ctx, block)
	if err != nil {
		return nil, err
	}
	property := ctx.Repository().NewInstance(name, ctx.Class(metamodel.Property), ctx.ElementSource(block))
	if err := propertySignature(ctx, block, property); err != nil {
		return nil, err
	}
	return property, nil
}

func parseQualifiedProperty(ctx *Context, block *hclsyntax.Block) (model.CoreInstance, error) {
	if err := ctx.CheckBody(block.Body, []string{"type", "multiplicity", "stereotypes", "tagged_values", "body"}, []string{"parameter"}); err != nil {
		return nil, err
	}
	name, err := nestedName(ctx, block)
	if err != nil {
		return nil, err
	}
	property := ctx.Repository().NewInstance(name, ctx.Class(metamodel.QualifiedProperty), ctx.ElementSource(block))
	if err := propertySignature(ctx, block, property); err != nil {
		return nil, err
	}
	for _, nested := range block.Body.Blocks {
		parameter, err := parseParameter(ctx, nested)
		if err != nil {
			return nil, err
		}
		property.AddKeyValue(metamodel.KeyQualifiedParameters, parameter)
	}
	body, err := ctx.Body(block.Body)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		property.SetKeyValues(metamodel.KeyQualifiedExpressionSequence, body)
	}
	return property, nil
}

func propertySignature(ctx *Context, block *hclsyntax.Block, property model.CoreInstance) error {
	property.SetKeyValues(metamodel.KeyPropertyName, []model.CoreInstance{ctx.Repository().NewString(property.Name())})
	gt, err := ctx.GenericType(block.Body, "type", block.OpenBraceRange)
	if err != nil {
		return err
	}
	property.SetKeyValues(metamodel.KeyPropertyGenericType, []model.CoreInstance{gt})
	multiplicity, err := ctx.Multiplicity(block.Body, "multiplicity")
	if err != nil {
		return err
	}
	property.SetKeyValues(metamodel.KeyPropertyMultiplicity, []model.CoreInstance{multiplicity})
	if err := ctx.Stereotypes(block.Body, property); err != nil {
		return err
	}
	return ctx.TaggedValues(block.Body, property)
}

func parseParameter(ctx *Context, block *hclsyntax.Block) (model.CoreInstance, error) {
	if err := ctx.CheckBody(block.Body, []string{"type", "multiplicity"}, nil); err != nil {
		return nil, err
	}
	name, err := nestedName(ctx, block)
	if err != nil {
		return nil, err
	}
	repo := ctx.Repository()
	parameter := repo.NewAnonymousInstance(ctx.Class(metamodel.VariableExpression), ctx.ElementSource(block))
	parameter.SetKeyValues(metamodel.KeyVariableName, []model.CoreInstance{repo.NewString(name)})
	gt, err := ctx.GenericType(block.Body, "type", block.OpenBraceRange)
	if err != nil {
		return nil, err
	}
	parameter.SetKeyValues(metamodel.KeyValueGenericType, []model.CoreInstance{gt})
	multiplicity, err := ctx.Multiplicity(block.Body, "multiplicity")
	if err != nil {
		return nil, err
	}
	parameter.SetKeyValues(metamodel.KeyValueMultiplicity, []model.CoreInstance{multiplicity})
	return parameter, nil
}
