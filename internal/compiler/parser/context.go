package parser

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Context carries the state shared by the block parsers of one source.
type Context struct {
	support  *navigation.Support
	sourceID string
	group    model.CoreInstance
}

func (c *Context) Support() *navigation.Support         { return c.support }
func (c *Context) Repository() *model.Repository        { return c.support.Repository() }
func (c *Context) SourceID() string                     { return c.sourceID }
func (c *Context) ImportGroup() model.CoreInstance      { return c.group }
func (c *Context) Class(path string) model.CoreInstance { return c.support.Class(path) }

// Source converts an HCL range to source information.
func (c *Context) Source(rng hcl.Range) *model.SourceInformation {
	return sourceOf(c.sourceID, rng)
}

// ElementSource spans a whole block; the name position is its label.
func (c *Context) ElementSource(block *hclsyntax.Block) *model.SourceInformation {
	source := c.Source(block.Range())
	if len(block.LabelRanges) > 0 {
		source.Line = block.LabelRanges[0].Start.Line
		source.Column = block.LabelRanges[0].Start.Column
	}
	return source
}

func sourceOf(sourceID string, rng hcl.Range) *model.SourceInformation {
	return model.NewSourceInformation(sourceID, rng.Start.Line, rng.Start.Column, rng.End.Line, rng.End.Column)
}

// Errorf creates a parse error located at rng.
func (c *Context) Errorf(rng hcl.Range, format string, args ...any) *cerrors.CompilationError {
	return cerrors.NewParseError(c.Source(rng), fmt.Sprintf(format, args...))
}

// CheckBody rejects attributes and nested blocks a block type does not declare.
func (c *Context) CheckBody(body *hclsyntax.Body, attributes []string, blocks []string) error {
	for name, attr := range body.Attributes {
		if !contains(attributes, name) {
			return c.Errorf(attr.SrcRange, "Unsupported attribute '%s'", name)
		}
	}
	for _, block := range body.Blocks {
		if !contains(blocks, block.Type) {
			return c.Errorf(block.TypeRange, "Unsupported block type '%s'", block.Type)
		}
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// String decodes a string-valued expression.
func (c *Context) String(expr hclsyntax.Expression) (string, error) {
	var out string
	if diags := gohcl.DecodeExpression(expr, nil, &out); diags.HasErrors() {
		return "", diagnosticsError(diags)
	}
	return out, nil
}

// Strings decodes a list of strings.
func (c *Context) Strings(expr hclsyntax.Expression) ([]string, error) {
	var out []string
	if diags := gohcl.DecodeExpression(expr, nil, &out); diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	return out, nil
}

// OptionalString decodes an attribute when present.
func (c *Context) OptionalString(body *hclsyntax.Body, name string) (string, *hclsyntax.Attribute, error) {
	attr, ok := body.Attributes[name]
	if !ok {
		return "", nil, nil
	}
	value, err := c.String(attr.Expr)
	return value, attr, err
}

// RequiredString decodes an attribute that must be present.
func (c *Context) RequiredString(body *hclsyntax.Body, name string, owner hcl.Range) (string, *hclsyntax.Attribute, error) {
	value, attr, err := c.OptionalString(body, name)
	if err != nil {
		return "", nil, err
	}
	if attr == nil {
		return "", nil, c.Errorf(owner, "Missing required attribute '%s'", name)
	}
	return value, attr, nil
}

// ImportStub creates an unresolved reference to id in the import context of the source.
func (c *Context) ImportStub(id string, source *model.SourceInformation) model.CoreInstance {
	repo := c.Repository()
	stub := repo.NewAnonymousInstance(c.Class(metamodel.ImportStub), source)
	stub.SetKeyValues(metamodel.KeyIDOrPath, []model.CoreInstance{repo.NewString(id)})
	stub.SetKeyValues(metamodel.KeyImportGroup, []model.CoreInstance{c.group})
	return stub
}

// PropertyStub creates an unresolved reference to property name of the type id.
func (c *Context) PropertyStub(ownerID, name string, source *model.SourceInformation) model.CoreInstance {
	repo := c.Repository()
	stub := repo.NewAnonymousInstance(c.Class(metamodel.PropertyStub), source)
	stub.SetKeyValues(metamodel.KeyPropertyStubOwner, []model.CoreInstance{c.ImportStub(ownerID, source)})
	stub.SetKeyValues(metamodel.KeyPropertyStubName, []model.CoreInstance{repo.NewString(name)})
	return stub
}

// EnumStub creates an unresolved reference to an enum value.
func (c *Context) EnumStub(enumerationID, name string, source *model.SourceInformation) model.CoreInstance {
	repo := c.Repository()
	stub := repo.NewAnonymousInstance(c.Class(metamodel.EnumStub), source)
	stub.SetKeyValues(metamodel.KeyEnumStubEnumeration, []model.CoreInstance{c.ImportStub(enumerationID, source)})
	stub.SetKeyValues(metamodel.KeyEnumStubName, []model.CoreInstance{repo.NewString(name)})
	return stub
}

// GenericType creates a generic type over a stub of the type named by the attribute.
func (c *Context) GenericType(body *hclsyntax.Body, name string, owner hcl.Range) (model.CoreInstance, error) {
	id, attr, err := c.RequiredString(body, name, owner)
	if err != nil {
		return nil, err
	}
	at := c.Source(attr.Expr.Range())
	gt := c.Repository().NewAnonymousInstance(c.Class(metamodel.GenericType), at)
	gt.SetKeyValues(metamodel.KeyRawType, []model.CoreInstance{c.ImportStub(id, at)})
	return gt, nil
}

// Multiplicity decodes a multiplicity attribute, defaulting to exactly one.
func (c *Context) Multiplicity(body *hclsyntax.Body, name string) (model.CoreInstance, error) {
	literal, attr, err := c.OptionalString(body, name)
	if err != nil {
		return nil, err
	}
	if attr == nil {
		return c.support.Metamodel().SharedMultiplicity(1, 1), nil
	}
	lower, upper, err := navigation.ParseMultiplicity(literal)
	if err != nil {
		return nil, cerrors.NewInvalidMultiplicity(c.Source(attr.Expr.Range()), literal)
	}
	return c.support.Multiplicity(lower, upper, c.Source(attr.Expr.Range())), nil
}

// Stereotypes reads the stereotypes attribute, written profile.stereotype.
func (c *Context) Stereotypes(body *hclsyntax.Body, element model.CoreInstance) error {
	attr, ok := body.Attributes["stereotypes"]
	if !ok {
		return nil
	}
	refs, err := c.Strings(attr.Expr)
	if err != nil {
		return err
	}
	at := c.Source(attr.Expr.Range())
	for _, ref := range refs {
		profile, value, err := c.profileMember(ref, attr)
		if err != nil {
			return err
		}
		element.AddKeyValue(metamodel.KeyStereotypes, c.ImportStub(profile+"@"+value, at))
	}
	return nil
}

// TaggedValues reads the tagged_values attribute, an object keyed by profile.tag.
func (c *Context) TaggedValues(body *hclsyntax.Body, element model.CoreInstance) error {
	attr, ok := body.Attributes["tagged_values"]
	if !ok {
		return nil
	}
	object, ok := attr.Expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return c.Errorf(attr.Expr.Range(), "tagged_values must be an object")
	}
	repo := c.Repository()
	for _, item := range object.Items {
		ref, err := c.objectKey(item.KeyExpr)
		if err != nil {
			return err
		}
		profile, tag, err := c.profileMember(ref, attr)
		if err != nil {
			return err
		}
		value, err := c.String(item.ValueExpr)
		if err != nil {
			return err
		}
		at := c.Source(hcl.RangeBetween(item.KeyExpr.Range(), item.ValueExpr.Range()))
		tv := repo.NewAnonymousInstance(c.Class(metamodel.TaggedValue), at)
		tv.SetKeyValues(metamodel.KeyTaggedValueTag, []model.CoreInstance{c.ImportStub(profile+"%"+tag, at)})
		tv.SetKeyValues(metamodel.KeyTaggedValueValue, []model.CoreInstance{repo.NewString(value)})
		element.AddKeyValue(metamodel.KeyTaggedValues, tv)
	}
	return nil
}

func (c *Context) objectKey(expr hclsyntax.Expression) (string, error) {
	if key, ok := expr.(*hclsyntax.ObjectConsKeyExpr); ok {
		if name := hcl.ExprAsKeyword(key.Wrapped); name != "" {
			return name, nil
		}
		return c.String(key.Wrapped)
	}
	return c.String(expr)
}

func (c *Context) profileMember(ref string, attr *hclsyntax.Attribute) (string, string, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", c.Errorf(attr.Expr.Range(), "Expected profile.member, found '%s'", ref)
	}
	return ref[:i], ref[i+1:], nil
}
