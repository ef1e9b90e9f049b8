package parser

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// Body decodes the body attribute: a list of expressions or a single one.
func (c *Context) Body(body *hclsyntax.Body) ([]model.CoreInstance, error) {
	attr, ok := body.Attributes["body"]
	if !ok {
		return nil, nil
	}
	exprs := []hclsyntax.Expression{attr.Expr}
	if tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr); ok {
		exprs = tuple.Exprs
	}
	out := make([]model.CoreInstance, 0, len(exprs))
	for _, expr := range exprs {
		value, err := c.Expression(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// Expression converts an HCL expression to a value specification.
// Traversals are variable references followed by property accesses,
// enum("path::E", "VALUE") denotes an enum value, constants are literals.
func (c *Context) Expression(expr hclsyntax.Expression) (model.CoreInstance, error) {
	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return c.Expression(e.Expression)
	case *hclsyntax.ScopeTraversalExpr:
		return c.traversal(e.Traversal)
	case *hclsyntax.FunctionCallExpr:
		return c.call(e)
	}
	if len(expr.Variables()) > 0 {
		return nil, c.Errorf(expr.Range(), "Unsupported expression")
	}
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	literal, err := c.literal(value, expr.Range())
	if err != nil {
		return nil, err
	}
	return c.instanceValue(literal, expr.Range()), nil
}

func (c *Context) traversal(traversal hcl.Traversal) (model.CoreInstance, error) {
	repo := c.Repository()
	root, ok := traversal[0].(hcl.TraverseRoot)
	if !ok {
		return nil, c.Errorf(traversal.SourceRange(), "Expected a variable")
	}
	current := repo.NewAnonymousInstance(c.Class(metamodel.VariableExpression), c.Source(root.SrcRange))
	current.SetKeyValues(metamodel.KeyVariableName, []model.CoreInstance{repo.NewString(root.Name)})
	for _, step := range traversal[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return nil, c.Errorf(step.SourceRange(), "Only property access is supported")
		}
		at := c.Source(hcl.RangeBetween(root.SrcRange, attr.SrcRange))
		access := repo.NewAnonymousInstance(c.Class(metamodel.SimpleFunctionExpression), at)
		access.SetKeyValues(metamodel.KeyExpressionPropertyName, []model.CoreInstance{repo.NewString(attr.Name)})
		access.SetKeyValues(metamodel.KeyParametersValues, []model.CoreInstance{current})
		current = access
	}
	return current, nil
}

func (c *Context) call(e *hclsyntax.FunctionCallExpr) (model.CoreInstance, error) {
	if e.Name != "enum" || len(e.Args) != 2 {
		return nil, c.Errorf(e.NameRange, "Unsupported function '%s'", e.Name)
	}
	enumeration, err := c.String(e.Args[0])
	if err != nil {
		return nil, err
	}
	name, err := c.String(e.Args[1])
	if err != nil {
		return nil, err
	}
	stub := c.EnumStub(enumeration, name, c.Source(e.Range()))
	return c.instanceValue(stub, e.Range()), nil
}

func (c *Context) instanceValue(value model.CoreInstance, rng hcl.Range) model.CoreInstance {
	iv := c.Repository().NewAnonymousInstance(c.Class(metamodel.InstanceValue), c.Source(rng))
	iv.SetKeyValues(metamodel.KeyInstanceValues, []model.CoreInstance{value})
	return iv
}

func (c *Context) literal(value cty.Value, rng hcl.Range) (model.CoreInstance, error) {
	repo := c.Repository()
	if value.IsNull() || !value.IsKnown() {
		return nil, c.Errorf(rng, "Expected a literal value")
	}
	switch value.Type() {
	case cty.String:
		return repo.NewString(value.AsString()), nil
	case cty.Bool:
		return repo.NewBoolean(value.True()), nil
	case cty.Number:
		var i int64
		if err := gocty.FromCtyValue(value, &i); err == nil {
			return repo.NewInteger(i), nil
		}
		var f float64
		if err := gocty.FromCtyValue(value, &f); err != nil {
			return nil, c.Errorf(rng, "Invalid number: %v", err)
		}
		return repo.NewFloat(f), nil
	default:
		return nil, c.Errorf(rng, "Unsupported literal of type %s", value.Type().FriendlyName())
	}
}
