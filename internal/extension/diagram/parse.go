package diagram

import (
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/conduit-lang/metacore/internal/compiler/parser"
	"github.com/conduit-lang/metacore/internal/model"
)

type block struct{}

func (block) BlockType() string { return "diagram" }
func (block) ClassPath() string { return Diagram }

func (block) Parse(ctx *parser.Context, b *hclsyntax.Block, diagram model.CoreInstance) error {
	if err := ctx.CheckBody(b.Body, []string{"stereotypes", "tagged_values"}, []string{"type_view", "property_view"}); err != nil {
		return err
	}
	if err := ctx.Stereotypes(b.Body, diagram); err != nil {
		return err
	}
	if err := ctx.TaggedValues(b.Body, diagram); err != nil {
		return err
	}
	for _, nested := range b.Body.Blocks {
		switch nested.Type {
		case "type_view":
			view, err := parseTypeView(ctx, nested)
			if err != nil {
				return err
			}
			diagram.AddKeyValue(keyTypeViews, view)
		case "property_view":
			view, err := parsePropertyView(ctx, nested)
			if err != nil {
				return err
			}
			diagram.AddKeyValue(keyPropertyViews, view)
		}
	}
	return nil
}

func viewID(ctx *parser.Context, b *hclsyntax.Block) (string, error) {
	if len(b.Labels) != 1 {
		return "", ctx.Errorf(b.TypeRange, "Block '%s' takes exactly one label, its id", b.Type)
	}
	return b.Labels[0], nil
}

func parseTypeView(ctx *parser.Context, b *hclsyntax.Block) (model.CoreInstance, error) {
	if err := ctx.CheckBody(b.Body, []string{"type", "position"}, nil); err != nil {
		return nil, err
	}
	id, err := viewID(ctx, b)
	if err != nil {
		return nil, err
	}
	repo := ctx.Repository()
	view := repo.NewInstance(id, ctx.Class(TypeView), ctx.ElementSource(b))
	view.SetKeyValues(keyTypeViewID, []model.CoreInstance{repo.NewString(id)})

	typeID, attr, err := ctx.RequiredString(b.Body, "type", b.OpenBraceRange)
	if err != nil {
		return nil, err
	}
	view.SetKeyValues(keyTypeViewType, []model.CoreInstance{ctx.ImportStub(typeID, ctx.Source(attr.Expr.Range()))})

	if attr, ok := b.Body.Attributes["position"]; ok {
		var position []float64
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &position); diags.HasErrors() || len(position) != 2 {
			return nil, ctx.Errorf(attr.Expr.Range(), "position must be a list of two numbers")
		}
		view.SetKeyValues(keyTypeViewX, []model.CoreInstance{repo.NewFloat(position[0])})
		view.SetKeyValues(keyTypeViewY, []model.CoreInstance{repo.NewFloat(position[1])})
	}
	return view, nil
}

// parsePropertyView reads a property view. The property is written
// Type.property and the ends name type views of the same diagram.
func parsePropertyView(ctx *parser.Context, b *hclsyntax.Block) (model.CoreInstance, error) {
	if err := ctx.CheckBody(b.Body, []string{"property", "source", "target"}, nil); err != nil {
		return nil, err
	}
	id, err := viewID(ctx, b)
	if err != nil {
		return nil, err
	}
	repo := ctx.Repository()
	view := repo.NewInstance(id, ctx.Class(PropertyView), ctx.ElementSource(b))
	view.SetKeyValues(keyPropertyViewID, []model.CoreInstance{repo.NewString(id)})

	ref, attr, err := ctx.RequiredString(b.Body, "property", b.OpenBraceRange)
	if err != nil {
		return nil, err
	}
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil, ctx.Errorf(attr.Expr.Range(), "Expected Type.property, found '%s'", ref)
	}
	view.SetKeyValues(keyPropertyViewRef, []model.CoreInstance{ctx.PropertyStub(ref[:i], ref[i+1:], ctx.Source(attr.Expr.Range()))})

	for _, end := range []struct {
		attr string
		key  []string
	}{{"source", keySource}, {"target", keyTarget}} {
		value, _, err := ctx.RequiredString(b.Body, end.attr, b.OpenBraceRange)
		if err != nil {
			return nil, err
		}
		view.SetKeyValues(end.key, []model.CoreInstance{repo.NewString(value)})
	}
	return view, nil
}
