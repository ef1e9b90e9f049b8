// Package diagram adds diagrams to the metamodel. A diagram shows types as
// type views and the properties between them as property views; both refer
// to elements of other sources through stubs that are resolved when the
// diagram is bound.
package diagram

import (
	"github.com/conduit-lang/metacore/internal/compiler/parser"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/compiler/unbind"
	"github.com/conduit-lang/metacore/internal/compiler/validation"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/runtime"
)

// Metaclass paths.
const (
	Diagram      = "meta::pure::metamodel::diagram::Diagram"
	TypeView     = "meta::pure::metamodel::diagram::TypeView"
	PropertyView = "meta::pure::metamodel::diagram::PropertyView"
)

// Property names.
const (
	PropTypeViews     = "typeViews"
	PropPropertyViews = "propertyViews"
	PropType          = "type"
	PropProperty      = "property"
	PropSource        = "source"
	PropTarget        = "target"
	PropX             = "x"
	PropY             = "y"
)

var (
	keyTypeViews       = metamodel.Key(Diagram, PropTypeViews)
	keyPropertyViews   = metamodel.Key(Diagram, PropPropertyViews)
	keyTypeViewID      = metamodel.Key(TypeView, metamodel.PropID)
	keyTypeViewType    = metamodel.Key(TypeView, PropType)
	keyTypeViewX       = metamodel.Key(TypeView, PropX)
	keyTypeViewY       = metamodel.Key(TypeView, PropY)
	keyPropertyViewID  = metamodel.Key(PropertyView, metamodel.PropID)
	keyPropertyViewRef = metamodel.Key(PropertyView, PropProperty)
	keySource          = metamodel.Key(PropertyView, PropSource)
	keyTarget          = metamodel.Key(PropertyView, PropTarget)
)

func one(name, typ string) metamodel.PropertyDef {
	return metamodel.PropertyDef{Name: name, Type: typ, Lower: 1, Upper: 1}
}

func zeroOne(name, typ string) metamodel.PropertyDef {
	return metamodel.PropertyDef{Name: name, Type: typ, Lower: 0, Upper: 1}
}

func many(name, typ string) metamodel.PropertyDef {
	return metamodel.PropertyDef{Name: name, Type: typ, Lower: 0, Upper: metamodel.Unbounded}
}

// Extension registers diagrams with a runtime.
type Extension struct{}

var _ runtime.Extension = Extension{}

func (Extension) Name() string { return "diagram" }

func (Extension) ClassDefs() []metamodel.ClassDef {
	return []metamodel.ClassDef{
		{Path: Diagram, Supers: []string{metamodel.PackageableElement}, Properties: []metamodel.PropertyDef{
			many(PropTypeViews, TypeView),
			many(PropPropertyViews, PropertyView),
		}},
		{Path: TypeView, Supers: []string{metamodel.Any}, Properties: []metamodel.PropertyDef{
			one(metamodel.PropID, metamodel.String),
			one(PropType, metamodel.Type),
			zeroOne(PropX, metamodel.Float),
			zeroOne(PropY, metamodel.Float),
		}},
		{Path: PropertyView, Supers: []string{metamodel.Any}, Properties: []metamodel.PropertyDef{
			one(metamodel.PropID, metamodel.String),
			one(PropProperty, metamodel.AbstractProperty),
			one(PropSource, metamodel.String),
			one(PropTarget, metamodel.String),
		}},
	}
}

func (Extension) BlockParsers() []parser.BlockParser  { return []parser.BlockParser{block{}} }
func (Extension) Processors() []postprocess.Processor { return []postprocess.Processor{processor{}} }
func (Extension) Unbinders() []unbind.Unbinder        { return []unbind.Unbinder{unbinder{}} }
func (Extension) Validators() []validation.Validator  { return []validation.Validator{validator{}} }
