// Package navigation answers structural questions about a compiled graph:
// element paths, classifier hierarchies, property lookup and stub resolution.
package navigation

import (
	"strings"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// DefaultImports are searched after the imports of a source.
var DefaultImports = []string{
	metamodel.ProfilesPackage,
	metamodel.TypePackage,
	metamodel.MilestoningPkg,
}

// Support wraps a repository and its metamodel. It holds no mutable state
// of its own; resolution results are cached on the stubs themselves.
type Support struct {
	repo *model.Repository
	meta *metamodel.Metamodel
}

// NewSupport creates a Support for a bootstrapped repository.
func NewSupport(meta *metamodel.Metamodel) *Support {
	return &Support{repo: meta.Repository(), meta: meta}
}

func (s *Support) Repository() *model.Repository        { return s.repo }
func (s *Support) Metamodel() *metamodel.Metamodel      { return s.meta }
func (s *Support) Class(path string) model.CoreInstance { return s.meta.Class(path) }

// UserPath returns the package path of an element, e.g. my::model::Person.
// Elements of the root package are addressed by name alone.
func (s *Support) UserPath(element model.CoreInstance) string {
	if element == nil {
		return ""
	}
	if element == s.meta.Root() {
		return metamodel.Root
	}
	pkg := element.ValueToOne(metamodel.PropPackage)
	if pkg == nil || pkg == s.meta.Root() {
		return element.Name()
	}
	return s.UserPath(pkg) + "::" + element.Name()
}

// IsPackageable reports whether an instance is addressed by a package path.
func (s *Support) IsPackageable(instance model.CoreInstance) bool {
	return instance == s.meta.Root() || instance.ValueToOne(metamodel.PropPackage) != nil
}

// PackageByUserPath finds an element by its path, or returns nil.
func (s *Support) PackageByUserPath(path string) model.CoreInstance {
	if path == "" || path == metamodel.Root || path == "::" {
		return s.meta.Root()
	}
	current := s.meta.Root()
	for _, name := range strings.Split(path, "::") {
		current = model.ValueByName(current, metamodel.PropChildren, name)
		if current == nil {
			if !strings.Contains(path, "::") {
				return s.repo.TopLevel(path)
			}
			return nil
		}
	}
	return current
}

// InstanceOf reports whether the classifier of instance is classPath or one of its subtypes.
func (s *Support) InstanceOf(instance model.CoreInstance, classPath string) bool {
	if instance == nil {
		return false
	}
	target := s.meta.Class(classPath)
	if target == nil {
		return false
	}
	classifier := instance.Classifier()
	if classifier == nil {
		return false
	}
	return s.IsSubType(classifier, target)
}

// ClassifierIs reports whether the classifier of instance is exactly classPath.
func (s *Support) ClassifierIs(instance model.CoreInstance, classPath string) bool {
	return instance != nil && instance.Classifier() != nil && instance.Classifier() == s.meta.Class(classPath)
}

// IsSubType reports whether typ equals general or inherits from it.
// Unresolvable generalizations are skipped.
func (s *Support) IsSubType(typ, general model.CoreInstance) bool {
	for _, t := range s.TypeGeneralizationsLenient(typ) {
		if t == general {
			return true
		}
	}
	return false
}

// TypeGeneralizations returns typ followed by its supertypes, breadth
// first and without duplicates, resolving generalization stubs.
func (s *Support) TypeGeneralizations(typ model.CoreInstance) ([]model.CoreInstance, error) {
	return s.generalizations(typ, true)
}

// TypeGeneralizationsLenient is TypeGeneralizations ignoring resolution failures.
func (s *Support) TypeGeneralizationsLenient(typ model.CoreInstance) []model.CoreInstance {
	out, _ := s.generalizations(typ, false)
	return out
}

func (s *Support) generalizations(typ model.CoreInstance, strict bool) ([]model.CoreInstance, error) {
	seen := map[model.CoreInstance]bool{typ: true}
	out := []model.CoreInstance{typ}
	for i := 0; i < len(out); i++ {
		for _, g := range out[i].ValuesToMany(metamodel.PropGeneralizations) {
			general, err := s.generalType(g)
			if err != nil {
				if strict {
					return nil, err
				}
				continue
			}
			if general != nil && !seen[general] {
				seen[general] = true
				out = append(out, general)
			}
		}
	}
	return out, nil
}

func (s *Support) generalType(generalization model.CoreInstance) (model.CoreInstance, error) {
	gt := generalization.ValueToOne(metamodel.PropGeneral)
	if gt == nil {
		return nil, nil
	}
	return s.WithImportStubByPass(gt.ValueToOne(metamodel.PropRawType))
}

// PropertyDef finds the declaration of a metaclass property, searching
// the classifier and its supertypes.
func (s *Support) PropertyDef(classifier model.CoreInstance, name string) (metamodel.PropertyDef, string, bool) {
	for _, t := range s.TypeGeneralizationsLenient(classifier) {
		path := s.UserPath(t)
		def, ok := s.meta.ClassDef(path)
		if !ok {
			continue
		}
		for _, p := range def.Properties {
			if p.Name == name {
				return p, path, true
			}
		}
	}
	return metamodel.PropertyDef{}, "", false
}

// RealKey returns the real key of a property of instance: the key it is
// stored under, or the key derived from the declaring metaclass.
func (s *Support) RealKey(instance model.CoreInstance, name string) []string {
	if key := instance.RealKey(name); key != nil {
		return key
	}
	if classifier := instance.Classifier(); classifier != nil {
		if _, owner, ok := s.PropertyDef(classifier, name); ok {
			return metamodel.Key(owner, name)
		}
	}
	return nil
}

// IsToOne reports whether a property of instance holds at most one value.
// Undeclared properties are treated as to-many.
func (s *Support) IsToOne(instance model.CoreInstance, name string) bool {
	if classifier := instance.Classifier(); classifier != nil {
		if def, _, ok := s.PropertyDef(classifier, name); ok {
			return def.ToOne()
		}
	}
	return false
}

// StringValue returns the literal of a to-one String property, or "".
func StringValue(instance model.CoreInstance, property string) string {
	v := instance.ValueToOne(property)
	if v == nil {
		return ""
	}
	if p, ok := v.Primitive(); ok {
		if str, ok := p.(string); ok {
			return str
		}
	}
	return v.Name()
}

// IntValue returns the literal of a to-one Integer property.
func IntValue(instance model.CoreInstance, property string) (int64, bool) {
	v := instance.ValueToOne(property)
	if v == nil {
		return 0, false
	}
	p, ok := v.Primitive()
	if !ok {
		return 0, false
	}
	n, ok := p.(int64)
	return n, ok
}
