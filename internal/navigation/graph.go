package navigation

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// AddReferenceUsage records on target that owner refers to it through property at offset.
func (s *Support) AddReferenceUsage(target, owner model.CoreInstance, property string, offset int) {
	if target == nil {
		return
	}
	usage := s.repo.NewAnonymousInstance(s.meta.Class(metamodel.ReferenceUsage), nil)
	usage.SetKeyValues(metamodel.KeyUsageOwner, []model.CoreInstance{owner})
	usage.SetKeyValues(metamodel.KeyUsagePropertyName, []model.CoreInstance{s.repo.NewString(property)})
	usage.SetKeyValues(metamodel.KeyUsageOffset, []model.CoreInstance{s.repo.NewInteger(int64(offset))})
	target.AddKeyValue(metamodel.KeyReferenceUsages, usage)
}

// RemoveReferenceUsage removes the usage recorded by AddReferenceUsage. It
// does nothing when the usage is absent; the last removal drops the key.
func (s *Support) RemoveReferenceUsage(target, owner model.CoreInstance, property string, offset int) bool {
	if target == nil {
		return false
	}
	for _, usage := range target.ValuesToMany(metamodel.PropReferenceUsages) {
		if usage.ValueToOne(metamodel.PropOwner) != owner || StringValue(usage, metamodel.PropPropertyName) != property {
			continue
		}
		if n, _ := IntValue(usage, metamodel.PropOffset); int(n) != offset {
			continue
		}
		return target.RemoveValue(metamodel.PropReferenceUsages, usage)
	}
	return false
}

// ReferenceUsageOwners returns the owners recorded in the reference usages of target.
func ReferenceUsageOwners(target model.CoreInstance) []model.CoreInstance {
	var owners []model.CoreInstance
	for _, usage := range target.ValuesToMany(metamodel.PropReferenceUsages) {
		if owner := usage.ValueToOne(metamodel.PropOwner); owner != nil {
			owners = append(owners, owner)
		}
	}
	return owners
}

// AddValueToProperty appends value under the real key of property on instance.
func (s *Support) AddValueToProperty(instance model.CoreInstance, property string, value model.CoreInstance) {
	key := s.RealKey(instance, property)
	if key == nil {
		key = []string{property}
	}
	instance.AddKeyValue(key, value)
}

// SetValueForProperty replaces the values of property on instance with value.
func (s *Support) SetValueForProperty(instance model.CoreInstance, property string, value model.CoreInstance) {
	key := s.RealKey(instance, property)
	if key == nil {
		key = []string{property}
	}
	instance.SetKeyValues(key, []model.CoreInstance{value})
}

// RemoveValueFromProperty removes value from property, dropping the key when it empties.
func RemoveValueFromProperty(instance model.CoreInstance, property string, value model.CoreInstance) bool {
	return instance.RemoveValue(property, value)
}

// AddChild registers element in pkg.
func (s *Support) AddChild(pkg, element model.CoreInstance) {
	element.SetKeyValues(metamodel.KeyPackage, []model.CoreInstance{pkg})
	pkg.AddKeyValue(metamodel.KeyChildren, element)
}

// RemoveChild unregisters element from its package and prunes packages
// left empty, except those created by the platform.
func (s *Support) RemoveChild(element model.CoreInstance) {
	pkg := element.ValueToOne(metamodel.PropPackage)
	element.RemoveProperty(metamodel.PropPackage)
	for pkg != nil {
		pkg.RemoveValue(metamodel.PropChildren, element)
		if pkg.IsValueDefined(metamodel.PropChildren) || s.meta.IsPlatformPackage(pkg) {
			return
		}
		element = pkg
		pkg = pkg.ValueToOne(metamodel.PropPackage)
		element.RemoveProperty(metamodel.PropPackage)
	}
}

// Elements returns every packageable element reachable from the root
// package, packages included, in depth-first order.
func (s *Support) Elements() []model.CoreInstance {
	var out []model.CoreInstance
	var walk func(model.CoreInstance)
	walk = func(pkg model.CoreInstance) {
		out = append(out, pkg)
		for _, child := range pkg.ValuesToMany(metamodel.PropChildren) {
			if s.ClassifierIs(child, metamodel.Package) {
				walk(child)
			} else {
				out = append(out, child)
			}
		}
	}
	walk(s.meta.Root())
	return out
}
