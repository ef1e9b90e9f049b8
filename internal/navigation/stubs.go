package navigation

import (
	"sort"
	"strings"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// IsStub reports whether instance is an import, property or enum stub.
func (s *Support) IsStub(instance model.CoreInstance) bool {
	return s.ClassifierIs(instance, metamodel.ImportStub) ||
		s.ClassifierIs(instance, metamodel.PropertyStub) ||
		s.ClassifierIs(instance, metamodel.EnumStub)
}

// WithImportStubByPass returns the instance a value denotes: stubs are
// resolved (and the result cached on the stub), other values are returned
// unchanged. Resolution failures are compilation errors.
func (s *Support) WithImportStubByPass(value model.CoreInstance) (model.CoreInstance, error) {
	switch {
	case value == nil:
		return nil, nil
	case s.ClassifierIs(value, metamodel.ImportStub):
		return s.resolveImportStub(value)
	case s.ClassifierIs(value, metamodel.PropertyStub):
		return s.resolvePropertyStub(value)
	case s.ClassifierIs(value, metamodel.EnumStub):
		return s.resolveEnumStub(value)
	default:
		return value, nil
	}
}

// WithImportStubByPasses applies WithImportStubByPass to every value.
func (s *Support) WithImportStubByPasses(values []model.CoreInstance) ([]model.CoreInstance, error) {
	out := make([]model.CoreInstance, 0, len(values))
	for _, v := range values {
		resolved, err := s.WithImportStubByPass(v)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// WithImportStubByPassDoNotResolve returns the cached resolution of a stub,
// or nil when it has not been resolved. It never resolves and never fails.
func (s *Support) WithImportStubByPassDoNotResolve(value model.CoreInstance) model.CoreInstance {
	switch {
	case value == nil:
		return nil
	case s.ClassifierIs(value, metamodel.ImportStub):
		return value.ValueToOne(metamodel.PropResolvedNode)
	case s.ClassifierIs(value, metamodel.PropertyStub):
		return value.ValueToOne(metamodel.PropResolvedProperty)
	case s.ClassifierIs(value, metamodel.EnumStub):
		return value.ValueToOne(metamodel.PropResolvedEnum)
	default:
		return value
	}
}

// CleanImportStub clears the cached resolution of an import stub. Values
// that are not import stubs are left alone; cleaning twice is a no-op.
func (s *Support) CleanImportStub(value model.CoreInstance) {
	if s.ClassifierIs(value, metamodel.ImportStub) {
		value.RemoveProperty(metamodel.PropResolvedNode)
	}
}

// CleanPropertyStub clears a property stub and the stub of its owner.
func (s *Support) CleanPropertyStub(value model.CoreInstance) {
	if s.ClassifierIs(value, metamodel.PropertyStub) {
		value.RemoveProperty(metamodel.PropResolvedProperty)
		s.CleanImportStub(value.ValueToOne(metamodel.PropOwner))
	}
}

// CleanEnumStub clears an enum stub and the stub of its enumeration.
func (s *Support) CleanEnumStub(value model.CoreInstance) {
	if s.ClassifierIs(value, metamodel.EnumStub) {
		value.RemoveProperty(metamodel.PropResolvedEnum)
		s.CleanImportStub(value.ValueToOne(metamodel.PropEnumeration))
	}
}

// CleanStub clears any kind of stub.
func (s *Support) CleanStub(value model.CoreInstance) {
	s.CleanImportStub(value)
	s.CleanPropertyStub(value)
	s.CleanEnumStub(value)
}

func (s *Support) resolveImportStub(stub model.CoreInstance) (model.CoreInstance, error) {
	if resolved := stub.ValueToOne(metamodel.PropResolvedNode); resolved != nil {
		return resolved, nil
	}
	id := StringValue(stub, metamodel.PropIDOrPath)
	group := stub.ValueToOne(metamodel.PropImportGroup)
	source := stub.SourceInformation()

	var (
		resolved model.CoreInstance
		err      error
	)
	switch {
	case strings.Contains(id, "@"):
		resolved, err = s.resolveProfileMember(id, "@", group, source)
	case strings.Contains(id, "%"):
		resolved, err = s.resolveProfileMember(id, "%", group, source)
	default:
		resolved, err = s.ResolveID(id, group, source)
	}
	if err != nil {
		return nil, err
	}
	stub.SetKeyValues(metamodel.KeyResolvedNode, []model.CoreInstance{resolved})
	return resolved, nil
}

func (s *Support) resolveProfileMember(id, sep string, group model.CoreInstance, source *model.SourceInformation) (model.CoreInstance, error) {
	profileID, member, _ := strings.Cut(id, sep)
	profile, err := s.ResolveID(profileID, group, source)
	if err != nil {
		return nil, err
	}
	if sep == "@" {
		if st := FindStereotype(profile, member); st != nil {
			return st, nil
		}
		return nil, cerrors.NewUnknownStereotype(source, member, s.UserPath(profile))
	}
	if tag := FindTag(profile, member); tag != nil {
		return tag, nil
	}
	return nil, cerrors.NewUnknownTag(source, member, s.UserPath(profile))
}

// ResolveID resolves a type or element identifier in the context of an
// import group: special types first, then full paths, then the imported
// packages, then the root package.
func (s *Support) ResolveID(id string, group model.CoreInstance, source *model.SourceInformation) (model.CoreInstance, error) {
	if metamodel.SpecialTypes[id] {
		if found := s.repo.TopLevel(id); found != nil {
			return found, nil
		}
	}
	if strings.Contains(id, "::") {
		if found := s.PackageByUserPath(id); found != nil {
			return found, nil
		}
		return nil, cerrors.NewUndefined(source, id)
	}

	var candidates []model.CoreInstance
	seen := map[model.CoreInstance]bool{}
	for _, path := range s.ImportPaths(group) {
		pkg := s.PackageByUserPath(path)
		if pkg == nil {
			continue
		}
		if found := model.ValueByName(pkg, metamodel.PropChildren, id); found != nil && !seen[found] {
			seen[found] = true
			candidates = append(candidates, found)
		}
	}
	switch len(candidates) {
	case 0:
		if found := model.ValueByName(s.meta.Root(), metamodel.PropChildren, id); found != nil {
			return found, nil
		}
		return nil, cerrors.NewUndefined(source, id)
	case 1:
		return candidates[0], nil
	default:
		paths := make([]string, len(candidates))
		for i, c := range candidates {
			paths[i] = s.UserPath(c)
		}
		sort.Strings(paths)
		return nil, cerrors.NewAmbiguousImport(source, id, paths)
	}
}

// ImportPaths returns the package paths an import group makes visible,
// followed by the default imports.
func (s *Support) ImportPaths(group model.CoreInstance) []string {
	var paths []string
	if group != nil {
		for _, imp := range group.ValuesToMany(metamodel.PropImports) {
			paths = append(paths, StringValue(imp, metamodel.PropPath))
		}
	}
	return append(paths, DefaultImports...)
}

func (s *Support) resolvePropertyStub(stub model.CoreInstance) (model.CoreInstance, error) {
	if resolved := stub.ValueToOne(metamodel.PropResolvedProperty); resolved != nil {
		return resolved, nil
	}
	owner, err := s.WithImportStubByPass(stub.ValueToOne(metamodel.PropOwner))
	if err != nil {
		return nil, err
	}
	name := StringValue(stub, metamodel.PropPropertyName)
	property, err := s.ClassPropertyByName(owner, name)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, cerrors.NewUnknownProperty(stub.SourceInformation(), name, s.UserPath(owner))
	}
	stub.SetKeyValues(metamodel.KeyResolvedProperty, []model.CoreInstance{property})
	return property, nil
}

func (s *Support) resolveEnumStub(stub model.CoreInstance) (model.CoreInstance, error) {
	if resolved := stub.ValueToOne(metamodel.PropResolvedEnum); resolved != nil {
		return resolved, nil
	}
	enumeration, err := s.WithImportStubByPass(stub.ValueToOne(metamodel.PropEnumeration))
	if err != nil {
		return nil, err
	}
	name := StringValue(stub, metamodel.PropEnumName)
	value := model.ValueByName(enumeration, metamodel.PropValues, name)
	if value == nil {
		return nil, cerrors.NewUnknownEnumValue(stub.SourceInformation(), name, s.UserPath(enumeration))
	}
	stub.SetKeyValues(metamodel.KeyResolvedEnum, []model.CoreInstance{value})
	return value, nil
}

// FindStereotype returns the stereotype of a profile with the given value.
func FindStereotype(profile model.CoreInstance, value string) model.CoreInstance {
	return model.ValueByName(profile, metamodel.PropPStereotypes, value)
}

// FindTag returns the tag of a profile with the given value.
func FindTag(profile model.CoreInstance, value string) model.CoreInstance {
	return model.ValueByName(profile, metamodel.PropPTags, value)
}
