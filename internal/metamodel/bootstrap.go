package metamodel

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/metacore/internal/model"
)

// Metamodel gives typed access to the bootstrapped platform instances of a repository.
type Metamodel struct {
	repo     *model.Repository
	root     model.CoreInstance
	classes  map[string]model.CoreInstance
	defs     map[string]ClassDef
	order    []string
	platform map[model.CoreInstance]bool
	shared   map[[2]int]model.CoreInstance
	nextLine int
}

// Bootstrap installs the metamodel, primitive types, shared multiplicities
// and platform profiles into repo. Extension metaclasses are installed
// alongside the core ones.
func Bootstrap(repo *model.Repository, extensions ...ClassDef) (*Metamodel, error) {
	m := &Metamodel{
		repo:     repo,
		classes:  make(map[string]model.CoreInstance),
		defs:     make(map[string]ClassDef),
		platform: make(map[model.CoreInstance]bool),
		shared:   make(map[[2]int]model.CoreInstance),
		nextLine: 1,
	}

	defs := append(append([]ClassDef{}, CoreClasses...), extensions...)
	for _, def := range defs {
		if _, dup := m.defs[def.Path]; dup {
			return nil, fmt.Errorf("metaclass %s is declared more than once", def.Path)
		}
		m.defs[def.Path] = def
		m.order = append(m.order, def.Path)
	}

	// Classes first, without classifiers: Class is its own classifier.
	sources := make(map[string]*model.SourceInformation, len(defs))
	for _, def := range defs {
		source := m.block(len(def.Properties) + 2)
		sources[def.Path] = source
		m.classes[def.Path] = repo.NewInstance(lastSegment(def.Path), nil, source)
	}
	for _, class := range m.classes {
		class.SetClassifier(m.classes[Class])
	}

	m.root = repo.NewInstance(Root, m.classes[Package], nil)
	m.root.SetKeyValues(KeyElementName, []model.CoreInstance{repo.NewString(Root)})
	m.platform[m.root] = true
	repo.AddTopLevel(m.root)
	repo.AddTopLevel(m.classes[Package])
	repo.AddTopLevel(m.classes[Any])
	repo.AddTopLevel(m.classes[NilClass])

	for _, name := range PrimitiveTypes {
		primitive := repo.NewInstance(name, m.classes[PrimitiveType], m.block(1))
		m.register(m.root, primitive)
		repo.AddTopLevel(primitive)
	}

	for _, def := range defs {
		class := m.classes[def.Path]
		if def.Path != Package {
			m.register(m.ensurePlatformPackage(packageOf(def.Path)), class)
		} else {
			m.register(m.root, class)
		}
	}

	for _, spec := range []struct {
		path         string
		lower, upper int
	}{{PureOne, 1, 1}, {ZeroOne, 0, 1}, {ZeroMany, 0, Unbounded}, {OneMany, 1, Unbounded}} {
		mult := repo.NewInstance(lastSegment(spec.path), m.classes[Multiplicity], m.block(1))
		mult.SetKeyValues(KeyLowerBound, []model.CoreInstance{repo.NewInteger(int64(spec.lower))})
		if spec.upper != Unbounded {
			mult.SetKeyValues(KeyUpperBound, []model.CoreInstance{repo.NewInteger(int64(spec.upper))})
		}
		m.register(m.ensurePlatformPackage(MultiplicityPkg), mult)
		m.shared[[2]int{spec.lower, spec.upper}] = mult
	}

	for _, def := range defs {
		if err := m.installProperties(def, sources[def.Path]); err != nil {
			return nil, err
		}
	}

	m.installProfile(TemporalProfile, []string{BusinessTemporal, ProcessingTemporal, BiTemporal}, nil)
	m.installProfile(MilestoningProfile, []string{GeneratedMilestoningProperty, GeneratedMilestoningDateProperty}, nil)
	m.installProfile(DocProfile, []string{"deprecated"}, []string{"doc", "todo"})
	m.ensurePlatformPackage(ImportsPackage)

	return m, nil
}

func (m *Metamodel) installProperties(def ClassDef, source *model.SourceInformation) error {
	class := m.classes[def.Path]
	for _, super := range def.Supers {
		general, ok := m.classes[super]
		if !ok {
			return fmt.Errorf("metaclass %s extends unknown class %s", def.Path, super)
		}
		generalization := m.repo.NewAnonymousInstance(m.classes[Generalization], m.line(source, 0))
		generalization.SetKeyValues(KeyGeneral, []model.CoreInstance{m.genericType(general, m.line(source, 0))})
		generalization.SetKeyValues(KeySpecific, []model.CoreInstance{class})
		class.AddKeyValue(KeyGeneralizations, generalization)
		general.AddKeyValue(KeySpecializations, generalization)
	}
	for i, prop := range def.Properties {
		raw := m.Type(prop.Type)
		if raw == nil {
			return fmt.Errorf("property %s.%s has unknown type %s", def.Path, prop.Name, prop.Type)
		}
		at := m.line(source, i+1)
		property := m.repo.NewInstance(prop.Name, m.classes[Property], at)
		property.SetKeyValues(KeyPropertyName, []model.CoreInstance{m.repo.NewString(prop.Name)})
		property.SetKeyValues(KeyPropertyOwner, []model.CoreInstance{class})
		property.SetKeyValues(KeyPropertyGenericType, []model.CoreInstance{m.genericType(raw, at)})
		property.SetKeyValues(KeyPropertyMultiplicity, []model.CoreInstance{m.multiplicity(prop.Lower, prop.Upper, at)})
		class.AddKeyValue(KeyClassProperties, property)
	}
	return nil
}

func (m *Metamodel) installProfile(path string, stereotypes, tags []string) {
	profile := m.repo.NewInstance(lastSegment(path), m.classes[Profile], m.block(len(stereotypes)+len(tags)+1))
	source := profile.SourceInformation()
	for i, value := range stereotypes {
		st := m.repo.NewInstance(value, m.classes[Stereotype], m.line(source, i+1))
		st.SetKeyValues(KeyStereotypeValue, []model.CoreInstance{m.repo.NewString(value)})
		st.SetKeyValues(KeyStereotypeProfile, []model.CoreInstance{profile})
		profile.AddKeyValue(KeyPStereotypes, st)
	}
	for i, value := range tags {
		tag := m.repo.NewInstance(value, m.classes[Tag], m.line(source, len(stereotypes)+i+1))
		tag.SetKeyValues(KeyTagValue, []model.CoreInstance{m.repo.NewString(value)})
		tag.SetKeyValues(KeyTagProfile, []model.CoreInstance{profile})
		profile.AddKeyValue(KeyPTags, tag)
	}
	m.register(m.ensurePlatformPackage(packageOf(path)), profile)
}

func (m *Metamodel) genericType(raw model.CoreInstance, source *model.SourceInformation) model.CoreInstance {
	gt := m.repo.NewAnonymousInstance(m.classes[GenericType], source)
	gt.SetKeyValues(KeyRawType, []model.CoreInstance{raw})
	return gt
}

func (m *Metamodel) multiplicity(lower, upper int, source *model.SourceInformation) model.CoreInstance {
	if shared := m.SharedMultiplicity(lower, upper); shared != nil {
		return shared
	}
	return m.NewMultiplicity(lower, upper, source)
}

// block reserves a span of platform source lines for one element.
func (m *Metamodel) block(lines int) *model.SourceInformation {
	start := m.nextLine
	m.nextLine += lines + 1
	return model.NewSourceInformation(PlatformSourceID, start, 1, start+lines, 1)
}

// line returns a span on one line of an element block.
func (m *Metamodel) line(block *model.SourceInformation, offset int) *model.SourceInformation {
	return model.NewSourceInformation(block.SourceID, block.StartLine+offset, 1, block.StartLine+offset, 80)
}

func (m *Metamodel) ensurePlatformPackage(path string) model.CoreInstance {
	pkg, created := m.EnsurePackage(path)
	for _, p := range created {
		m.platform[p] = true
	}
	return pkg
}

func (m *Metamodel) register(pkg, element model.CoreInstance) {
	element.SetKeyValues(KeyElementName, []model.CoreInstance{m.repo.NewString(element.Name())})
	element.SetKeyValues(KeyPackage, []model.CoreInstance{pkg})
	pkg.AddKeyValue(KeyChildren, element)
}

// Repository returns the repository the metamodel was installed into.
func (m *Metamodel) Repository() *model.Repository { return m.repo }

// Root returns the root package.
func (m *Metamodel) Root() model.CoreInstance { return m.root }

// Class returns the metaclass at path, or nil.
func (m *Metamodel) Class(path string) model.CoreInstance { return m.classes[path] }

// ClassDef returns the declaration of the metaclass at path.
func (m *Metamodel) ClassDef(path string) (ClassDef, bool) {
	def, ok := m.defs[path]
	return def, ok
}

// ClassPaths returns the metaclass paths in declaration order.
func (m *Metamodel) ClassPaths() []string { return append([]string(nil), m.order...) }

// Type returns a metaclass or primitive type by path or name.
func (m *Metamodel) Type(path string) model.CoreInstance {
	if class, ok := m.classes[path]; ok {
		return class
	}
	return m.repo.TopLevel(path)
}

// IsPlatformPackage reports whether pkg was created by Bootstrap.
func (m *Metamodel) IsPlatformPackage(pkg model.CoreInstance) bool { return m.platform[pkg] }

// IsPlatform reports whether an instance is defined by the platform source.
func IsPlatform(instance model.CoreInstance) bool {
	source := instance.SourceInformation()
	return source != nil && source.SourceID == PlatformSourceID
}

// SharedMultiplicity returns the shared multiplicity instance for the bounds, or nil.
func (m *Metamodel) SharedMultiplicity(lower, upper int) model.CoreInstance {
	return m.shared[[2]int{lower, upper}]
}

// NewMultiplicity creates an anonymous multiplicity instance.
func (m *Metamodel) NewMultiplicity(lower, upper int, source *model.SourceInformation) model.CoreInstance {
	mult := m.repo.NewAnonymousInstance(m.classes[Multiplicity], source)
	mult.SetKeyValues(KeyLowerBound, []model.CoreInstance{m.repo.NewInteger(int64(lower))})
	if upper != Unbounded {
		mult.SetKeyValues(KeyUpperBound, []model.CoreInstance{m.repo.NewInteger(int64(upper))})
	}
	return mult
}

// EnsurePackage returns the package at path, creating missing packages.
// The created packages are returned outermost first.
func (m *Metamodel) EnsurePackage(path string) (model.CoreInstance, []model.CoreInstance) {
	pkg := m.root
	if path == "" || path == Root {
		return pkg, nil
	}
	var created []model.CoreInstance
	for _, name := range strings.Split(path, "::") {
		child := model.ValueByName(pkg, PropChildren, name)
		if child == nil {
			child = m.repo.NewInstance(name, m.classes[Package], nil)
			m.register(pkg, child)
			created = append(created, child)
		}
		pkg = child
	}
	return pkg, created
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}

func packageOf(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[:i]
	}
	return ""
}

// SplitPath splits an element path into its package path and name.
func SplitPath(path string) (pkg, name string) {
	return packageOf(path), lastSegment(path)
}
