package metamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/model"
)

func TestBootstrap(t *testing.T) {
	repo := model.NewRepository()
	m, err := Bootstrap(repo)
	require.NoError(t, err)

	class := m.Class(Class)
	require.NotNil(t, class)
	assert.Same(t, class, class.Classifier(), "Class is its own classifier")
	assert.Same(t, m.Root(), repo.TopLevel(Root))

	for _, name := range PrimitiveTypes {
		primitive := repo.TopLevel(name)
		require.NotNil(t, primitive, name)
		assert.Same(t, m.Class(PrimitiveType), primitive.Classifier())
	}

	names := map[string]bool{}
	for _, p := range class.ValuesToMany(PropProperties) {
		names[p.Name()] = true
		assert.Same(t, class, p.ValueToOne(PropOwner))
	}
	assert.True(t, names[PropProperties])
	assert.True(t, names[PropPropertiesFromAssociations])
}

func TestBootstrap_Generalizations(t *testing.T) {
	repo := model.NewRepository()
	m, err := Bootstrap(repo)
	require.NoError(t, err)

	typ := m.Class(Type)
	specifics := map[string]bool{}
	for _, g := range typ.ValuesToMany(PropSpecializations) {
		specifics[g.ValueToOne(PropSpecific).Name()] = true
	}
	assert.True(t, specifics["Class"])
	assert.True(t, specifics["Enumeration"])
}

func TestBootstrap_Profiles(t *testing.T) {
	repo := model.NewRepository()
	m, err := Bootstrap(repo)
	require.NoError(t, err)

	pkg, created := m.EnsurePackage(ProfilesPackage)
	assert.Empty(t, created)
	temporal := model.ValueByName(pkg, PropChildren, "temporal")
	require.NotNil(t, temporal)
	assert.Len(t, temporal.ValuesToMany(PropPStereotypes), 3)
	assert.True(t, m.IsPlatformPackage(pkg))
	assert.True(t, IsPlatform(temporal))
}

func TestBootstrap_DuplicateExtension(t *testing.T) {
	_, err := Bootstrap(model.NewRepository(), ClassDef{Path: Class})
	assert.Error(t, err)
}

func TestEnsurePackage(t *testing.T) {
	repo := model.NewRepository()
	m, err := Bootstrap(repo)
	require.NoError(t, err)

	pkg, created := m.EnsurePackage("my::model")
	require.Len(t, created, 2)
	assert.Equal(t, "model", pkg.Name())
	assert.False(t, m.IsPlatformPackage(pkg))

	again, created := m.EnsurePackage("my::model")
	assert.Same(t, pkg, again)
	assert.Empty(t, created)
}

func TestKey(t *testing.T) {
	assert.Equal(t,
		[]string{"Root", "meta", "pure", "metamodel", "type", "Class", "properties", "properties"},
		Key(Class, PropProperties))
	assert.Equal(t, []string{"Root", "Package", "properties", "children"}, KeyChildren)
}

func TestSharedMultiplicity(t *testing.T) {
	repo := model.NewRepository()
	m, err := Bootstrap(repo)
	require.NoError(t, err)

	one := m.SharedMultiplicity(1, 1)
	require.NotNil(t, one)
	assert.Equal(t, "PureOne", one.Name())
	assert.Nil(t, m.SharedMultiplicity(2, 5))
	assert.Nil(t, m.SharedMultiplicity(0, Unbounded).ValueToOne(PropUpperBound))
}
