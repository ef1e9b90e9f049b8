package serialization_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/compiler/compilertest"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/reference"
	"github.com/conduit-lang/metacore/internal/serialization"
	"github.com/conduit-lang/metacore/internal/store"
	"github.com/conduit-lang/metacore/internal/store/badger"
	"github.com/conduit-lang/metacore/internal/store/memory"
	"github.com/conduit-lang/metacore/internal/store/sqlite"
)

const people = `
enumeration "my::Title" {
  values = ["MR", "MS"]
}

class "my::Entity" {
  property "id" {
    type = "Integer"
  }
}

class "my::Person" {
  extends       = ["my::Entity"]
  stereotypes   = ["doc.deprecated"]
  tagged_values = { "doc.doc" = "A person" }

  property "name" {
    type = "String"
  }
  property "title" {
    type         = "my::Title"
    multiplicity = "0..1"
  }

  qualified_property "greeting" {
    type = "String"
    parameter "formal" {
      type = "Boolean"
    }
    body = [this.name]
  }
}

class "my::Firm" {
  property "name" {
    type = "String"
  }
}

association "my::Employment" {
  property "employer" {
    type         = "my::Firm"
    multiplicity = "0..1"
  }
  property "employees" {
    type         = "my::Person"
    multiplicity = "*"
  }
}

function "my::employerNames" {
  parameter "people" {
    type         = "my::Person"
    multiplicity = "*"
  }
  return_type         = "String"
  return_multiplicity = "*"
  body                = [people.employer.name, enum("my::Title", "MS"), "x"]
}
`

func compiled(t *testing.T) *compilertest.Fixture {
	t.Helper()
	f := compilertest.New(t)
	f.MustCompile(people)
	return f
}

func serializer(f *compilertest.Fixture) *serialization.Serializer {
	return serialization.NewSerializer(f.Support, reference.V1{}.NewProvider(f.Support))
}

func snapshot(t *testing.T, f *compilertest.Fixture) []*serialization.ElementData {
	t.Helper()
	b, err := serialization.Snapshot(context.Background(), serializer(f))
	require.NoError(t, err)
	elements, err := serialization.DecodeSnapshot(b)
	require.NoError(t, err)
	return elements
}

func find(elements []*serialization.ElementData, path string) *serialization.ElementData {
	for _, e := range elements {
		if e.Path == path {
			return e
		}
	}
	return nil
}

func TestSerialize(t *testing.T) {
	f := compiled(t)
	elements, err := serializer(f).Serialize(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, e := range elements {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{
		"my::Employment",
		"my::Entity",
		"my::Firm",
		"my::Person",
		"my::Title",
		"my::employerNames",
		"system::imports::import_source1_hcl_1",
	}, paths)

	person := find(elements, "my::Person")
	require.NotNil(t, person)
	assert.Equal(t, metamodel.Class, person.Classifier)
	require.NotEmpty(t, person.Instances)
	root := person.Instances[0]
	assert.Equal(t, "my::Person", root.ReferenceID)
	assert.Equal(t, "Person", root.Name)
	assert.True(t, root.CompileStates.Has(model.Processed))

	var ids []string
	for _, inst := range person.Instances {
		ids = append(ids, inst.ReferenceID)
	}
	assert.Contains(t, ids, "my::Person.properties['name']")
	assert.Contains(t, ids, "my::Person.properties['name'].genericType")
	assert.Contains(t, ids, "my::Person.qualifiedProperties['greeting(Boolean[1])']")

	assert.Contains(t, person.BackReferences, serialization.BackReference{
		Target:   "my::Entity",
		Property: metamodel.PropSpecializations,
		Referrer: "my::Person.generalizations[0]",
	})
	assert.Contains(t, person.BackReferences, serialization.BackReference{
		Target:        "String",
		Property:      metamodel.PropReferenceUsages,
		Referrer:      "my::Person.properties['name'].genericType",
		UsageProperty: metamodel.PropRawType,
	})
	assert.Contains(t, person.BackReferences, serialization.BackReference{
		Target:   "meta::pure::profiles::doc.p_stereotypes['deprecated']",
		Property: metamodel.PropModelElements,
		Referrer: "my::Person",
	})

	for _, e := range elements {
		for _, inst := range e.Instances {
			for _, p := range inst.Properties {
				assert.False(t, metamodel.BackReferenceProperties[p.Name()], "%s.%s", inst.ReferenceID, p.Name())
			}
		}
	}
}

func TestRecords_RoundTrip(t *testing.T) {
	f := compiled(t)
	elements, err := serializer(f).Serialize(context.Background())
	require.NoError(t, err)
	records, err := serialization.Records(elements)
	require.NoError(t, err)

	for i, r := range records {
		decoded, err := serialization.DecodeRecord(r)
		require.NoError(t, err)
		if diff := cmp.Diff(elements[i], decoded, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", r.Path, diff)
		}
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	a, err := serialization.Snapshot(context.Background(), serializer(compiled(t)))
	require.NoError(t, err)
	b, err := serialization.Snapshot(context.Background(), serializer(compiled(t)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoader_RoundTrip(t *testing.T) {
	stores := []struct {
		name string
		open func(t *testing.T) store.Store
	}{
		{"memory", func(t *testing.T) store.Store { return memory.New() }},
		{"sqlite", func(t *testing.T) store.Store {
			s, err := sqlite.Open(sqlite.DefaultConfig(":memory:"))
			require.NoError(t, err)
			return s
		}},
		{"badger", func(t *testing.T) store.Store {
			s, err := badger.Open(badger.InMemoryConfig())
			require.NoError(t, err)
			return s
		}},
	}
	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := tt.open(t)
			defer s.Close()

			f := compiled(t)
			_, err := serialization.Save(ctx, s, serializer(f))
			require.NoError(t, err)

			g := compilertest.New(t)
			loader := serialization.NewLoader(s, g.Support)
			require.NoError(t, loader.Open(ctx))
			require.NoError(t, loader.Warm(ctx, 4))

			if diff := cmp.Diff(snapshot(t, f), snapshot(t, g), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("loaded graph differs (-want +got):\n%s", diff)
			}
		})
	}
}

func saved(t *testing.T) store.Store {
	t.Helper()
	s := memory.New()
	_, err := serialization.Save(context.Background(), s, serializer(compiled(t)))
	require.NoError(t, err)
	return s
}

func TestLoader_Lazy(t *testing.T) {
	ctx := context.Background()
	g := compilertest.New(t)
	loader := serialization.NewLoader(saved(t), g.Support)
	require.NoError(t, loader.Open(ctx))

	assert.Len(t, loader.Paths(), 7)
	person := g.Element("my::Person")
	assert.False(t, loader.IsLoaded("my::Person"))
	assert.Empty(t, person.ValuesToMany(metamodel.PropProperties))

	name, err := loader.Resolve(ctx, "my::Person.properties['name']")
	require.NoError(t, err)
	assert.True(t, loader.IsLoaded("my::Person"))
	assert.False(t, loader.IsLoaded("my::Firm"))
	assert.Equal(t, "name", name.Name())
	assert.Equal(t, "String", g.TypeName(name.ValueToOne(metamodel.PropGenericType)))
	assert.Len(t, person.ValuesToMany(metamodel.PropProperties), 2)

	entity, err := loader.Element(ctx, "my::Entity")
	require.NoError(t, err)
	specializations := entity.ValuesToMany(metamodel.PropSpecializations)
	require.Len(t, specializations, 1)
	assert.Same(t, person.ValueToOne(metamodel.PropGeneralizations), specializations[0])

	title, err := loader.Resolve(ctx, "my::Title.values['MS']")
	require.NoError(t, err)
	assert.Same(t, g.Element("my::Title"), title.Classifier())
}

func TestLoader_ConcurrentResolve(t *testing.T) {
	ctx := context.Background()
	g := compilertest.New(t)
	loader := serialization.NewLoader(saved(t), g.Support)
	require.NoError(t, loader.Open(ctx))

	const n = 8
	results := make([]model.CoreInstance, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := loader.Resolve(ctx, "my::Firm.properties['name'].genericType")
			assert.NoError(t, err)
			results[i] = inst
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
}

func TestLoader_Errors(t *testing.T) {
	ctx := context.Background()
	s := saved(t)

	f := compiled(t)
	err := serialization.NewLoader(s, f.Support).Open(ctx)
	assert.ErrorContains(t, err, "already exists")

	g := compilertest.New(t)
	loader := serialization.NewLoader(s, g.Support)
	require.NoError(t, loader.Open(ctx))

	_, err = loader.Resolve(ctx, "my::Person.properties['missing']")
	var ue *reference.UnresolvableIDError
	assert.ErrorAs(t, err, &ue)

	_, err = loader.Element(ctx, "my::Missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
