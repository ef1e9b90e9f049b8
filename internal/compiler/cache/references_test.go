package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/compiler/cache"
	"github.com/conduit-lang/metacore/internal/compiler/compilertest"
)

const base = `
class "my::A" {
  property "name" {
    type = "String"
  }
}
`

const derived = `
class "my::B" {
  extends = ["my::A"]
  property "a" {
    type = "my::A"
  }
}
`

const unrelated = `
class "other::C" {
  property "id" {
    type = "Integer"
  }
}
`

func TestReferences(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(base, derived, unrelated)

	assert.Empty(t, cache.References(f.Support, f.Element("my::A")))
	assert.Equal(t, []string{"source1.hcl"}, cache.References(f.Support, f.Element("my::B")))
	assert.Empty(t, cache.References(f.Support, f.Element("other::C")))
}

func TestReferrers(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(base, derived, unrelated)

	referrers := cache.Referrers(f.Support, f.Element("my::A"))
	require.GreaterOrEqual(t, len(referrers), 2)
	for _, r := range referrers {
		assert.Equal(t, "source2.hcl", r.SourceInformation().SourceID)
	}
	assert.Empty(t, cache.Referrers(f.Support, f.Element("other::C")))
}

func TestBuildDependencies(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(base, derived, unrelated)

	dg := cache.NewDependencyGraph()
	for _, r := range f.Results {
		dg.AddSource(r.SourceID)
		dg.BuildDependencies(f.Support, r.SourceID, r.Elements)
	}

	assert.Equal(t, []string{"source2.hcl"}, dg.GetDependents("source1.hcl"))
	assert.Equal(t, []string{"source1.hcl"}, dg.GetDependencies("source2.hcl"))
	assert.Empty(t, dg.GetDependents("source3.hcl"))
	assert.Equal(t, 3, dg.Size())
}
