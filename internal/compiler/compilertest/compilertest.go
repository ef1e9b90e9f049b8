// Package compilertest builds bound graphs from model source text for tests.
package compilertest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/compiler/parser"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Fixture is a bootstrapped repository with a parser and post processor.
type Fixture struct {
	t       testing.TB
	Repo    *model.Repository
	Support *navigation.Support
	Parser  *parser.Parser
	Post    *postprocess.PostProcessor
	Results []*parser.Result
}

// New bootstraps a repository.
func New(t testing.TB, opts ...postprocess.Option) *Fixture {
	t.Helper()
	repo := model.NewRepository()
	meta, err := metamodel.Bootstrap(repo)
	require.NoError(t, err)
	support := navigation.NewSupport(meta)
	return &Fixture{
		t:       t,
		Repo:    repo,
		Support: support,
		Parser:  parser.New(support),
		Post:    postprocess.New(support, opts...),
	}
}

// Parse parses one source and fails the test on error.
func (f *Fixture) Parse(sourceID, text string) *parser.Result {
	f.t.Helper()
	result, err := f.Parser.Parse(sourceID, []byte(text))
	require.NoError(f.t, err, "parsing %s", sourceID)
	f.Results = append(f.Results, result)
	return result
}

// Compile parses each text as source<i>.hcl and binds everything parsed,
// returning the bind error.
func (f *Fixture) Compile(texts ...string) error {
	f.t.Helper()
	var elements []model.CoreInstance
	for _, text := range texts {
		result := f.Parse(fmt.Sprintf("source%d.hcl", len(f.Results)+1), text)
		elements = append(elements, result.Elements...)
	}
	return f.Post.Process(context.Background(), elements)
}

// MustCompile is Compile failing the test on error.
func (f *Fixture) MustCompile(texts ...string) {
	f.t.Helper()
	require.NoError(f.t, f.Compile(texts...))
}

// Elements returns every element parsed so far.
func (f *Fixture) Elements() []model.CoreInstance {
	var out []model.CoreInstance
	for _, r := range f.Results {
		out = append(out, r.Elements...)
	}
	return out
}

// Element finds an element by path and fails the test when it is missing.
func (f *Fixture) Element(path string) model.CoreInstance {
	f.t.Helper()
	element := f.Support.PackageByUserPath(path)
	require.NotNil(f.t, element, "element %s", path)
	return element
}

// Property finds a property of a class by name among properties,
// qualified properties and association properties.
func (f *Fixture) Property(class model.CoreInstance, name string) model.CoreInstance {
	f.t.Helper()
	for _, prop := range []string{
		metamodel.PropProperties,
		metamodel.PropPropertiesFromAssociations,
		metamodel.PropQualifiedProperties,
		metamodel.PropOriginalMilestonedProperties,
	} {
		if p := model.ValueByName(class, prop, name); p != nil {
			return p
		}
	}
	require.Failf(f.t, "missing property", "%s has no property %s", f.Support.UserPath(class), name)
	return nil
}

// TypeName returns the name of the resolved raw type of a generic type.
func (f *Fixture) TypeName(genericType model.CoreInstance) string {
	f.t.Helper()
	require.NotNil(f.t, genericType)
	raw := f.Support.WithImportStubByPassDoNotResolve(genericType.ValueToOne(metamodel.PropRawType))
	require.NotNil(f.t, raw, "unresolved raw type")
	return f.Support.UserPath(raw)
}
