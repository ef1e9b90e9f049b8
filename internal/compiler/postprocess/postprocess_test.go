package postprocess_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/compiler/compilertest"
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/observer"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

const hierarchy = `
class "my::Entity" {
  property "id" {
    type = "Integer"
  }
}

class "my::Person" {
  extends     = ["my::Entity"]
  stereotypes = ["doc.deprecated"]

  property "name" {
    type = "String"
  }

  qualified_property "fullName" {
    type         = "String"
    multiplicity = "1"
    parameter "withTitle" {
      type = "Boolean"
    }
    parameter "title" {
      type         = "String"
      multiplicity = "0..1"
    }
    body = [this.name]
  }
}
`

func TestBind_ClassHierarchy(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(hierarchy)

	entity := f.Element("my::Entity")
	person := f.Element("my::Person")

	specializations := entity.ValuesToMany(metamodel.PropSpecializations)
	require.Len(t, specializations, 1)
	assert.Same(t, person, specializations[0].ValueToOne(metamodel.PropSpecific))

	owners := navigation.ReferenceUsageOwners(entity)
	require.Len(t, owners, 1)
	assert.Same(t, specializations[0].ValueToOne(metamodel.PropGeneral), owners[0])

	name := f.Property(person, "name")
	assert.Same(t, person, name.ValueToOne(metamodel.PropOwner))
	assert.True(t, name.HasCompileState(model.Processed))
	assert.True(t, person.HasCompileState(model.Processed))
	assert.Equal(t, "String", f.TypeName(name.ValueToOne(metamodel.PropGenericType)))

	deprecated := navigation.FindStereotype(f.Element(metamodel.DocProfile), "deprecated")
	assert.Contains(t, deprecated.ValuesToMany(metamodel.PropModelElements), person)

	all := f.Support.AllProperties(person)
	assert.Len(t, all, 2)
}

func TestBind_QualifiedProperty(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(hierarchy)

	person := f.Element("my::Person")
	fullName := f.Property(person, "fullName")

	assert.Equal(t, "fullName(Boolean[1],String[0..1])", navigation.StringValue(fullName, metamodel.PropID))
	assert.Same(t, person, fullName.ValueToOne(metamodel.PropOwner))

	body := fullName.ValueToOne(metamodel.PropExpressionSequence)
	assert.Same(t, f.Property(person, "name"), body.ValueToOne(metamodel.PropFunc))
	assert.Equal(t, "String", f.TypeName(body.ValueToOne(metamodel.PropGenericType)))
	lower, upper := navigation.MultiplicityBounds(body.ValueToOne(metamodel.PropMultiplicity))
	assert.Equal(t, [2]int{1, 1}, [2]int{lower, upper})

	this := body.ValueToOne(metamodel.PropParametersValues)
	assert.Equal(t, "my::Person", f.TypeName(this.ValueToOne(metamodel.PropGenericType)))
}

func TestBind_Association(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(`
class "my::Person" {}
class "my::Firm" {}

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
`)
	person := f.Element("my::Person")
	firm := f.Element("my::Firm")
	association := f.Element("my::Employment")

	employer := f.Property(person, "employer")
	employees := f.Property(firm, "employees")
	assert.Same(t, association, employer.ValueToOne(metamodel.PropOwner))
	assert.Same(t, association, employees.ValueToOne(metamodel.PropOwner))
	assert.Equal(t, []model.CoreInstance{employer}, person.ValuesToMany(metamodel.PropPropertiesFromAssociations))

	found, err := f.Support.ClassPropertyByName(person, "employer")
	require.NoError(t, err)
	assert.Same(t, employer, found)
}

func TestBind_AssociationErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		code    cerrors.ErrorCode
		message string
	}{
		{
			name: "arity",
			source: `
class "A" {}
association "AB" {
  property "a" {
    type = "A"
  }
}
`,
			code:    cerrors.ErrAssociationArity,
			message: "Expected 2 properties for association 'AB', found 1",
		},
		{
			name: "not a class",
			source: `
class "A" {}
association "AB" {
  property "a" {
    type = "A"
  }
  property "s" {
    type = "String"
  }
}
`,
			code:    cerrors.ErrExpectedClass,
			message: "Expected a class, found: String",
		},
		{
			name: "conflict",
			source: `
class "A" {
  property "b" {
    type = "String"
  }
}
class "B" {}
association "AB" {
  property "a" {
    type = "A"
  }
  property "b" {
    type = "B"
  }
}
`,
			code:    cerrors.ErrPropertyConflict,
			message: "Property conflict on class A: property 'b' defined more than once",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := compilertest.New(t)
			err := f.Compile(tt.source)
			require.Error(t, err)
			ce, ok := cerrors.AsCompilationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, "AB", ce.Element)
		})
	}
}

func TestBind_FunctionExpressions(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(`
enumeration "my::Color" {
  values = ["RED", "GREEN"]
}

class "my::Box" {
  property "color" {
    type = "my::Color"
  }
  property "items" {
    type         = "my::Box"
    multiplicity = "*"
  }
}

function "my::colors" {
  parameter "box" {
    type = "my::Box"
  }
  return_type         = "my::Color"
  return_multiplicity = "*"
  body                = [box.items.color, enum("my::Color", "GREEN"), 3]
}
`)
	box := f.Element("my::Box")
	color := f.Element("my::Color")
	body := f.Element("my::colors").ValuesToMany(metamodel.PropExpressionSequence)
	require.Len(t, body, 3)

	access := body[0]
	assert.Same(t, f.Property(box, "color"), access.ValueToOne(metamodel.PropFunc))
	assert.Equal(t, "my::Color", f.TypeName(access.ValueToOne(metamodel.PropGenericType)))
	lower, upper := navigation.MultiplicityBounds(access.ValueToOne(metamodel.PropMultiplicity))
	assert.Equal(t, 0, lower)
	assert.Equal(t, metamodel.Unbounded, upper)
	assert.Contains(t, navigation.ReferenceUsageOwners(f.Property(box, "color")), access)

	stub := body[1].ValueToOne(metamodel.PropValues)
	assert.Same(t, model.ValueByName(color, metamodel.PropValues, "GREEN"), f.Support.WithImportStubByPassDoNotResolve(stub))
	assert.Equal(t, "my::Color", f.TypeName(body[1].ValueToOne(metamodel.PropGenericType)))
	assert.Equal(t, "Integer", f.TypeName(body[2].ValueToOne(metamodel.PropGenericType)))

	assert.True(t, f.Support.IsSubType(color, f.Support.Class(metamodel.Enum)))
}

func TestBind_ErrorsDoNotStopSiblings(t *testing.T) {
	f := compilertest.New(t)
	err := f.Compile(`
class "my::A" {
  property "b" {
    type = "my::Missing"
  }
}

class "my::B" {
  property "name" {
    type = "String"
  }
}

function "my::f" {
  parameter "b" {
    type = "my::B"
  }
  return_type = "String"
  body        = [b.nickname]
}
`)
	require.Error(t, err)

	var list cerrors.ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "my::Missing has not been defined!", list[0].Message)
	assert.Equal(t, "my::A", list[0].Element)
	assert.Equal(t, "Can't find the property 'nickname' in the class my::B", list[1].Message)
	assert.Equal(t, 19, list[1].Source.StartLine)

	assert.True(t, f.Element("my::B").HasCompileState(model.Processed))
}

func TestBind_UnknownVariable(t *testing.T) {
	f := compilertest.New(t)
	err := f.Compile(`
function "f" {
  return_type = "String"
  body        = [x.name]
}
`)
	ce, ok := cerrors.AsCompilationError(err)
	require.True(t, ok)
	assert.Equal(t, "The variable 'x' is unknown!", ce.Message)
}

func TestSortForBind(t *testing.T) {
	f := compilertest.New(t)
	f.Parse("order.hcl", `
function "a::f" {
  return_type = "String"
}
association "a::Assoc" {}
class "b::B" {}
class "a::A" {}
enumeration "z::E" {
  values = ["X"]
}
profile "z::P" {}
`)
	var paths []string
	for _, e := range postprocess.SortForBind(f.Support, f.Elements()) {
		paths = append(paths, f.Support.UserPath(e))
	}
	assert.Equal(t, []string{"z::P", "z::E", "a::A", "b::B", "a::Assoc", "a::f", "system::imports::import_order_hcl_1"}, paths)
}

func TestProcess_CancellationAndStop(t *testing.T) {
	f := compilertest.New(t)
	result := f.Parse("a.hcl", `class "A" {}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.Post.Process(ctx, result.Elements)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.Element("A").HasCompileState(model.Processed))

	f.Post.Stop()
	assert.ErrorIs(t, f.Post.Process(context.Background(), result.Elements), postprocess.ErrStopped)
}

// failingObserver fails its start hook for the instances named in fail and
// records every instance it finishes.
type failingObserver struct {
	observer.Nop
	fail     map[string]bool
	finished []string
}

func (o *failingObserver) StartProcessing(instance model.CoreInstance) error {
	if o.fail[instance.Name()] {
		return errors.New("observer rejected " + instance.Name())
	}
	return nil
}

func (o *failingObserver) FinishProcessing(instance model.CoreInstance) error {
	o.finished = append(o.finished, instance.Name())
	return nil
}

func (o *failingObserver) FinishProcessingWithError(instance model.CoreInstance, _ error) error {
	o.finished = append(o.finished, instance.Name())
	return nil
}

func TestProcess_ObserverErrorsReportedAfterPass(t *testing.T) {
	obs := &failingObserver{fail: map[string]bool{"A": true}}
	f := compilertest.New(t, postprocess.WithObserver(obs))

	err := f.Compile(`
class "my::A" {}
class "my::B" {}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observer rejected A")
	_, isCompilation := cerrors.AsCompilationError(err)
	assert.False(t, isCompilation)

	assert.True(t, f.Element("my::A").HasCompileState(model.Processed))
	assert.True(t, f.Element("my::B").HasCompileState(model.Processed))
	assert.Contains(t, obs.finished, "A")
	assert.Contains(t, obs.finished, "B")
}

func TestProcess_BindErrorsLeadObserverErrors(t *testing.T) {
	obs := &failingObserver{fail: map[string]bool{"B": true}}
	f := compilertest.New(t, postprocess.WithObserver(obs))

	err := f.Compile(`
class "my::A" {
  property "b" {
    type = "my::Missing"
  }
}
class "my::B" {}
`)
	require.Error(t, err)

	var list cerrors.ErrorList
	require.True(t, errors.As(observer.Primary(err), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "my::Missing has not been defined!", list[0].Message)
	assert.Contains(t, err.Error(), "observer rejected B")
	assert.True(t, f.Element("my::B").HasCompileState(model.Processed))
}
