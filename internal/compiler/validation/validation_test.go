package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/compiler/compilertest"
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/validation"
	"github.com/conduit-lang/metacore/internal/model"
)

func validate(t *testing.T, source string) (*compilertest.Fixture, error) {
	t.Helper()
	f := compilertest.New(t)
	f.MustCompile(source)
	return f, validation.New(f.Support).Validate(context.Background(), f.Elements())
}

func TestValidate_ValidModel(t *testing.T) {
	f, err := validate(t, `
class "my::Box" {
  stereotypes   = ["doc.deprecated"]
  tagged_values = { "doc.doc" = "a box" }
  property "label" {
    type = "String"
  }
  property "items" {
    type         = "my::Box"
    multiplicity = "*"
  }
}

function "my::labels" {
  parameter "box" {
    type = "my::Box"
  }
  return_type         = "String"
  return_multiplicity = "*"
  body                = [box.items.label]
}

function "my::anything" {
  return_type = "Any"
  body        = [1]
}
`)
	require.NoError(t, err)
	for _, element := range f.Elements() {
		assert.True(t, element.HasCompileState(model.Validated), f.Support.UserPath(element))
	}
	require.NoError(t, validation.New(f.Support).Validate(context.Background(), f.Elements()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		code     cerrors.ErrorCode
		messages []string
		element  string
	}{
		{
			name: "hierarchy cycle",
			source: `
class "my::A" {
  extends = ["my::B"]
}
class "my::B" {
  extends = ["my::A"]
}
`,
			code: cerrors.ErrCircularGeneralization,
			messages: []string{
				"Class hierarchy cycle: my::A -> my::B -> my::A",
				"Class hierarchy cycle: my::B -> my::A -> my::B",
			},
			element: "my::A",
		},
		{
			name: "duplicate property",
			source: `
class "my::A" {
  property "name" {
    type = "String"
  }
  property "name" {
    type = "Integer"
  }
}
`,
			code:     cerrors.ErrDuplicateProperty,
			messages: []string{"Property 'name' is defined more than once in my::A"},
			element:  "my::A",
		},
		{
			name: "unknown stereotype",
			source: `
class "my::A" {
  stereotypes = ["doc.missing"]
}
`,
			code:     cerrors.ErrUnknownStereotype,
			messages: []string{"The stereotype 'missing' can't be found in profile 'meta::pure::profiles::doc'"},
			element:  "my::A",
		},
		{
			name: "unknown tag",
			source: `
class "my::A" {
  tagged_values = { "doc.author" = "me" }
}
`,
			code:     cerrors.ErrUnknownTag,
			messages: []string{"The tag 'author' can't be found in profile 'meta::pure::profiles::doc'"},
			element:  "my::A",
		},
		{
			name: "return type",
			source: `
function "my::f" {
  return_type = "Integer"
  body        = ["x"]
}
`,
			code:     cerrors.ErrReturnType,
			messages: []string{"Return type error in function 'my::f'; found: String; expected: Integer"},
			element:  "my::f",
		},
		{
			name: "return multiplicity",
			source: `
class "my::A" {
  property "names" {
    type         = "String"
    multiplicity = "*"
  }
}
function "my::f" {
  parameter "a" {
    type = "my::A"
  }
  return_type = "String"
  body        = [a.names]
}
`,
			code:     cerrors.ErrReturnMultiplicity,
			messages: []string{"Return multiplicity error in function 'my::f'; found: [*]; expected: [1]"},
			element:  "my::f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := validate(t, tt.source)
			require.Error(t, err)

			var list cerrors.ErrorList
			require.True(t, errors.As(err, &list))
			require.Len(t, list, len(tt.messages))
			for i, msg := range tt.messages {
				assert.Equal(t, tt.code, list[i].Code)
				assert.Equal(t, msg, list[i].Message)
			}
			assert.Equal(t, tt.element, list[0].Element)
			assert.False(t, f.Element(tt.element).HasCompileState(model.Validated))
		})
	}
}

func TestCompatible(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(`
class "my::Animal" {}
class "my::Dog" {
  extends = ["my::Animal"]
}
`)
	animal, dog := f.Element("my::Animal"), f.Element("my::Dog")
	str := f.Repo.TopLevel("String")

	assert.True(t, validation.Compatible(f.Support, dog, animal))
	assert.False(t, validation.Compatible(f.Support, animal, dog))
	assert.True(t, validation.Compatible(f.Support, str, f.Repo.TopLevel("Any")))
	assert.True(t, validation.Compatible(f.Support, f.Repo.TopLevel("Nil"), dog))
	assert.False(t, validation.Compatible(f.Support, str, dog))
}

func TestValidate_Cancelled(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(`class "A" {}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, validation.New(f.Support).Validate(ctx, f.Elements()), context.Canceled)
}
