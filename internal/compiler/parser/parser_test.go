package parser

import (
	"testing"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// Helper function to create a parser over a freshly bootstrapped repository
func newParser(t *testing.T) (*Parser, *navigation.Support) {
	t.Helper()

	meta, err := metamodel.Bootstrap(model.NewRepository())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	support := navigation.NewSupport(meta)
	return New(support), support
}

func parseSource(t *testing.T, source string) (*Result, *navigation.Support) {
	t.Helper()

	p, support := newParser(t)
	result, err := p.Parse("model.hcl", []byte(source))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return result, support
}

func stubID(t *testing.T, stub model.CoreInstance) string {
	t.Helper()
	if stub == nil {
		t.Fatalf("Expected a stub, got nil")
	}
	return navigation.StringValue(stub, metamodel.PropIDOrPath)
}

// TestParseClass tests parsing a class with properties, stereotypes and tagged values
func TestParseClass(t *testing.T) {
	source := `imports = ["my::model"]

class "my::model::Person" {
  extends       = ["Entity"]
  stereotypes   = ["temporal.businesstemporal"]
  tagged_values = { "doc.doc" = "A person" }

  property "name" {
    type = "String"
  }

  property "nicknames" {
    type         = "String"
    multiplicity = "*"
  }

  property "firm" {
    type         = "Firm"
    multiplicity = "0..3"
  }
}
`
	result, support := parseSource(t, source)

	if len(result.Elements) != 2 {
		t.Fatalf("Expected import group and class, got %d elements", len(result.Elements))
	}
	if result.Elements[0] != result.ImportGroup {
		t.Errorf("Expected the import group first")
	}
	if result.ImportGroup.Name() != "import_model_hcl_1" {
		t.Errorf("Expected import group 'import_model_hcl_1', got '%s'", result.ImportGroup.Name())
	}

	person := support.PackageByUserPath("my::model::Person")
	if person == nil {
		t.Fatalf("Expected my::model::Person to be registered")
	}
	if person != result.Elements[1] {
		t.Errorf("Expected the registered class to be the parsed element")
	}
	if !support.ClassifierIs(person, metamodel.Class) {
		t.Errorf("Expected a Class, got %v", person.Classifier())
	}

	source2 := person.SourceInformation()
	if source2.StartLine != 3 || source2.Line != 3 || source2.Column != 7 || source2.EndLine != 21 {
		t.Errorf("Unexpected element source %+v", *source2)
	}

	generalizations := person.ValuesToMany(metamodel.PropGeneralizations)
	if len(generalizations) != 1 {
		t.Fatalf("Expected 1 generalization, got %d", len(generalizations))
	}
	general := generalizations[0].ValueToOne(metamodel.PropGeneral)
	if id := stubID(t, general.ValueToOne(metamodel.PropRawType)); id != "Entity" {
		t.Errorf("Expected stub 'Entity', got '%s'", id)
	}
	if generalizations[0].ValueToOne(metamodel.PropSpecific) != person {
		t.Errorf("Expected the generalization to be specific to Person")
	}

	stereotypes := person.ValuesToMany(metamodel.PropStereotypes)
	if len(stereotypes) != 1 || stubID(t, stereotypes[0]) != "temporal@businesstemporal" {
		t.Errorf("Unexpected stereotypes %v", stereotypes)
	}
	tagged := person.ValuesToMany(metamodel.PropTaggedValues)
	if len(tagged) != 1 {
		t.Fatalf("Expected 1 tagged value, got %d", len(tagged))
	}
	if id := stubID(t, tagged[0].ValueToOne(metamodel.PropTag)); id != "doc%doc" {
		t.Errorf("Expected tag stub 'doc%%doc', got '%s'", id)
	}
	if v := navigation.StringValue(tagged[0], metamodel.PropValue); v != "A person" {
		t.Errorf("Expected tagged value 'A person', got '%s'", v)
	}

	properties := person.ValuesToMany(metamodel.PropProperties)
	if len(properties) != 3 {
		t.Fatalf("Expected 3 properties, got %d", len(properties))
	}
	expected := []struct {
		name         string
		typ          string
		lower, upper int
		shared       bool
	}{
		{"name", "String", 1, 1, true},
		{"nicknames", "String", 0, metamodel.Unbounded, true},
		{"firm", "Firm", 0, 3, false},
	}
	for i, want := range expected {
		p := properties[i]
		if p.Name() != want.name {
			t.Errorf("Expected property '%s', got '%s'", want.name, p.Name())
		}
		if p.IsValueDefined(metamodel.PropOwner) {
			t.Errorf("Property '%s' should not have an owner before binding", p.Name())
		}
		if id := stubID(t, p.ValueToOne(metamodel.PropGenericType).ValueToOne(metamodel.PropRawType)); id != want.typ {
			t.Errorf("Expected type '%s', got '%s'", want.typ, id)
		}
		mult := p.ValueToOne(metamodel.PropMultiplicity)
		lower, upper := navigation.MultiplicityBounds(mult)
		if lower != want.lower || upper != want.upper {
			t.Errorf("Property '%s': expected [%d,%d], got [%d,%d]", want.name, want.lower, want.upper, lower, upper)
		}
		if shared := support.Metamodel().SharedMultiplicity(lower, upper) == mult; shared != want.shared {
			t.Errorf("Property '%s': expected shared multiplicity %v", want.name, want.shared)
		}
	}

	imports := support.ImportPaths(result.ImportGroup)
	if imports[0] != "my::model" {
		t.Errorf("Expected first import 'my::model', got %v", imports)
	}
}

// TestParseQualifiedPropertyAndFunction tests parameters and body expressions
func TestParseQualifiedPropertyAndFunction(t *testing.T) {
	source := `
class "A" {
  qualified_property "label" {
    type = "String"
    parameter "prefix" {
      type = "String"
    }
    body = [this.name]
  }
}

function "my::f" {
  parameter "a" {
    type = "A"
  }
  return_type = "Date"
  body        = [a.b.businessDate, 42, 1.5, "x", true, enum("my::Color", "RED")]
}
`
	_, support := parseSource(t, source)

	class := support.PackageByUserPath("A")
	qualified := class.ValuesToMany(metamodel.PropQualifiedProperties)
	if len(qualified) != 1 {
		t.Fatalf("Expected 1 qualified property, got %d", len(qualified))
	}
	params := qualified[0].ValuesToMany(metamodel.PropParameters)
	if len(params) != 1 || navigation.StringValue(params[0], metamodel.PropName) != "prefix" {
		t.Errorf("Unexpected parameters %v", params)
	}

	f := support.PackageByUserPath("my::f")
	if f == nil {
		t.Fatalf("Expected my::f to be registered")
	}
	if name := navigation.StringValue(f, metamodel.PropFunctionName); name != "f" {
		t.Errorf("Expected function name 'f', got '%s'", name)
	}
	lower, upper := navigation.MultiplicityBounds(f.ValueToOne(metamodel.PropReturnMultiplicity))
	if lower != 1 || upper != 1 {
		t.Errorf("Expected default return multiplicity [1], got [%d,%d]", lower, upper)
	}

	body := f.ValuesToMany(metamodel.PropExpressionSequence)
	if len(body) != 6 {
		t.Fatalf("Expected 6 expressions, got %d", len(body))
	}

	outer := body[0]
	if !support.ClassifierIs(outer, metamodel.SimpleFunctionExpression) {
		t.Fatalf("Expected a property access, got %v", outer.Classifier())
	}
	if name := navigation.StringValue(outer, metamodel.PropPropertyName); name != "businessDate" {
		t.Errorf("Expected 'businessDate', got '%s'", name)
	}
	inner := outer.ValueToOne(metamodel.PropParametersValues)
	if name := navigation.StringValue(inner, metamodel.PropPropertyName); name != "b" {
		t.Errorf("Expected 'b', got '%s'", name)
	}
	variable := inner.ValueToOne(metamodel.PropParametersValues)
	if !support.ClassifierIs(variable, metamodel.VariableExpression) || navigation.StringValue(variable, metamodel.PropName) != "a" {
		t.Errorf("Expected variable 'a', got %v", variable)
	}
	if !outer.SourceInformation().Subsumes(inner.SourceInformation()) {
		t.Errorf("Expected the outer access to span the inner one")
	}

	literals := []any{int64(42), 1.5, "x", true}
	for i, want := range literals {
		value := body[i+1].ValueToOne(metamodel.PropValues)
		got, ok := value.Primitive()
		if !ok || got != want {
			t.Errorf("Expression %d: expected %v, got %v", i+1, want, got)
		}
	}

	stub := body[5].ValueToOne(metamodel.PropValues)
	if !support.ClassifierIs(stub, metamodel.EnumStub) {
		t.Fatalf("Expected an enum stub, got %v", stub.Classifier())
	}
	if id := stubID(t, stub.ValueToOne(metamodel.PropEnumeration)); id != "my::Color" {
		t.Errorf("Expected enumeration 'my::Color', got '%s'", id)
	}
}

// TestParseProfileAndEnumeration tests profile members and enum values
func TestParseProfileAndEnumeration(t *testing.T) {
	source := `
profile "my::Flags" {
  stereotypes = ["important", "legacy"]
  tags        = ["owner"]
}

enumeration "my::Color" {
  values      = ["RED", "GREEN"]
  stereotypes = ["my::Flags.legacy"]
}
`
	_, support := parseSource(t, source)

	profile := support.PackageByUserPath("my::Flags")
	if navigation.FindStereotype(profile, "legacy") == nil {
		t.Errorf("Expected stereotype 'legacy'")
	}
	tag := navigation.FindTag(profile, "owner")
	if tag == nil || tag.ValueToOne(metamodel.PropProfile) != profile {
		t.Errorf("Expected tag 'owner' owned by the profile")
	}

	color := support.PackageByUserPath("my::Color")
	red := model.ValueByName(color, metamodel.PropValues, "RED")
	if red == nil || red.Classifier() != color {
		t.Fatalf("Expected RED classified by the enumeration")
	}
	if !support.InstanceOf(red, metamodel.ElementWithStereotypes) {
		t.Errorf("Expected enum values to be ElementWithStereotypes")
	}
	stereotypes := color.ValuesToMany(metamodel.PropStereotypes)
	if len(stereotypes) != 1 || stubID(t, stereotypes[0]) != "my::Flags@legacy" {
		t.Errorf("Unexpected stereotypes %v", stereotypes)
	}
}

// TestParseErrors tests that malformed sources produce located compilation errors
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   cerrors.ErrorCode
		line   int
	}{
		{"syntax", "class \"A\" {\n  property \"x\" {\n", cerrors.ErrParse, 0},
		{"unknown block", "widget \"A\" {}\n", cerrors.ErrParse, 1},
		{"unknown attribute", "class \"A\" {\n  colour = \"red\"\n}\n", cerrors.ErrParse, 2},
		{"bad path", "class \"my:A\" {}\n", cerrors.ErrParse, 1},
		{"bad multiplicity", "class \"A\" {\n  property \"x\" {\n    type = \"String\"\n    multiplicity = \"2..1\"\n  }\n}\n", cerrors.ErrInvalidMultiplicity, 4},
		{"duplicate", "class \"A\" {}\nclass \"A\" {}\n", cerrors.ErrDuplicateElement, 2},
		{"primitive clash", "class \"String\" {}\n", cerrors.ErrDuplicateElement, 1},
		{"missing type", "class \"A\" {\n  property \"x\" {}\n}\n", cerrors.ErrParse, 2},
		{"unsupported function", "function \"f\" {\n  return_type = \"String\"\n  body = [upper(\"x\")]\n}\n", cerrors.ErrParse, 3},
		{"bad stereotype", "class \"A\" {\n  stereotypes = [\"nodot\"]\n}\n", cerrors.ErrParse, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, support := newParser(t)
			_, err := p.Parse("bad.hcl", []byte(tt.source))
			if err == nil {
				t.Fatalf("Expected an error")
			}
			ce, ok := cerrors.AsCompilationError(err)
			if !ok {
				t.Fatalf("Expected a compilation error, got %T: %v", err, err)
			}
			if ce.Code != tt.code {
				t.Errorf("Expected code %s, got %s (%s)", tt.code, ce.Code, ce.Message)
			}
			if tt.line > 0 && (ce.Source == nil || ce.Source.StartLine != tt.line) {
				t.Errorf("Expected error on line %d, got %v", tt.line, ce.Source)
			}
			if tt.name != "primitive clash" && support.PackageByUserPath("A") != nil {
				t.Errorf("Nothing should be registered after a failed parse")
			}
		})
	}
}

// TestImportGroupNames tests that import groups of distinct sources never collide
func TestImportGroupNames(t *testing.T) {
	p, _ := newParser(t)

	first, err := p.Parse("a/b.hcl", []byte(`class "X" {}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	second, err := p.Parse("a_b.hcl", []byte(`class "Y" {}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if first.ImportGroup.Name() != "import_a_b_hcl_1" {
		t.Errorf("Unexpected name %s", first.ImportGroup.Name())
	}
	if second.ImportGroup.Name() != "import_a_b_hcl_2" {
		t.Errorf("Unexpected name %s", second.ImportGroup.Name())
	}
}
