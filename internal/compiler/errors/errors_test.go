package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/conduit-lang/metacore/internal/model"
)

func TestErrorCodeUniqueness(t *testing.T) {
	codes := make(map[ErrorCode]bool)
	all := []ErrorCode{
		ErrParse, ErrInvalidMultiplicity, ErrDuplicateElement,
		ErrUndefined, ErrAmbiguousImport, ErrUnknownStereotype, ErrUnknownTag,
		ErrUnknownProperty, ErrUnknownEnumValue, ErrUnknownVariable,
		ErrReturnType, ErrExpectedClass, ErrExpectedType,
		ErrAssociationArity, ErrPropertyConflict, ErrCircularGeneralization,
		ErrDuplicateProperty, ErrInternal,
	}
	for _, code := range all {
		if codes[code] {
			t.Errorf("Duplicate error code %s", code)
		}
		codes[code] = true
	}
}

func TestCompilationError_Error(t *testing.T) {
	source := model.NewSourceInformation("model.hcl", 3, 5, 3, 20)
	err := NewUnknownProperty(source, "x", "my::Y")

	want := `Compilation error at (resource:model.hcl line:3 column:5), "The property 'x' can't be found in the type 'my::Y' or in its hierarchy."`
	if err.Error() != want {
		t.Errorf("Error() = %s, want %s", err.Error(), want)
	}

	noSource := NewUndefined(nil, "Foo")
	if !strings.Contains(noSource.Error(), "Foo has not been defined!") {
		t.Errorf("Error() = %s", noSource.Error())
	}
}

func TestErrorList_Add(t *testing.T) {
	var list ErrorList
	list.Add(nil)
	list.Add(NewUndefined(nil, "A"))
	list.Add(ErrorList{NewUndefined(nil, "B"), NewUndefined(nil, "C")})
	list.Add(fmt.Errorf("wrapped: %w", NewUndefined(nil, "D")))
	list.Add(stderrors.New("plain"))

	if len(list) != 5 {
		t.Fatalf("len = %d, want 5", len(list))
	}
	if list[4].Code != ErrInternal {
		t.Errorf("plain error code = %s, want %s", list[4].Code, ErrInternal)
	}
	if !list.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}

	var ce *CompilationError
	if !stderrors.As(list.Err(), &ce) {
		t.Error("errors.As should find a CompilationError in the list")
	}
	if (ErrorList{}).Err() != nil {
		t.Error("empty list should have nil Err()")
	}
}

func TestErrorList_Sort(t *testing.T) {
	list := ErrorList{
		NewUndefined(model.NewSourceInformation("b.hcl", 1, 1, 1, 2), "x"),
		NewUndefined(model.NewSourceInformation("a.hcl", 9, 1, 9, 2), "y"),
		NewUndefined(model.NewSourceInformation("a.hcl", 2, 1, 2, 2), "z"),
		NewUndefined(nil, "w"),
	}
	list.Sort()

	got := []string{}
	for _, e := range list {
		if e.Source == nil {
			got = append(got, "-")
			continue
		}
		got = append(got, fmt.Sprintf("%s:%d", e.Source.SourceID, e.Source.Line))
	}
	want := "-,a.hcl:2,a.hcl:9,b.hcl:1"
	if strings.Join(got, ",") != want {
		t.Errorf("sorted = %v, want %s", got, want)
	}
}

func TestCompilationError_ToJSON(t *testing.T) {
	err := NewAmbiguousImport(model.NewSourceInformation("m.hcl", 1, 1, 1, 4), "A", []string{"x::A", "y::A"}).
		WithElement("my::f").
		WithSuggestion("use the full path")

	out, jsonErr := err.ToJSON()
	if jsonErr != nil {
		t.Fatalf("ToJSON() error = %v", jsonErr)
	}
	var decoded map[string]any
	if jsonErr := json.Unmarshal([]byte(out), &decoded); jsonErr != nil {
		t.Fatalf("invalid JSON: %v", jsonErr)
	}
	if decoded["code"] != string(ErrAmbiguousImport) {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["message"] != "A has been found more than one time in the imports: [x::A, y::A]" {
		t.Errorf("message = %v", decoded["message"])
	}
}

func TestFormatError(t *testing.T) {
	source := model.NewSourceInformation("m.hcl", 2, 3, 2, 9)
	err := NewUnknownVariable(source, "b")
	out := FormatError(err, []string{"function \"f\" {", "  body = [b]", "}"})

	for _, want := range []string{"Resolution Error", "Line 2, Column 3", "body = [b]", "The variable 'b' is unknown!"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatError() missing %q in:\n%s", want, out)
		}
	}

	compact := FormatCompact(err)
	if compact != "m.hcl:2:3: error: The variable 'b' is unknown! [RES107]" {
		t.Errorf("FormatCompact() = %s", compact)
	}

	list := FormatErrorList(ErrorList{err, err}, map[string][]string{})
	if !strings.Contains(list, "Compilation failed with 2 error(s)") {
		t.Errorf("FormatErrorList() = %s", list)
	}
}
