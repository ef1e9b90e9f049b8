package diagram

import (
	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/compiler/unbind"
	"github.com/conduit-lang/metacore/internal/model"
)

// processor resolves the type and property stubs of the views of a diagram.
type processor struct{}

func (processor) ClassName() string { return Diagram }

func (processor) Process(diagram model.CoreInstance, state *postprocess.State, _ *postprocess.Matcher) error {
	support := state.Support()
	for _, view := range diagram.ValuesToMany(PropTypeViews) {
		typ, err := support.WithImportStubByPass(view.ValueToOne(PropType))
		if err != nil {
			return err
		}
		if !support.IsType(typ) {
			return cerrors.NewExpectedType(view.SourceInformation(), support.UserPath(typ))
		}
	}
	for _, view := range diagram.ValuesToMany(PropPropertyViews) {
		if _, err := support.WithImportStubByPass(view.ValueToOne(PropProperty)); err != nil {
			return err
		}
	}
	return nil
}

func (processor) PopulateReferenceUsages(diagram model.CoreInstance, state *postprocess.State) error {
	support := state.Support()
	for _, view := range diagram.ValuesToMany(PropTypeViews) {
		support.AddReferenceUsage(support.WithImportStubByPassDoNotResolve(view.ValueToOne(PropType)), view, PropType, 0)
	}
	for _, view := range diagram.ValuesToMany(PropPropertyViews) {
		support.AddReferenceUsage(support.WithImportStubByPassDoNotResolve(view.ValueToOne(PropProperty)), view, PropProperty, 0)
	}
	return nil
}

// unbinder removes the usages recorded by processor and cleans the stubs.
type unbinder struct{}

func (unbinder) ClassName() string { return Diagram }

func (unbinder) Unbind(diagram model.CoreInstance, state *unbind.State, _ *unbind.Matcher) error {
	support := state.Support()
	for _, view := range diagram.ValuesToMany(PropTypeViews) {
		stub := view.ValueToOne(PropType)
		if typ := state.Resolve(view, stub); typ != nil {
			support.RemoveReferenceUsage(typ, view, PropType, 0)
		}
		support.CleanImportStub(stub)
	}
	for _, view := range diagram.ValuesToMany(PropPropertyViews) {
		stub := view.ValueToOne(PropProperty)
		if property := state.Resolve(view, stub); property != nil {
			support.RemoveReferenceUsage(property, view, PropProperty, 0)
		}
		support.CleanPropertyStub(stub)
	}
	return nil
}
