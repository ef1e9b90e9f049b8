// Package observer provides instrumentation hooks around element
// processing. Observers see every element the pipeline starts and
// finishes. A failing observer never interrupts processing; its errors are
// reported once the pass is over.
package observer

import (
	"go.uber.org/multierr"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// Observer is notified around the processing of each instance. Nested
// processing produces nested start/finish pairs.
type Observer interface {
	StartProcessing(instance model.CoreInstance) error
	FinishProcessing(instance model.CoreInstance) error
	FinishProcessingWithError(instance model.CoreInstance, cause error) error
}

// Nop ignores every notification.
type Nop struct{}

func (Nop) StartProcessing(model.CoreInstance) error                  { return nil }
func (Nop) FinishProcessing(model.CoreInstance) error                 { return nil }
func (Nop) FinishProcessingWithError(model.CoreInstance, error) error { return nil }

// Combining fans every notification out to its members. A failing member
// does not stop the others from being notified; the returned error holds
// every failure, the first one leading.
type Combining struct {
	observers []Observer
}

// Combine returns an observer notifying all non-nil observers in order.
func Combine(observers ...Observer) Observer {
	var members []Observer
	for _, o := range observers {
		if o != nil {
			members = append(members, o)
		}
	}
	switch len(members) {
	case 0:
		return Nop{}
	case 1:
		return members[0]
	}
	return &Combining{observers: members}
}

func (c *Combining) StartProcessing(instance model.CoreInstance) error {
	var err error
	for _, o := range c.observers {
		err = multierr.Append(err, o.StartProcessing(instance))
	}
	return err
}

func (c *Combining) FinishProcessing(instance model.CoreInstance) error {
	var err error
	for _, o := range c.observers {
		err = multierr.Append(err, o.FinishProcessing(instance))
	}
	return err
}

func (c *Combining) FinishProcessingWithError(instance model.CoreInstance, cause error) error {
	var err error
	for _, o := range c.observers {
		err = multierr.Append(err, o.FinishProcessingWithError(instance, cause))
	}
	return err
}

// Primary returns the first error combined into err.
func Primary(err error) error {
	if errs := multierr.Errors(err); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Filtering forwards notifications only for instances accepted by its predicate.
type Filtering struct {
	delegate  Observer
	predicate func(model.CoreInstance) bool
}

// Filter wraps delegate so it only sees instances accepted by predicate.
func Filter(delegate Observer, predicate func(model.CoreInstance) bool) *Filtering {
	return &Filtering{delegate: delegate, predicate: predicate}
}

func (f *Filtering) StartProcessing(instance model.CoreInstance) error {
	if !f.predicate(instance) {
		return nil
	}
	return f.delegate.StartProcessing(instance)
}

func (f *Filtering) FinishProcessing(instance model.CoreInstance) error {
	if !f.predicate(instance) {
		return nil
	}
	return f.delegate.FinishProcessing(instance)
}

func (f *Filtering) FinishProcessingWithError(instance model.CoreInstance, cause error) error {
	if !f.predicate(instance) {
		return nil
	}
	return f.delegate.FinishProcessingWithError(instance, cause)
}

// PackageableElementsOnly accepts instances registered in a package.
func PackageableElementsOnly(instance model.CoreInstance) bool {
	return instance.ValueToOne(metamodel.PropPackage) != nil
}
