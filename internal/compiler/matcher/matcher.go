// Package matcher dispatches pipeline handlers by classifier path. A
// handler registered for a metaclass runs for instances of that class and
// of every subclass, most specific class first.
package matcher

import (
	"sort"

	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// MatchRunner handles instances whose classifier is ClassName or a subtype of it.
type MatchRunner[S any] interface {
	ClassName() string
	Run(instance model.CoreInstance, state S, m *Matcher[S]) error
}

// RunnerFunc adapts a function to MatchRunner.
type RunnerFunc[S any] struct {
	Class string
	Fn    func(instance model.CoreInstance, state S, m *Matcher[S]) error
}

func (r RunnerFunc[S]) ClassName() string { return r.Class }

func (r RunnerFunc[S]) Run(instance model.CoreInstance, state S, m *Matcher[S]) error {
	return r.Fn(instance, state, m)
}

// Matcher is a dispatch table from classifier path to runners.
type Matcher[S any] struct {
	support *navigation.Support
	runners map[string][]MatchRunner[S]
}

// New creates an empty matcher.
func New[S any](support *navigation.Support) *Matcher[S] {
	return &Matcher[S]{support: support, runners: make(map[string][]MatchRunner[S])}
}

// Support returns the navigation support the matcher resolves classifiers with.
func (m *Matcher[S]) Support() *navigation.Support { return m.support }

// AddRunner registers a runner. Runners for the same class run in registration order.
func (m *Matcher[S]) AddRunner(r MatchRunner[S]) {
	m.runners[r.ClassName()] = append(m.runners[r.ClassName()], r)
}

// Match runs every runner applicable to instance, stopping at the first error.
func (m *Matcher[S]) Match(instance model.CoreInstance, state S) error {
	for _, r := range m.applicable(instance) {
		if err := r.Run(instance, state, m); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether any runner applies to instance.
func (m *Matcher[S]) Matches(instance model.CoreInstance) bool {
	return len(m.applicable(instance)) > 0
}

// ClassNames returns the classes with registered runners, sorted.
func (m *Matcher[S]) ClassNames() []string {
	names := make([]string, 0, len(m.runners))
	for name := range m.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Matcher[S]) applicable(instance model.CoreInstance) []MatchRunner[S] {
	classifier := instance.Classifier()
	if classifier == nil {
		return nil
	}
	var out []MatchRunner[S]
	for _, t := range m.support.TypeGeneralizationsLenient(classifier) {
		out = append(out, m.runners[m.support.UserPath(t)]...)
	}
	return out
}
