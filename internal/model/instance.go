package model

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// CoreInstance is a node of the compiled graph.
type CoreInstance interface {
	// ID is a process-local identity; it is never persisted.
	ID() int64
	Repository() *Repository

	Name() string
	SetName(name string)
	Classifier() CoreInstance
	SetClassifier(classifier CoreInstance)
	SourceInformation() *SourceInformation
	SetSourceInformation(source *SourceInformation)

	// Primitive returns the literal carried by a primitive value instance.
	Primitive() (any, bool)

	ValueToOne(property string) CoreInstance
	ValuesToMany(property string) []CoreInstance
	RealKey(property string) []string
	Keys() []string
	IsValueDefined(property string) bool

	SetKeyValues(key []string, values []CoreInstance)
	SetLazyValues(key []string, supplier Supplier)
	AddKeyValue(key []string, value CoreInstance)
	AddKeyWithEmptyList(key []string)
	ModifyValue(property string, offset int, value CoreInstance) error
	RemoveValue(property string, value CoreInstance) bool
	RemoveProperty(property string)

	CompileStates() CompileState
	AddCompileState(state CompileState)
	RemoveCompileState(state CompileState)
	HasCompileState(state CompileState) bool

	// CommittedState is the state visible outside any open transaction.
	CommittedState() *State
	Commit(tx *Transaction)
	Rollback(tx *Transaction)
}

// Instance is the standard CoreInstance implementation. Its state lives
// behind an atomic pointer so a transaction commit swaps it in one store.
type Instance struct {
	id        int64
	repo      *Repository
	primitive any
	state     atomic.Pointer[State]
}

func newInstance(repo *Repository, id int64, state *State) *Instance {
	inst := &Instance{id: id, repo: repo}
	inst.state.Store(state)
	return inst
}

func (i *Instance) ID() int64               { return i.id }
func (i *Instance) Repository() *Repository { return i.repo }

func (i *Instance) Primitive() (any, bool) {
	return i.primitive, i.primitive != nil
}

// current returns the state visible to the calling goroutine: the staged
// state when it owns an open transaction that modified i, otherwise the
// committed state.
func (i *Instance) current() *State {
	if tx := i.repo.CurrentTransaction(); tx != nil {
		if s := tx.State(i); s != nil {
			return s
		}
	}
	return i.state.Load()
}

// prepareForWrite returns the state to mutate. Under a transaction owned by
// the calling goroutine the committed state is copied once and registered
// with it; a transaction that closed in the meantime leaves the write on
// the committed state.
func (i *Instance) prepareForWrite() *State {
	if tx := i.repo.CurrentTransaction(); tx != nil {
		if s := tx.stateForWrite(i, func() *State { return i.state.Load().Copy() }); s != nil {
			return s
		}
	}
	return i.state.Load()
}

func (i *Instance) Name() string { return i.current().Name() }

func (i *Instance) SetName(name string) { i.prepareForWrite().SetName(name) }

func (i *Instance) Classifier() CoreInstance { return i.current().Classifier() }

func (i *Instance) SetClassifier(classifier CoreInstance) {
	i.prepareForWrite().SetClassifier(classifier)
}

func (i *Instance) SourceInformation() *SourceInformation {
	return i.current().SourceInformation()
}

func (i *Instance) SetSourceInformation(source *SourceInformation) {
	i.prepareForWrite().SetSourceInformation(source)
}

// ValueToOne returns the single value of a property or nil. Holding more
// than one value in a to-one property is a caller error.
func (i *Instance) ValueToOne(property string) CoreInstance {
	values := i.current().Values(property)
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		panic(fmt.Sprintf("more than one (%d) value for the to-one property '%s' of %s", len(values), property, i))
	}
}

func (i *Instance) ValuesToMany(property string) []CoreInstance {
	return i.current().Values(property)
}

func (i *Instance) RealKey(property string) []string {
	return i.current().RealKey(property)
}

func (i *Instance) Keys() []string { return i.current().Keys() }

func (i *Instance) IsValueDefined(property string) bool {
	return i.current().IsDefined(property)
}

func (i *Instance) SetKeyValues(key []string, values []CoreInstance) {
	i.prepareForWrite().Set(key, values)
}

func (i *Instance) SetLazyValues(key []string, supplier Supplier) {
	i.prepareForWrite().SetLazy(key, supplier)
}

func (i *Instance) AddKeyValue(key []string, value CoreInstance) {
	i.prepareForWrite().Add(key, value)
}

func (i *Instance) AddKeyWithEmptyList(key []string) {
	i.prepareForWrite().Set(key, nil)
}

func (i *Instance) ModifyValue(property string, offset int, value CoreInstance) error {
	return i.prepareForWrite().Modify(property, offset, value)
}

func (i *Instance) RemoveValue(property string, value CoreInstance) bool {
	if !i.current().IsDefined(property) {
		return false
	}
	return i.prepareForWrite().Remove(property, value)
}

func (i *Instance) RemoveProperty(property string) {
	if i.current().cell(property) == nil {
		return
	}
	i.prepareForWrite().Delete(property)
}

func (i *Instance) CompileStates() CompileState { return i.current().CompileStates() }

func (i *Instance) AddCompileState(state CompileState) {
	s := i.prepareForWrite()
	s.SetCompileStates(s.CompileStates() | state)
}

func (i *Instance) RemoveCompileState(state CompileState) {
	if !i.HasCompileState(state) {
		return
	}
	s := i.prepareForWrite()
	s.SetCompileStates(s.CompileStates() &^ state)
}

func (i *Instance) HasCompileState(state CompileState) bool {
	return i.current().CompileStates().Has(state)
}

func (i *Instance) CommittedState() *State { return i.state.Load() }

// Commit makes the transaction's copy of the state live.
func (i *Instance) Commit(tx *Transaction) {
	if s := tx.State(i); s != nil {
		i.state.Store(s)
	}
}

// Rollback leaves the committed state untouched; the transaction copy is dropped with the transaction.
func (i *Instance) Rollback(tx *Transaction) {}

func (i *Instance) String() string {
	name := i.Name()
	if name == "" {
		name = "Anonymous_" + strconv.FormatInt(i.id, 10)
	}
	if c := i.Classifier(); c != nil {
		return fmt.Sprintf("%s(%d) instanceOf %s", name, i.id, c.Name())
	}
	return fmt.Sprintf("%s(%d)", name, i.id)
}

// Same reports whether a and b denote the same value: the same instance,
// or primitive values with equal literals and classifiers.
func Same(a, b CoreInstance) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	av, aok := a.Primitive()
	bv, bok := b.Primitive()
	return aok && bok && av == bv && a.Classifier() == b.Classifier()
}
