package model

import (
	"fmt"
	"sort"
	"sync"
)

// LoadError is raised (as a panic value) when a lazy property supplier
// fails. Use State.Load to receive the error instead.
type LoadError struct {
	Property string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load property '%s': %v", e.Property, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// State holds everything mutable about an instance: its header (name,
// classifier, source information, compile state) and its property values.
//
// Property cells are looked up under a read lock and materialized without
// holding it, so concurrent readers of different properties never block
// each other. Writers replace whole cell values; published value slices
// are never mutated in place.
type State struct {
	mu         sync.RWMutex
	name       string
	classifier CoreInstance
	source     *SourceInformation
	compile    CompileState
	cells      map[string]*cell
}

// NewState creates an empty state.
func NewState(name string, classifier CoreInstance, source *SourceInformation) *State {
	return &State{
		name:       name,
		classifier: classifier,
		source:     source,
		cells:      make(map[string]*cell),
	}
}

func (s *State) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *State) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *State) Classifier() CoreInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier
}

func (s *State) SetClassifier(classifier CoreInstance) {
	s.mu.Lock()
	s.classifier = classifier
	s.mu.Unlock()
}

func (s *State) SourceInformation() *SourceInformation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *State) SetSourceInformation(source *SourceInformation) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

func (s *State) CompileStates() CompileState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compile
}

func (s *State) SetCompileStates(states CompileState) {
	s.mu.Lock()
	s.compile = states
	s.mu.Unlock()
}

func (s *State) cell(name string) *cell {
	s.mu.RLock()
	c := s.cells[name]
	s.mu.RUnlock()
	return c
}

// Load returns the values of a property, materializing it if needed.
// A missing property yields nil and no error.
func (s *State) Load(name string) ([]CoreInstance, error) {
	c := s.cell(name)
	if c == nil {
		return nil, nil
	}
	v, err := c.load()
	if err != nil {
		return nil, &LoadError{Property: name, Err: err}
	}
	return v.values, nil
}

// Values returns the values of a property; the slice must not be modified.
func (s *State) Values(name string) []CoreInstance {
	values, err := s.Load(name)
	if err != nil {
		panic(err)
	}
	return values
}

// RealKey returns the real key of a property, or nil if it is not present.
// It does not force materialization.
func (s *State) RealKey(name string) []string {
	c := s.cell(name)
	if c == nil {
		return nil
	}
	v := c.v.Load()
	if v.status == cellAbsent {
		return nil
	}
	return v.key
}

// IsDefined reports whether the property is present (possibly with an
// explicitly initialized empty list).
func (s *State) IsDefined(name string) bool {
	c := s.cell(name)
	if c == nil {
		return false
	}
	v, err := c.load()
	if err != nil {
		panic(&LoadError{Property: name, Err: err})
	}
	return v.status == cellLoaded
}

// IsLoaded reports whether the property has been materialized.
func (s *State) IsLoaded(name string) bool {
	c := s.cell(name)
	return c != nil && c.v.Load().status != cellUnloaded
}

// Keys returns the sorted names of all present or not yet loaded properties.
func (s *State) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.cells))
	for name, c := range s.cells {
		if c.v.Load().status != cellAbsent {
			keys = append(keys, name)
		}
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Set replaces the values of the property named by the last element of key.
func (s *State) Set(key []string, values []CoreInstance) {
	s.store(key, &cellValue{status: cellLoaded, key: key, values: clip(emptyIfNil(values))})
}

// SetLazy installs a supplier for the property; it runs on first access.
func (s *State) SetLazy(key []string, supplier Supplier) {
	s.store(key, &cellValue{status: cellUnloaded, key: key, lazy: &lazyValues{supply: supplier}})
}

// Add appends a value to the property, creating it if needed.
func (s *State) Add(key []string, value CoreInstance) {
	name := keyName(key)
	current := s.Values(name)
	values := make([]CoreInstance, len(current), len(current)+1)
	copy(values, current)
	s.store(key, &cellValue{status: cellLoaded, key: key, values: append(values, value)})
}

// Modify replaces the value at offset.
func (s *State) Modify(name string, offset int, value CoreInstance) error {
	c := s.cell(name)
	if c == nil {
		return fmt.Errorf("property '%s' is not defined", name)
	}
	v, err := c.load()
	if err != nil {
		return &LoadError{Property: name, Err: err}
	}
	if offset < 0 || offset >= len(v.values) {
		return fmt.Errorf("offset %d out of range for property '%s' with %d values", offset, name, len(v.values))
	}
	values := clip(v.values)
	values[offset] = value
	s.store(v.key, &cellValue{status: cellLoaded, key: v.key, values: values})
	return nil
}

// Remove removes the first value equal to value. Removing the last value
// removes the property entirely. It reports whether a value was removed.
func (s *State) Remove(name string, value CoreInstance) bool {
	c := s.cell(name)
	if c == nil {
		return false
	}
	v, err := c.load()
	if err != nil {
		panic(&LoadError{Property: name, Err: err})
	}
	for i, existing := range v.values {
		if Same(existing, value) {
			if len(v.values) == 1 {
				s.Delete(name)
				return true
			}
			values := make([]CoreInstance, 0, len(v.values)-1)
			values = append(values, v.values[:i]...)
			values = append(values, v.values[i+1:]...)
			s.store(v.key, &cellValue{status: cellLoaded, key: v.key, values: values})
			return true
		}
	}
	return false
}

// Delete removes a property; deleting a missing property does nothing.
func (s *State) Delete(name string) {
	s.mu.Lock()
	delete(s.cells, name)
	s.mu.Unlock()
}

// Copy returns a shallow copy that shares cell values, including pending
// suppliers, with s. Nothing is materialized.
func (s *State) Copy() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &State{
		name:       s.name,
		classifier: s.classifier,
		source:     s.source,
		compile:    s.compile,
		cells:      make(map[string]*cell, len(s.cells)),
	}
	for name, c := range s.cells {
		out.cells[name] = newCell(c.v.Load())
	}
	return out
}

func (s *State) store(key []string, v *cellValue) {
	name := keyName(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cells[name]; ok {
		c.v.Store(v)
		return
	}
	s.cells[name] = newCell(v)
}

func keyName(key []string) string {
	if len(key) == 0 {
		panic("model: empty property key")
	}
	return key[len(key)-1]
}

func emptyIfNil(values []CoreInstance) []CoreInstance {
	if values == nil {
		return []CoreInstance{}
	}
	return values
}
