// Package memory is an in-memory element store suitable for tests and
// single-process compilation.
package memory

import (
	"context"
	"sync"

	"github.com/conduit-lang/metacore/internal/store"
)

// Store keeps records in a map.
type Store struct {
	mu      sync.RWMutex
	records map[string]store.Record
	closed  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]store.Record)}
}

func (s *Store) Put(ctx context.Context, record store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.records[record.Path] = store.Record{
		Path:           record.Path,
		Classifier:     record.Classifier,
		Data:           clone(record.Data),
		BackReferences: clone(record.BackReferences),
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.Record{}, store.ErrClosed
	}
	r, ok := s.records[path]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	r.Data = clone(r.Data)
	r.BackReferences = clone(r.BackReferences)
	return r, nil
}

func (s *Store) Index(ctx context.Context) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]store.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, store.Record{Path: r.Path, Classifier: r.Classifier, BackReferences: clone(r.BackReferences)})
	}
	return store.SortByPath(out), nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	delete(s.records, path)
	return nil
}

// Close drops every record.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.records = nil
	s.mu.Unlock()
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
