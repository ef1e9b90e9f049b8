// Package store persists serialized elements of a compiled graph.
package store

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when no record exists for a path.
	ErrNotFound = errors.New("element not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store is closed")
)

// Record is one serialized element.
type Record struct {
	// Path is the user path of the element, e.g. my::Person.
	Path string

	// Classifier is the path of the element's metaclass.
	Classifier string

	// Data is the encoded element with every instance it owns.
	Data []byte

	// BackReferences are the encoded back references the element's
	// instances contribute to instances of other elements.
	BackReferences []byte
}

// Store is a keyed collection of element records.
type Store interface {
	// Put stores a record, replacing any record with the same path.
	Put(ctx context.Context, record Record) error

	// Get returns the record at path or ErrNotFound.
	Get(ctx context.Context, path string) (Record, error)

	// Index returns every record sorted by path, with its back references
	// but without Data.
	Index(ctx context.Context) ([]Record, error)

	// Delete removes the record at path; deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// Close releases the resources used by the store.
	Close() error
}

// PutAll stores records in order, stopping at the first error.
func PutAll(ctx context.Context, s Store, records []Record) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Put(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Replace makes the content of s exactly records.
func Replace(ctx context.Context, s Store, records []Record) error {
	index, err := s.Index(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(records))
	for _, r := range records {
		keep[r.Path] = true
	}
	for _, r := range index {
		if keep[r.Path] {
			continue
		}
		if err := s.Delete(ctx, r.Path); err != nil {
			return err
		}
	}
	return PutAll(ctx, s, records)
}

// SortByPath sorts records in place and returns them.
func SortByPath(records []Record) []Record {
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records
}
