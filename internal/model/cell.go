package model

import (
	"sync"
	"sync/atomic"
)

type cellStatus uint8

const (
	cellUnloaded cellStatus = iota
	cellLoaded
	cellAbsent
)

// Supplier produces the values of a lazily loaded property. It is invoked
// at most once, no matter how many copies of the owning state exist.
type Supplier func() ([]CoreInstance, error)

type lazyValues struct {
	once   sync.Once
	supply Supplier
	values []CoreInstance
	err    error
}

func (l *lazyValues) get() ([]CoreInstance, error) {
	l.once.Do(func() {
		l.values, l.err = l.supply()
		l.supply = nil
	})
	return l.values, l.err
}

// cellValue is immutable once published.
type cellValue struct {
	status cellStatus
	key    []string
	values []CoreInstance
	lazy   *lazyValues
}

type cell struct {
	v atomic.Pointer[cellValue]
}

func newCell(v *cellValue) *cell {
	c := &cell{}
	c.v.Store(v)
	return c
}

// load returns the materialized value of the cell, moving it from
// unloaded to loaded (or absent) on first use.
func (c *cell) load() (*cellValue, error) {
	for {
		cur := c.v.Load()
		if cur.status != cellUnloaded {
			return cur, nil
		}
		values, err := cur.lazy.get()
		if err != nil {
			return nil, err
		}
		next := &cellValue{status: cellLoaded, key: cur.key, values: clip(values)}
		if len(values) == 0 {
			next = &cellValue{status: cellAbsent, key: cur.key}
		}
		if c.v.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

func clip(values []CoreInstance) []CoreInstance {
	if values == nil {
		return nil
	}
	out := make([]CoreInstance, len(values))
	copy(out, values)
	return out
}
