package model

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Primitive type names used for literal instances.
const (
	TypeString   = "String"
	TypeBoolean  = "Boolean"
	TypeInteger  = "Integer"
	TypeFloat    = "Float"
	TypeDate     = "Date"
	TypeDateTime = "DateTime"
)

// Repository owns every instance of one compiled graph. At most one
// transaction may be open on it at a time, and it is bound to the
// goroutine that opened it.
type Repository struct {
	nextID atomic.Int64

	mu        sync.RWMutex
	topLevels map[string]CoreInstance

	txMu sync.RWMutex
	tx   *Transaction
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{topLevels: make(map[string]CoreInstance)}
}

// NewInstance creates an instance with the given name.
func (r *Repository) NewInstance(name string, classifier CoreInstance, source *SourceInformation) *Instance {
	return newInstance(r, r.nextID.Add(1), NewState(name, classifier, source))
}

// NewAnonymousInstance creates an instance with an empty name.
func (r *Repository) NewAnonymousInstance(classifier CoreInstance, source *SourceInformation) *Instance {
	return r.NewInstance("", classifier, source)
}

// NewPrimitive creates a literal value instance typed by the top-level primitive type.
func (r *Repository) NewPrimitive(value any, typeName string) *Instance {
	inst := newInstance(r, r.nextID.Add(1), NewState(formatPrimitive(value), r.TopLevel(typeName), nil))
	inst.primitive = value
	return inst
}

func (r *Repository) NewString(value string) *Instance { return r.NewPrimitive(value, TypeString) }

func (r *Repository) NewBoolean(value bool) *Instance { return r.NewPrimitive(value, TypeBoolean) }

func (r *Repository) NewInteger(value int64) *Instance { return r.NewPrimitive(value, TypeInteger) }

func (r *Repository) NewFloat(value float64) *Instance { return r.NewPrimitive(value, TypeFloat) }

// NewDate creates a date literal from its textual form, e.g. 2024-01-31.
func (r *Repository) NewDate(value string) *Instance { return r.NewPrimitive(value, TypeDate) }

func formatPrimitive(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// AddTopLevel registers an instance reachable by name without a package.
func (r *Repository) AddTopLevel(instance CoreInstance) {
	r.mu.Lock()
	r.topLevels[instance.Name()] = instance
	r.mu.Unlock()
}

func (r *Repository) TopLevel(name string) CoreInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topLevels[name]
}

func (r *Repository) RemoveTopLevel(name string) {
	r.mu.Lock()
	delete(r.topLevels, name)
	r.mu.Unlock()
}

// TopLevels returns all top-level instances sorted by name.
func (r *Repository) TopLevels() []CoreInstance {
	r.mu.RLock()
	out := make([]CoreInstance, 0, len(r.topLevels))
	for _, inst := range r.topLevels {
		out = append(out, inst)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// NewTransaction opens a transaction owned by the calling goroutine. Only
// committable transactions can be committed.
//
// Instance accessors stage writes in and read from the transaction only on
// the owning goroutine. Every other goroutine keeps reading and writing
// committed state.
func (r *Repository) NewTransaction(committable bool) (*Transaction, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	if r.tx != nil {
		return nil, ErrTransactionOpen
	}
	r.tx = &Transaction{
		id:          uuid.New(),
		repo:        r,
		committable: committable,
		owner:       goroutineID(),
		states:      make(map[CoreInstance]*State),
	}
	return r.tx, nil
}

// Transaction returns the open transaction, or nil, whichever goroutine owns it.
func (r *Repository) Transaction() *Transaction {
	r.txMu.RLock()
	defer r.txMu.RUnlock()
	return r.tx
}

// CurrentTransaction returns the open transaction if the calling goroutine
// owns it, or nil.
func (r *Repository) CurrentTransaction() *Transaction {
	tx := r.Transaction()
	if tx == nil || tx.owner != goroutineID() {
		return nil
	}
	return tx
}

// Reset invalidates any open transaction and drops all top-level instances.
func (r *Repository) Reset() {
	r.txMu.Lock()
	if r.tx != nil {
		r.tx.invalidate()
		r.tx = nil
	}
	r.txMu.Unlock()
	r.mu.Lock()
	r.topLevels = make(map[string]CoreInstance)
	r.mu.Unlock()
}

func (r *Repository) endTransaction(tx *Transaction) {
	r.txMu.Lock()
	if r.tx == tx {
		r.tx = nil
	}
	r.txMu.Unlock()
}
