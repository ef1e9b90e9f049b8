package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle state of a Transaction.
type TransactionStatus int

const (
	TransactionOpen TransactionStatus = iota
	TransactionCommitting
	TransactionCommitted
	TransactionRollingBack
	TransactionRolledBack
	TransactionInvalid
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionOpen:
		return "open"
	case TransactionCommitting:
		return "committing"
	case TransactionCommitted:
		return "committed"
	case TransactionRollingBack:
		return "rolling back"
	case TransactionRolledBack:
		return "rolled back"
	default:
		return "invalid"
	}
}

var (
	// ErrTransactionOpen is returned when a second transaction is requested.
	ErrTransactionOpen = errors.New("a transaction is already open on this repository")
	// ErrNotCommittable is returned when committing a transaction created as non-committable.
	ErrNotCommittable = errors.New("Transaction is not committable")
)

// TransactionStateError reports an operation attempted in the wrong state.
type TransactionStateError struct {
	Op     string
	Status TransactionStatus
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("cannot %s transaction: transaction is %s", e.Op, e.Status)
}

// Transaction stages instance state changes until Commit.
type Transaction struct {
	id          uuid.UUID
	repo        *Repository
	committable bool
	owner       uint64

	mu       sync.RWMutex
	status   TransactionStatus
	states   map[CoreInstance]*State
	modified []CoreInstance
}

func (t *Transaction) ID() uuid.UUID { return t.id }

func (t *Transaction) Status() TransactionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Transaction) IsOpen() bool { return t.Status() == TransactionOpen }

func (t *Transaction) IsCommittable() bool { return t.committable }

// InCurrentGoroutine reports whether the calling goroutine owns t.
func (t *Transaction) InCurrentGoroutine() bool { return t.owner == goroutineID() }

// RegisterModified records the state copy for an instance. It must be called
// once per instance, before the first mutation under the transaction.
func (t *Transaction) RegisterModified(instance CoreInstance, state *State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TransactionOpen {
		return &TransactionStateError{Op: "register modification with", Status: t.status}
	}
	if _, ok := t.states[instance]; ok {
		return fmt.Errorf("instance %v is already registered with transaction %s", instance, t.id)
	}
	t.states[instance] = state
	t.modified = append(t.modified, instance)
	return nil
}

// stateForWrite returns the state registered for instance, registering the
// copy made by stage when there is none yet. It returns nil once t is no
// longer open.
func (t *Transaction) stateForWrite(instance CoreInstance, stage func() *State) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TransactionOpen {
		return nil
	}
	if s, ok := t.states[instance]; ok {
		return s
	}
	s := stage()
	t.states[instance] = s
	t.modified = append(t.modified, instance)
	return s
}

// State returns the registered state for an instance, or nil.
func (t *Transaction) State(instance CoreInstance) *State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.status != TransactionOpen && t.status != TransactionCommitting {
		return nil
	}
	return t.states[instance]
}

func (t *Transaction) IsRegistered(instance CoreInstance) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.states[instance]
	return ok
}

// Modified returns the number of instances registered with the transaction.
func (t *Transaction) Modified() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.modified)
}

// Commit makes every registered state live. Each instance switches in a
// single store; there is no atomicity across instances.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	if t.status != TransactionOpen {
		status := t.status
		t.mu.Unlock()
		return &TransactionStateError{Op: "commit", Status: status}
	}
	if !t.committable {
		t.mu.Unlock()
		return ErrNotCommittable
	}
	t.status = TransactionCommitting
	modified := t.modified
	t.mu.Unlock()

	for _, instance := range modified {
		instance.Commit(t)
	}

	t.mu.Lock()
	t.status = TransactionCommitted
	t.states = nil
	t.modified = nil
	t.mu.Unlock()
	t.repo.endTransaction(t)
	return nil
}

// Rollback discards every staged state.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	if t.status != TransactionOpen {
		status := t.status
		t.mu.Unlock()
		return &TransactionStateError{Op: "roll back", Status: status}
	}
	t.status = TransactionRollingBack
	modified := t.modified
	t.mu.Unlock()

	for _, instance := range modified {
		instance.Rollback(t)
	}

	t.mu.Lock()
	t.status = TransactionRolledBack
	t.states = nil
	t.modified = nil
	t.mu.Unlock()
	t.repo.endTransaction(t)
	return nil
}

// invalidate marks an open transaction unusable, e.g. when its repository is reset.
func (t *Transaction) invalidate() {
	t.mu.Lock()
	if t.status == TransactionOpen {
		t.status = TransactionInvalid
		t.states = nil
		t.modified = nil
	}
	t.mu.Unlock()
}
