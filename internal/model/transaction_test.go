package model

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Isolation(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)
	inst.SetKeyValues(key("name"), []CoreInstance{repo.NewString("before")})

	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)
	assert.True(t, tx.IsOpen())

	inst.SetKeyValues(key("name"), []CoreInstance{repo.NewString("after")})
	inst.SetName("B")

	assert.True(t, tx.IsRegistered(inst))
	assert.Equal(t, "after", inst.ValueToOne("name").Name())
	assert.Equal(t, "before", inst.CommittedState().Values("name")[0].Name())
	assert.Equal(t, "A", inst.CommittedState().Name())

	require.NoError(t, tx.Commit())
	assert.Nil(t, repo.Transaction())
	assert.Equal(t, TransactionCommitted, tx.Status())
	assert.Equal(t, "after", inst.CommittedState().Values("name")[0].Name())
	assert.Equal(t, "B", inst.Name())
}

func TestTransaction_Rollback(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)

	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)
	inst.AddKeyValue(key("values"), repo.NewString("x"))
	inst.AddCompileState(Processed)
	assert.True(t, inst.IsValueDefined("values"))

	require.NoError(t, tx.Rollback())
	assert.Equal(t, TransactionRolledBack, tx.Status())
	assert.False(t, inst.IsValueDefined("values"))
	assert.False(t, inst.HasCompileState(Processed))
}

func TestTransaction_CopiesStateOncePerInstance(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)

	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)
	inst.AddKeyValue(key("values"), repo.NewString("x"))
	first := tx.State(inst)
	inst.AddKeyValue(key("values"), repo.NewString("y"))

	assert.Same(t, first, tx.State(inst))
	assert.Equal(t, 1, tx.Modified())
	assert.Error(t, tx.RegisterModified(inst, NewState("A", nil, nil)))
	require.NoError(t, tx.Rollback())
}

func TestTransaction_OnlyOneOpen(t *testing.T) {
	repo := NewRepository()
	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)

	_, err = repo.NewTransaction(true)
	assert.ErrorIs(t, err, ErrTransactionOpen)

	require.NoError(t, tx.Commit())
	_, err = repo.NewTransaction(true)
	assert.NoError(t, err)
}

func TestTransaction_StateErrors(t *testing.T) {
	repo := NewRepository()
	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var stateErr *TransactionStateError
	err = tx.Commit()
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, TransactionCommitted, stateErr.Status)
	assert.Error(t, tx.Rollback())
}

func TestTransaction_NotCommittable(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)
	tx, err := repo.NewTransaction(false)
	require.NoError(t, err)
	inst.SetName("B")

	assert.ErrorIs(t, tx.Commit(), ErrNotCommittable)
	assert.True(t, tx.IsOpen())
	require.NoError(t, tx.Rollback())
	assert.Equal(t, "A", inst.Name())
}

func TestRepository_ResetInvalidatesTransaction(t *testing.T) {
	repo := NewRepository()
	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)

	repo.Reset()
	assert.Equal(t, TransactionInvalid, tx.Status())
	assert.Nil(t, repo.Transaction())
}

func TestTransaction_InvisibleToOtherGoroutines(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)
	inst.SetKeyValues(key("name"), []CoreInstance{repo.NewString("before")})

	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)
	inst.SetKeyValues(key("name"), []CoreInstance{repo.NewString("staged")})
	inst.SetName("B")
	assert.Equal(t, "staged", inst.ValueToOne("name").Name())

	read := func() (value, name string, owned bool) {
		done := make(chan struct{})
		go func() {
			defer close(done)
			value, name = inst.ValueToOne("name").Name(), inst.Name()
			owned = repo.CurrentTransaction() != nil || tx.InCurrentGoroutine()
		}()
		<-done
		return value, name, owned
	}

	value, name, owned := read()
	assert.Equal(t, "before", value)
	assert.Equal(t, "A", name)
	assert.False(t, owned)
	assert.Same(t, tx, repo.CurrentTransaction())
	assert.True(t, tx.InCurrentGoroutine())

	require.NoError(t, tx.Commit())
	value, name, _ = read()
	assert.Equal(t, "staged", value)
	assert.Equal(t, "B", name)
}

func TestTransaction_OtherGoroutinesWriteCommittedState(t *testing.T) {
	repo := NewRepository()
	staged := repo.NewInstance("Staged", nil, nil)
	shared := repo.NewInstance("Shared", nil, nil)

	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)
	staged.AddKeyValue(key("values"), repo.NewString("owner"))

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shared.AddKeyValue(key("values"), repo.NewString("writer"))
			shared.AddCompileState(Processed)
		}()
	}
	wg.Wait()

	assert.False(t, tx.IsRegistered(shared))
	assert.Equal(t, 1, tx.Modified())
	assert.True(t, shared.CommittedState().CompileStates().Has(Processed))
	assert.NotEmpty(t, shared.CommittedState().Values("values"))
	assert.Empty(t, staged.CommittedState().Values("values"))

	require.NoError(t, tx.Rollback())
	assert.True(t, shared.HasCompileState(Processed))
	assert.False(t, staged.IsValueDefined("values"))
}

func TestTransaction_StateForWriteRegistersOnce(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)
	tx, err := repo.NewTransaction(true)
	require.NoError(t, err)

	var copies int
	stage := func() *State {
		copies++
		return inst.CommittedState().Copy()
	}
	first := tx.stateForWrite(inst, stage)
	require.NotNil(t, first)
	assert.Same(t, first, tx.stateForWrite(inst, stage))
	assert.Equal(t, 1, copies)
	assert.Equal(t, 1, tx.Modified())

	require.NoError(t, tx.Rollback())
	assert.Nil(t, tx.stateForWrite(inst, stage))
	assert.Equal(t, 1, copies)

	inst.SetName("B")
	assert.Equal(t, "B", inst.CommittedState().Name())
}
