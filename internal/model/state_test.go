package model

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(name string) []string { return []string{"Root", "test", "Thing", "properties", name} }

func TestState_LazySupplierRunsOnce(t *testing.T) {
	repo := NewRepository()
	value := repo.NewAnonymousInstance(nil, nil)

	var calls atomic.Int32
	s := NewState("thing", nil, nil)
	s.SetLazy(key("values"), func() ([]CoreInstance, error) {
		calls.Add(1)
		return []CoreInstance{value}, nil
	})

	assert.False(t, s.IsLoaded("values"))
	assert.Equal(t, []string{"values"}, s.Keys())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := s.Values("values")
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, s.IsLoaded("values"))
}

func TestState_CopyDoesNotMaterialize(t *testing.T) {
	var calls atomic.Int32
	s := NewState("thing", nil, nil)
	s.SetLazy(key("values"), func() ([]CoreInstance, error) {
		calls.Add(1)
		return nil, nil
	})

	c := s.Copy()
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, c.IsLoaded("values"))

	assert.Nil(t, c.Values("values"))
	assert.Nil(t, s.Values("values"))
	assert.Equal(t, int32(1), calls.Load(), "copies share the supplier result")
}

func TestState_EmptySupplierIsAbsent(t *testing.T) {
	s := NewState("thing", nil, nil)
	s.SetLazy(key("values"), func() ([]CoreInstance, error) { return nil, nil })

	assert.False(t, s.IsDefined("values"))
	assert.Empty(t, s.Keys())
	assert.Nil(t, s.RealKey("values"))
}

func TestState_LoadError(t *testing.T) {
	boom := errors.New("boom")
	s := NewState("thing", nil, nil)
	s.SetLazy(key("values"), func() ([]CoreInstance, error) { return nil, boom })

	_, err := s.Load("values")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "values", loadErr.Property)
	assert.ErrorIs(t, err, boom)
	assert.Panics(t, func() { s.Values("values") })
}

func TestState_WritesDoNotLeakIntoCopies(t *testing.T) {
	repo := NewRepository()
	a := repo.NewInstance("a", nil, nil)
	b := repo.NewInstance("b", nil, nil)

	s := NewState("thing", nil, nil)
	s.Add(key("values"), a)
	c := s.Copy()
	c.Add(key("values"), b)

	assert.Len(t, s.Values("values"), 1)
	assert.Len(t, c.Values("values"), 2)
}

func TestState_ExplicitEmptyList(t *testing.T) {
	s := NewState("thing", nil, nil)
	s.Set(key("values"), nil)

	assert.True(t, s.IsDefined("values"))
	assert.NotNil(t, s.Values("values"))
	assert.Empty(t, s.Values("values"))
}

func TestState_Modify(t *testing.T) {
	repo := NewRepository()
	a := repo.NewInstance("a", nil, nil)
	b := repo.NewInstance("b", nil, nil)

	s := NewState("thing", nil, nil)
	s.Set(key("values"), []CoreInstance{a, a})

	require.NoError(t, s.Modify("values", 1, b))
	assert.Equal(t, []CoreInstance{a, b}, s.Values("values"))
	assert.Error(t, s.Modify("values", 2, b))
	assert.Error(t, s.Modify("missing", 0, b))
}
