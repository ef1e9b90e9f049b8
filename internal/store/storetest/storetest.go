// Package storetest checks that a store.Store implementation behaves like
// every other one.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/store"
)

// Run exercises the store returned by open. Every subtest gets a fresh store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		s := open(t)
		person := store.Record{Path: "my::Person", Classifier: "Class", Data: []byte{1, 2, 3}, BackReferences: []byte{4}}
		require.NoError(t, s.Put(ctx, person))

		got, err := s.Get(ctx, "my::Person")
		require.NoError(t, err)
		assert.Equal(t, person, got)
	})

	t.Run("Replace", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, store.Record{Path: "my::A", Classifier: "Class", Data: []byte{1}}))
		require.NoError(t, s.Put(ctx, store.Record{Path: "my::A", Classifier: "Enumeration", Data: []byte{2}}))

		got, err := s.Get(ctx, "my::A")
		require.NoError(t, err)
		assert.Equal(t, "Enumeration", got.Classifier)
		assert.Equal(t, []byte{2}, got.Data)
		assert.Empty(t, got.BackReferences)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, "my::Missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Index", func(t *testing.T) {
		s := open(t)
		for _, p := range []string{"my::b::C", "my::A", "other::Z", "my::B"} {
			require.NoError(t, s.Put(ctx, store.Record{Path: p, Classifier: "Class", Data: []byte(p), BackReferences: []byte{9}}))
		}
		index, err := s.Index(ctx)
		require.NoError(t, err)

		var paths []string
		for _, r := range index {
			paths = append(paths, r.Path)
			assert.Equal(t, "Class", r.Classifier)
			assert.Empty(t, r.Data)
			assert.Equal(t, []byte{9}, r.BackReferences)
		}
		assert.Equal(t, []string{"my::A", "my::B", "my::b::C", "other::Z"}, paths)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, store.Record{Path: "my::A", Classifier: "Class", Data: []byte{1}}))
		require.NoError(t, s.Delete(ctx, "my::A"))
		require.NoError(t, s.Delete(ctx, "my::A"))

		_, err := s.Get(ctx, "my::A")
		assert.ErrorIs(t, err, store.ErrNotFound)
		index, err := s.Index(ctx)
		require.NoError(t, err)
		assert.Empty(t, index)
	})

	t.Run("ReplaceAll", func(t *testing.T) {
		s := open(t)
		require.NoError(t, store.PutAll(ctx, s, []store.Record{
			{Path: "my::A", Classifier: "Class", Data: []byte{1}},
			{Path: "my::B", Classifier: "Class", Data: []byte{2}},
		}))
		require.NoError(t, store.Replace(ctx, s, []store.Record{
			{Path: "my::B", Classifier: "Class", Data: []byte{3}},
			{Path: "my::C", Classifier: "Class", Data: []byte{4}},
		}))

		index, err := s.Index(ctx)
		require.NoError(t, err)
		require.Len(t, index, 2)
		assert.Equal(t, "my::B", index[0].Path)
		assert.Equal(t, "my::C", index[1].Path)

		got, err := s.Get(ctx, "my::B")
		require.NoError(t, err)
		assert.Equal(t, []byte{3}, got.Data)
	})
}
