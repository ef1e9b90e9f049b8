package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/store"
	"github.com/conduit-lang/metacore/internal/store/sqlite"
	"github.com/conduit-lang/metacore/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := sqlite.Open(sqlite.DefaultConfig(":memory:"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	s, err := sqlite.Open(sqlite.DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, store.Record{Path: "my::A", Classifier: "Class", Data: []byte{7}}))
	require.NoError(t, s.Close())

	s, err = sqlite.Open(sqlite.DefaultConfig(path))
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "my::A")
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, got.Data)
}

func TestNew_SharedDatabase(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = sqlite.New(db, "elements; DROP TABLE x")
	assert.Error(t, err)

	s, err := sqlite.New(db, "graph_elements")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	// the database stays usable
	require.NoError(t, db.Ping())
}
