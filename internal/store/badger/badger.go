// Package badger stores element records in an embedded BadgerDB.
//
// Each element uses two keys: e/<path> holds the classifier and the
// element data, b/<path> holds the classifier and its back references, so
// Index never reads element data.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/store"
)

const (
	dataPrefix  = "e/"
	indexPrefix = "b/"
)

// Config holds configuration for a BadgerDB element store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's own log output. Nil disables it.
	Logger *zap.Logger
}

// DefaultConfig returns a persistent configuration at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// zapLogger adapts zap to BadgerDB's Logger interface.
type zapLogger struct {
	logger *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.logger.Infof(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// Store is a BadgerDB-backed element store.
type Store struct {
	db *badger.DB
}

type entry struct {
	Classifier string `msgpack:"c"`
	Payload    []byte `msgpack:"p"`
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(zapLogger{logger: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(ctx context.Context, record store.Record) error {
	data, err := msgpack.Marshal(entry{Classifier: record.Classifier, Payload: record.Data})
	if err != nil {
		return fmt.Errorf("encode element %s: %w", record.Path, err)
	}
	index, err := msgpack.Marshal(entry{Classifier: record.Classifier, Payload: record.BackReferences})
	if err != nil {
		return fmt.Errorf("encode element %s: %w", record.Path, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+record.Path), data); err != nil {
			return err
		}
		return txn.Set([]byte(indexPrefix+record.Path), index)
	})
}

func (s *Store) Get(ctx context.Context, path string) (store.Record, error) {
	r := store.Record{Path: path}
	err := s.db.View(func(txn *badger.Txn) error {
		data, err := read(txn, dataPrefix+path)
		if err != nil {
			return err
		}
		index, err := read(txn, indexPrefix+path)
		if err != nil {
			return err
		}
		r.Classifier, r.Data, r.BackReferences = data.Classifier, data.Payload, index.Payload
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("read element %s: %w", path, err)
	}
	return r, nil
}

func read(txn *badger.Txn, key string) (entry, error) {
	var e entry
	item, err := txn.Get([]byte(key))
	if err != nil {
		return e, err
	}
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &e)
	})
	return e, err
}

func (s *Store) Index(ctx context.Context) ([]store.Record, error) {
	var out []store.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(indexPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var e entry
			if err := item.Value(func(val []byte) error { return msgpack.Unmarshal(val, &e) }); err != nil {
				return err
			}
			path := string(item.Key()[len(indexPrefix):])
			out = append(out, store.Record{Path: path, Classifier: e.Classifier, BackReferences: e.Payload})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index elements: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(dataPrefix + path)); err != nil {
			return err
		}
		return txn.Delete([]byte(indexPrefix + path))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
