// Package sqlite stores element records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	// registers the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/metacore/internal/store"
)

// Config holds SQLite store configuration.
type Config struct {
	// DSN is the data source name, a file path or ":memory:".
	DSN string

	// TableName is the name of the elements table.
	TableName string
}

// DefaultConfig returns a configuration for the database file at path.
func DefaultConfig(path string) *Config {
	return &Config{DSN: path, TableName: "elements"}
}

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a SQLite-backed element store.
type Store struct {
	db        *sql.DB
	tableName string
	owned     bool
}

// Open opens the database described by config and creates the table.
func Open(config *Config) (*Store, error) {
	db, err := sql.Open("sqlite3", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)
	s, err := New(db, config.TableName)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing database. Close does not close db.
func New(db *sql.DB, tableName string) (*Store, error) {
	if tableName == "" {
		tableName = "elements"
	}
	if !validTable.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}
	s := &Store{db: db, tableName: tableName}
	if err := s.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create elements table: %w", err)
	}
	return s, nil
}

func (s *Store) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			path TEXT PRIMARY KEY,
			classifier TEXT NOT NULL,
			data BLOB NOT NULL,
			back_references BLOB
		)
	`, s.tableName)
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) Put(ctx context.Context, record store.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (path, classifier, data, back_references)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			classifier = excluded.classifier,
			data = excluded.data,
			back_references = excluded.back_references
	`, s.tableName)
	data := record.Data
	if data == nil {
		data = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, query, record.Path, record.Classifier, data, record.BackReferences); err != nil {
		return fmt.Errorf("failed to store element %s: %w", record.Path, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (store.Record, error) {
	query := fmt.Sprintf(`SELECT path, classifier, data, back_references FROM %s WHERE path = ?`, s.tableName)
	var r store.Record
	err := s.db.QueryRowContext(ctx, query, path).Scan(&r.Path, &r.Classifier, &r.Data, &r.BackReferences)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("database query error: %w", err)
	}
	return r, nil
}

func (s *Store) Index(ctx context.Context) ([]store.Record, error) {
	query := fmt.Sprintf(`SELECT path, classifier, back_references FROM %s ORDER BY path`, s.tableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var r store.Record
		if err := rows.Scan(&r.Path, &r.Classifier, &r.BackReferences); err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, path string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE path = ?`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("failed to delete element %s: %w", path, err)
	}
	return nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
