// Package sqlite provides a CallStateStore backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
	_ "modernc.org/sqlite"
)

// DefaultDatabaseFile is the database created inside the data directory.
const DefaultDatabaseFile = "call_states.db"

// Store is a CallStateStore backed by SQLite.
//
// It expects an *sql.DB that uses the pure Go "modernc.org/sqlite" driver,
// registered under the name "sqlite".
type Store struct {
	db *sql.DB
}

var _ ports.CallStateStore = (*Store)(nil)

// Open opens (or creates) the database file at path and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New initializes the required schema in the given database and returns a Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS call_states (
			call_id TEXT PRIMARY KEY,
			node_name TEXT NOT NULL
		);`,
	)
	return err
}

func (s *Store) Get(ctx context.Context, callID string) (string, error) {
	var node string
	err := s.db.QueryRowContext(ctx,
		`SELECT node_name FROM call_states WHERE call_id = ?`, callID,
	).Scan(&node)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrCallNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read call state: %w", err)
	}
	return node, nil
}

func (s *Store) Set(ctx context.Context, callID, nodeName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_states (call_id, node_name)
		VALUES (?, ?)
		ON CONFLICT(call_id) DO UPDATE SET node_name = excluded.node_name`,
		callID, nodeName,
	)
	if err != nil {
		return fmt.Errorf("failed to write call state: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, callID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM call_states WHERE call_id = ?`, callID)
	return err
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT call_id FROM call_states ORDER BY call_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list call states: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
