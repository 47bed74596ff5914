package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"

	"energy-billing/internal/accounting"
)

// SQLiteStore keeps the document of each instance as one row of a SQLite table.
type SQLiteStore struct {
	db         *sql.DB
	instanceID string
}

// OpenSQLite opens (creating if needed) the database at path and prepares the
// schema. Several instances may share one database file.
func OpenSQLite(ctx context.Context, path, instanceID string) (*SQLiteStore, error) {
	if instanceID == "" {
		return nil, errors.New("sqlite state: instance id is required")
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps in-memory databases and the busy timeout coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, instanceID: instanceID}
	if err := s.configure(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) configure(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS state_documents (
		instance_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		document TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (*accounting.State, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM state_documents WHERE instance_id = ?`, s.instanceID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return accounting.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", s.instanceID, err)
	}
	return accounting.DecodeState([]byte(doc))
}

// Save upserts the document in a single statement, so a crash leaves either the
// previous row or the new one.
func (s *SQLiteStore) Save(ctx context.Context, st *accounting.State) error {
	raw, err := st.Encode()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO state_documents (instance_id, version, document, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(instance_id) DO UPDATE SET
		version = excluded.version,
		document = excluded.document,
		updated_at = excluded.updated_at`,
		s.instanceID, st.Version, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", s.instanceID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
