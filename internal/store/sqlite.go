package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// SQLiteStore persists project documents in a single SQLite database.
// Documents are stored as JSON blobs; the table exists for durability and
// concurrent sessions, not for querying artifact internals.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
	}
	logging.Store("sqlite store open at %s", path)
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads a project document. Missing rows return (nil, nil).
func (s *SQLiteStore) Load(ctx context.Context, projectID string) (*types.ProjectSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM projects WHERE id = ?", projectID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	var spec types.ProjectSpec
	if err := json.Unmarshal([]byte(doc), &spec); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", projectID, err)
	}
	return &spec, nil
}

// Save upserts the document.
func (s *SQLiteStore) Save(ctx context.Context, spec *types.ProjectSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("project has no id")
	}

	doc, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode project %s: %w", spec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		spec.ID, string(doc), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", spec.ID, err)
	}

	logging.StoreDebug("saved project %s (%d bytes)", spec.ID, len(doc))
	return nil
}

// List returns the ids of all stored projects, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
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
