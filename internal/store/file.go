// Package store provides persistence collaborator implementations for the
// project document: JSON file snapshots for simple deployments and a
// SQLite-backed store for anything longer-lived. Both satisfy
// types.ProjectStore.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// FileStore persists each project as one JSON file under a base directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

// Load reads a project document. A missing file is not an error: it
// returns (nil, nil) so callers can distinguish "new project" from
// failure.
func (s *FileStore) Load(_ context.Context, projectID string) (*types.ProjectSpec, error) {
	data, err := os.ReadFile(s.path(projectID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", projectID, err)
	}

	var spec types.ProjectSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", projectID, err)
	}
	return &spec, nil
}

// Save writes the document atomically: temp file then rename.
func (s *FileStore) Save(_ context.Context, spec *types.ProjectSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("project has no id")
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project %s: %w", spec.ID, err)
	}

	tmp := s.path(spec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project %s: %w", spec.ID, err)
	}
	if err := os.Rename(tmp, s.path(spec.ID)); err != nil {
		return fmt.Errorf("failed to commit project %s: %w", spec.ID, err)
	}

	logging.StoreDebug("saved project %s (%d bytes)", spec.ID, len(data))
	return nil
}
