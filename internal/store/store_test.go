package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/project"
	"protoforge/internal/types"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	// Missing project is not an error.
	got, err := s.Load(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	spec := project.New("p1", "a temperature logger")
	spec.Name = "ThermoPal"
	require.NoError(t, s.Save(ctx, spec))

	got, err = s.Load(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ThermoPal", got.Name)
	require.Len(t, got.Stages, len(types.StageOrder))
	assert.Equal(t, types.StagePending, got.Stages[types.StageExport].Status)
}

func TestFileStoreRejectsEmptyID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Save(context.Background(), &types.ProjectSpec{}))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	spec := project.New("p1", "desc")
	require.NoError(t, s.Save(ctx, spec))

	// Upsert overwrites.
	spec.Name = "renamed"
	require.NoError(t, s.Save(ctx, spec))

	got, err = s.Load(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "renamed", got.Name)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)
}

func TestSQLiteStorePersistsOrchestratorState(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	defer s.Close()

	spec := project.New("p2", "desc")
	spec.Orchestrator = &types.PersistedOrchestratorState{
		Conversation: []types.ConversationMessage{{Role: types.RoleSystem, Content: "sys"}},
		Iteration:    7,
		Status:       types.StatusPaused,
		CurrentStage: types.StageBoard,
	}
	require.NoError(t, s.Save(ctx, spec))

	got, err := s.Load(ctx, "p2")
	require.NoError(t, err)
	require.NotNil(t, got.Orchestrator)
	assert.Equal(t, 7, got.Orchestrator.Iteration)
	assert.Equal(t, types.StatusPaused, got.Orchestrator.Status)
	assert.Equal(t, types.StageBoard, got.Orchestrator.CurrentStage)
}
