package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 100, cfg.Orchestrator.MaxIterations)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("model:\n  provider: gemini\n  model: gemini-2.0-flash\norchestrator:\n  max_iterations: 50\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.Model)
	assert.Equal(t, 50, cfg.Orchestrator.MaxIterations)
	// Unset keys keep their defaults.
	assert.Equal(t, "120s", cfg.Model.Timeout)
	assert.Equal(t, 15, cfg.Orchestrator.TrimThreshold)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROTOFORGE_PROVIDER", "gemini")
	t.Setenv("PROTOFORGE_API_KEY", "k-123")
	t.Setenv("PROTOFORGE_MAX_ITERATIONS", "25")
	t.Setenv("PROTOFORGE_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "k-123", cfg.Model.APIKey)
	assert.Equal(t, 25, cfg.Orchestrator.MaxIterations)
	assert.True(t, cfg.Logging.Debug)
}

func TestEnvOverridesIgnoreBadInt(t *testing.T) {
	t.Setenv("PROTOFORGE_MAX_ITERATIONS", "lots")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Orchestrator.MaxIterations)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Model.Model = "gpt-4o-mini"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", loaded.Model.Model)
}
