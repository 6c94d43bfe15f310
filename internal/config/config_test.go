package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "reconlens.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 100, cfg.Engine.ReconciledRank)
	assert.False(t, cfg.Engine.KeepMixedHigh)
	assert.Equal(t, "template", cfg.Remarks.Provider)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/recon.db
engine:
  workers: 4
  reconciledRank: 90
  keepMixedHigh: true
log:
  level: debug
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/recon.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 90, cfg.Engine.ReconciledRank)
	assert.True(t, cfg.Engine.KeepMixedHigh)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, "template", cfg.Remarks.Provider)
	assert.Equal(t, 10, cfg.Remarks.TimeoutSeconds)
}

func TestLoad_OpenAIProvider(t *testing.T) {
	path := writeConfig(t, `
remarks:
  provider: openai
  openai:
    apiKey: sk-test
    model: gpt-4o-mini
  timeoutSeconds: 5
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Remarks.Provider)
	assert.Equal(t, "sk-test", cfg.Remarks.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Remarks.OpenAI.Model)
}

func TestLoad_OpenAIWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
remarks:
  provider: openai
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestLoad_OpenAIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, `
remarks:
  provider: openai
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Remarks.OpenAI.APIKey)
}

func TestLoad_InvalidProvider(t *testing.T) {
	path := writeConfig(t, `
remarks:
  provider: carrier-pigeon
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "remarks.provider")
}

func TestLoad_InvalidWorkers(t *testing.T) {
	path := writeConfig(t, `
engine:
  workers: -1
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not a map")

	_, err := Load(path)

	require.Error(t, err)
}
