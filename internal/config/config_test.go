package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir isolates Load from a .env in the package directory.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Model)
	assert.Equal(t, "tavily", cfg.Search.Provider)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 15*time.Second, cfg.Coordinator.HeartbeatInterval)
	assert.Equal(t, 5*time.Minute, cfg.Coordinator.Retention)
	assert.Equal(t, 64, cfg.Coordinator.QueueSize)
	assert.Equal(t, "file", cfg.History.Driver)
	assert.Equal(t, "web/research_history", cfg.History.Dir)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("TAVILY_API_KEY", "t-key")
	t.Setenv("PORT", "8081")
	t.Setenv("TEMPERATURE", "0.7")
	t.Setenv("DEEPRESEARCH_COORDINATOR_HEARTBEAT_INTERVAL", "5s")
	t.Setenv("DEEPRESEARCH_HISTORY_DRIVER", "sqlite3")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "t-key", cfg.Search.APIKey)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.HeartbeatInterval)
	assert.Equal(t, "sqlite3", cfg.History.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PrefixedBeatsLegacy(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("DEEPRESEARCH_SERVER_PORT", "9090")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "deepresearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
search:
  provider: duckduckgo
coordinator:
  workers: 4
  retention: 10m
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "duckduckgo", cfg.Search.Provider)
	assert.Equal(t, 4, cfg.Coordinator.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Coordinator.Retention)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_MODEL=gemini-1.5-flash\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GEMINI_MODEL") })

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Model)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate(), "missing api keys")

	cfg.LLM.APIKey = "k"
	cfg.Search.Provider = "duckduckgo"
	assert.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}
