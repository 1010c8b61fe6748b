package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.SessionExpireHours)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Empty(t, cfg.Database.MySQL.DSN)
	assert.Equal(t, "data/philosophers.json", cfg.Catalog.PhilosophersPath)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
llm:
  provider: gemini
  model: gemini-1.5-pro
  generation:
    temperature: 0.3
`), 0o644))
	t.Setenv("PHILO_LLM_API_KEY", "secret-key")
	t.Setenv("PHILO_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Model)
	assert.Equal(t, "secret-key", cfg.LLM.APIKey)
	assert.InDelta(t, 0.3, cfg.LLM.Generation.Temperature, 1e-9)
	assert.Equal(t, "chat-turns", cfg.Kafka.Topic)
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "philo-chat", cfg.MinIO.BucketName)
	assert.Equal(t, "chat_messages", cfg.Elasticsearch.IndexName)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
