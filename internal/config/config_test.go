package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "solace", cfg.Name)
	assert.Equal(t, "openai", cfg.Generation.Knowledge.Kind)
	assert.Equal(t, "anthropic", cfg.Generation.Empathy.Kind)
	assert.True(t, cfg.Protocols.Watch)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
generation:
  empathy:
    kind: gemini
    model: gemini-2.5-flash
protocols:
  path: /etc/solace/protocols.yaml
  watch: false
session:
  redis_addr: localhost:6379
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Generation.Empathy.Kind)
	assert.Equal(t, "openai", cfg.Generation.Knowledge.Kind) // default kept
	assert.Equal(t, "/etc/solace/protocols.yaml", cfg.Protocols.Path)
	assert.False(t, cfg.Protocols.Watch)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-anthropic")
	t.Setenv("SOLACE_REDIS_ADDR", "redis:6379")
	t.Setenv("SOLACE_DB", "/var/lib/solace/safety.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "test-anthropic", cfg.Generation.Empathy.APIKey)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.Equal(t, "/var/lib/solace/safety.db", cfg.Storage.DatabasePath)
}

func TestValidateRejectsUnknownProviderKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generation.Knowledge.Kind = "llama-local"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestEmotionTimeoutFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Emotion.Timeout = "not-a-duration"
	assert.Equal(t, "5s", cfg.EmotionTimeout().String())
}
