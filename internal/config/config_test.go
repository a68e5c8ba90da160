package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(tokenEnv, "")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Endpoint)
	assert.Equal(t, "/ui/chat", cfg.ChatPath)
	assert.Equal(t, 20, cfg.Buffer.MinChunkSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Buffer.MaxDelay)
	assert.Equal(t, "markdown", cfg.Render.Format)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.NotNil(t, cfg.Prompts)
}

func TestLoadConfigFromYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv(tokenEnv, "")

	dir := filepath.Join(home, configDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data := []byte(`
endpoint: https://chat.example.com
buffer:
  min_chunk_size: 64
prompts:
  review: Review this code
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), data, 0o600))

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Endpoint)
	assert.Equal(t, 64, cfg.Buffer.MinChunkSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Buffer.MaxDelay, "unset keys keep their default")
	assert.Equal(t, "/ui/chat/init", cfg.WelcomePath)
	assert.Equal(t, "Review this code", cfg.Prompts["review"])
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	dir := filepath.Join(home, configDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("endpoint: [\n"), 0o600))

	_, err := LoadConfig(context.Background())
	assert.Error(t, err)
}

func TestLoadConfigTokenFromEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(tokenEnv, "secret")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Token)
}
