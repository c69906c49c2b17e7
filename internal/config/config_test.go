package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.ServerPort)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "default", cfg.DefaultSession)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATA_DIR", "/var/lib/kos-wa")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEFAULT_SESSION", "kos-putri")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "/var/lib/kos-wa", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "kos-putri", cfg.DefaultSession)
}

func TestAddr(t *testing.T) {
	cfg := &Config{ServerPort: "8080"}
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestSessionDBPath(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join("var", "kos-wa")}
	assert.Equal(t, filepath.Join("var", "kos-wa", "sessions.db"), cfg.SessionDBPath())
}
