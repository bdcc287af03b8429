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
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRead_MergesWithDefaults(t *testing.T) {
	path := writeConfig(t, "ListenAddr: \":9000\"\nWorkerPoolSize: 8\n")

	cfg, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	// Untouched fields keep defaults.
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, "town_square", cfg.StartingRoom)
	assert.Equal(t, 64, cfg.WriteQueueSize)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRead_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "{{{not yaml")
	_, err := Read(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("rejects empty listen address", func(t *testing.T) {
		cfg := Default()
		cfg.ListenAddr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive worker pool", func(t *testing.T) {
		cfg := Default()
		cfg.WorkerPoolSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown cache backend", func(t *testing.T) {
		cfg := Default()
		cfg.CacheBackend = "memcached"
		assert.Error(t, cfg.Validate())
	})

	t.Run("redis backend requires address", func(t *testing.T) {
		cfg := Default()
		cfg.CacheBackend = "redis"
		assert.Error(t, cfg.Validate())
		cfg.RedisAddr = "localhost:6379"
		assert.NoError(t, cfg.Validate())
	})
}
