package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	t.Run("Should use defaults", func(t *testing.T) {
		cfg, err := LoadFrom(nil)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.NotEmpty(t, cfg.Database.URL)
	})

	t.Run("Should read mapped environment variables", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "sqlite:///tmp/blog.db")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("CACHE_TTL", "30s")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("LOG_JSON", "true")

		cfg, err := LoadFrom(nil)
		require.NoError(t, err)
		assert.Equal(t, "sqlite:///tmp/blog.db", cfg.Database.URL)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.True(t, cfg.Log.JSON)
	})

	t.Run("Should apply overrides last", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "sqlite:///tmp/env.db")
		cfg, err := LoadFrom(map[string]any{"database.url": "sqlite:///tmp/flag.db"})
		require.NoError(t, err)
		assert.Equal(t, "sqlite:///tmp/flag.db", cfg.Database.URL)
	})

	t.Run("Should reject an invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		_, err := LoadFrom(nil)
		assert.ErrorContains(t, err, "validation failed")
	})
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:0", ServerConfig{Host: "127.0.0.1"}.Addr())
}
