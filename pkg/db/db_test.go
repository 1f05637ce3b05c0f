package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "meetings")
	t.Setenv("DB_USER", "pipeline")
	t.Setenv("DB_MAX_CONNS", "50")

	cfg := ConfigFromEnv()
	assert.Equal(t, "pg.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "meetings", cfg.Database)
	assert.Equal(t, "pipeline", cfg.User)
	assert.Equal(t, int32(50), cfg.MaxConns)
}

func TestConnectionString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.User = "u ser"
	cfg.Password = "p@ss"

	s := cfg.ConnectionString()
	assert.Contains(t, s, "u+ser")
	assert.Contains(t, s, "p%40ss")
	assert.Contains(t, s, "sslmode=disable")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxConns = 1
	cfg.MinConns = 5
	assert.Error(t, cfg.Validate())
}
