package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "6379", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, "driftwood.snap", cfg.Snapshot.Path)
	assert.Equal(t, 5*time.Minute, cfg.Snapshot.Interval)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DRIFTWOOD_SERVER_PORT", "7000")
	t.Setenv("DRIFTWOOD_SNAPSHOT_INTERVAL", "30s")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Snapshot.Interval)
}
