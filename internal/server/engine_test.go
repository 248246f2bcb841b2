package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lunamoth/driftwood/internal/config"
	"github.com/lunamoth/driftwood/internal/persistence"
	"github.com/lunamoth/driftwood/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func snapshotConfig(t *testing.T, interval time.Duration) *config.Config {
	t.Helper()
	return &config.Config{
		Snapshot: config.SnapshotConfig{
			Enabled:  true,
			Path:     filepath.Join(t.TempDir(), "driftwood.snap"),
			Interval: interval,
		},
	}
}

func TestEngineShutdownPersistsAndReloads(t *testing.T) {
	cfg := snapshotConfig(t, 0) // no autosave, only the shutdown save

	eng, err := NewEngine(store.New(), cfg, zap.NewNop())
	require.NoError(t, err)

	eng.Execute("SET", makeArgs("foo", "bar"))
	eng.Execute("RPUSH", makeArgs("q", "a", "b"))
	eng.Execute("HSET", makeArgs("h", "f", "v"))
	eng.Execute("SET", makeArgs("temp", "x", "EX", "100"))

	eng.Shutdown()
	// Shutdown is idempotent
	eng.Shutdown()

	db := store.New()
	eng2, err := NewEngine(db, cfg, zap.NewNop())
	require.NoError(t, err)
	defer eng2.Shutdown()

	res := eng2.Execute("GET", makeArgs("foo"))
	assert.Equal(t, "bar", string(res.String))

	res = eng2.Execute("LRANGE", makeArgs("q", "0", "-1"))
	require.Len(t, res.Array, 2)
	assert.Equal(t, "a", string(res.Array[0].String))

	res = eng2.Execute("HGET", makeArgs("h", "f"))
	assert.Equal(t, "v", string(res.String))

	res = eng2.Execute("TTL", makeArgs("temp"))
	assert.Positive(t, res.Integer, "TTL must survive the snapshot round trip")
}

func TestEngineAutosave(t *testing.T) {
	cfg := snapshotConfig(t, 20*time.Millisecond)

	eng, err := NewEngine(store.New(), cfg, zap.NewNop())
	require.NoError(t, err)

	eng.Execute("SET", makeArgs("k", "v"))

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.Snapshot.Path)
		return err == nil
	}, time.Second, 10*time.Millisecond, "autosave never produced a snapshot")

	eng.Shutdown()
}

func TestEngineSaveCommand(t *testing.T) {
	cfg := snapshotConfig(t, 0)

	eng, err := NewEngine(store.New(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer eng.Shutdown()

	eng.Execute("SET", makeArgs("k", "v"))

	res := eng.Execute("SAVE", nil)
	assert.Equal(t, "OK", string(res.String))

	_, err = os.Stat(cfg.Snapshot.Path)
	assert.NoError(t, err)
}

func TestEngineRefusesCorruptSnapshot(t *testing.T) {
	cfg := snapshotConfig(t, 0)
	require.NoError(t, os.WriteFile(cfg.Snapshot.Path, []byte("NOTASNAP"), 0o644))

	db := store.New()
	_, err := NewEngine(db, cfg, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrBadHeader)
	assert.Zero(t, db.Len())
}
