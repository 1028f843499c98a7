package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
log_level = "debug"
[sync]
max_fence_retries = 0
parallel_record = true
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultFenceTimeout, cfg.Sync.FenceTimeout)
	assert.Zero(t, cfg.Sync.MaxFenceRetries)
	assert.True(t, cfg.Sync.ParallelRecord)
	assert.Equal(t, DefaultConfig().Streaming, cfg.Streaming)
}

func TestParseConfigDurations(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[sync]
fence_timeout = "250ms"
`))
	require.NoError(t, err)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.Sync.FenceTimeout)
	assert.Equal(t, uint64(250_000_000), cfg.Sync.FenceTimeout.Nanoseconds())

	_, err = ParseConfig([]byte(`
[sync]
fence_timeout = "soon"
`))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	_, err := ParseConfig([]byte(`
[sync]
fence_timeout = "0s"
`))
	assert.Error(t, err)

	_, err = ParseConfig([]byte(`
[streaming]
workers = 0
`))
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = ParseConfig([]byte(`
[streaming]
queue_size = -1
`))
	assert.ErrorIs(t, err, ErrNegativeChannelSize)

	_, err = ParseConfig([]byte(`
[streaming]
max_pending = 0
`))
	assert.Error(t, err)
}

func TestConfigMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.FenceTimeout = Duration(3 * time.Second)
	cfg.Streaming.Workers = 4

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "3s")

	decoded, err := ParseConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
