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
	path := filepath.Join(t.TempDir(), "burrow.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, int64(600), snap.GC.Interval)
	assert.Equal(t, int64(86400), snap.GC.MaxHistory)
	assert.Equal(t, uint(1000), snap.RateLimit.Count)
	assert.Equal(t, int64(60), snap.RateLimit.Interval)
	assert.Equal(t, uint(90), snap.Check.Disk)
	assert.True(t, snap.Check.Load)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[gc]
interval = 300
max_history = 3600

[rate_limit]
count = 500

[check]
disk = 0
load = false
`)

	s, err := Load(path)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, int64(300), snap.GC.Interval)
	assert.Equal(t, int64(3600), snap.GC.MaxHistory)
	assert.Equal(t, uint(500), snap.RateLimit.Count)
	// Untouched sections keep their defaults
	assert.Equal(t, int64(60), snap.RateLimit.Interval)
	assert.Equal(t, uint(0), snap.Check.Disk)
	assert.False(t, snap.Check.Load)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero gc interval", "[gc]\ninterval = 0\n"},
		{"negative history", "[gc]\nmax_history = -1\n"},
		{"disk over 100", "[check]\ndisk = 150\n"},
		{"zero arena", "[arena]\nmax_queries = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[gc\ninterval ="))
	assert.Error(t, err)
}

func TestReloadSwapsSnapshot(t *testing.T) {
	path := writeConfig(t, "[gc]\ninterval = 300\n")
	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(300), s.Snapshot().GC.Interval)

	require.NoError(t, os.WriteFile(path, []byte("[gc]\ninterval = 900\n"), 0644))
	require.NoError(t, s.Reload())
	assert.Equal(t, int64(900), s.Snapshot().GC.Interval)
}

func TestReloadKeepsPreviousSnapshotOnError(t *testing.T) {
	path := writeConfig(t, "[gc]\ninterval = 300\n")
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[gc]\ninterval = 0\n"), 0644))
	assert.Error(t, s.Reload())
	assert.Equal(t, int64(300), s.Snapshot().GC.Interval, "bad reload must not clobber the running config")
}

func TestStaticStoreReloadIsNoOp(t *testing.T) {
	snap := Default()
	snap.GC.Interval = 42
	s := NewStatic(snap)

	require.NoError(t, s.Reload())
	assert.Equal(t, int64(42), s.Snapshot().GC.Interval)
}
