package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroidd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
watch_dir: /data/incoming
archive_dir: /data/backup
interactive: true
journal: /data/journal.db
probe:
  timeout: 10s
  interval: 250ms
  stable_samples: 3
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/incoming", cfg.WatchDir)
	assert.Equal(t, "/data/backup", cfg.ArchiveDir)
	assert.True(t, cfg.Interactive)
	assert.Equal(t, "/data/journal.db", cfg.Journal)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.Probe.Timeout))
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Probe.Interval))
	assert.Equal(t, 3, cfg.Probe.StableSamples)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().OutputDir, cfg.OutputDir)
}

func TestLoadConfig_MissingNamedFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_BadDurationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroidd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe:\n  timeout: banana\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestLoadConfig_BadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroidd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
