package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/config"
	"github.com/Norgate-AV/evelens/internal/logger"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(config.DatabaseEnv, "")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.ScanInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.FocusInterval)
	assert.True(t, cfg.StickyFocus)
	assert.NotEmpty(t, cfg.Database)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(config.DatabaseEnv, "")
	dir := t.TempDir()

	path := writeConfig(t, dir, `
database: C:\data\lens.db
scan_interval: 5s
focus_interval: 250ms
sticky_focus: false
log:
  verbose: true
  max_backups: 7
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, `C:\data\lens.db`, cfg.Database)
	assert.Equal(t, 5*time.Second, cfg.ScanInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.FocusInterval)
	assert.False(t, cfg.StickyFocus)
	assert.True(t, cfg.Log.Verbose)
	assert.Equal(t, 7, cfg.Log.MaxBackups)
	assert.Equal(t, logger.DefaultLogMaxSize, cfg.Log.MaxSize)

	opts := cfg.LoggerOptions(false)
	assert.True(t, opts.Verbose)
	assert.Equal(t, 7, opts.MaxBackups)
}

func TestLoad_EnvOverridesDatabase(t *testing.T) {
	t.Setenv(config.DatabaseEnv, "/tmp/override.db")

	path := writeConfig(t, t.TempDir(), "database: /tmp/file.db\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(config.DatabaseEnv, "")

	tests := map[string]string{
		"negative interval": "scan_interval: -1s\n",
		"zero focus":        "focus_interval: 0s\n",
		"bad yaml":          "scan_interval: [\n",
		"bad duration":      "scan_interval: soon\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, t.TempDir(), body))
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv(config.DatabaseEnv, "")
	path := filepath.Join(t.TempDir(), "nested", config.FileName)

	cfg := config.Default()
	cfg.ScanInterval = 3 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, loaded.ScanInterval)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	t.Setenv(config.DatabaseEnv, "")
	dir := t.TempDir()
	path := writeConfig(t, dir, "scan_interval: 2s\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, path, logger.NewNoOpLogger(), func(c *config.Config) { reloaded <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "scan_interval: 9s\n")

	select {
	case c := <-reloaded:
		assert.Equal(t, 9*time.Second, c.ScanInterval)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	assert.NoError(t, <-done)
}
