package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/logger"
)

func TestGetLogPath_CustomDir(t *testing.T) {
	dir := t.TempDir()

	path := logger.GetLogPath(logger.LoggerOptions{LogDir: dir})
	assert.Equal(t, filepath.Join(dir, "evelens.log"), path)
}

func TestGetLogPath_LocalAppData(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", tmpDir)

	path := logger.GetLogPath(logger.LoggerOptions{})
	assert.Equal(t, filepath.Join(tmpDir, "evelens", "evelens.log"), path)
}

func TestGetLogPath_FallbackToUserProfile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("USERPROFILE", tmpDir)

	path := logger.GetLogPath(logger.LoggerOptions{})
	assert.Equal(t, filepath.Join(tmpDir, "AppData", "Local", "evelens", "evelens.log"), path)
}

func TestNewLogger_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	log, err := logger.NewLogger(logger.LoggerOptions{LogDir: dir, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer log.Close()

	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "evelens.log"), log.GetLogPath())
}

func TestLogger_ConsoleHidesDebugUnlessVerbose(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "quiet", verbose: false, wantDebug: false},
		{name: "verbose", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var console bytes.Buffer

			log, err := logger.NewLogger(logger.LoggerOptions{
				LogDir:  t.TempDir(),
				Verbose: tt.verbose,
				Console: &console,
			})
			require.NoError(t, err)
			defer log.Close()

			log.Debug("scan pass", "tracked", 2)
			log.Warn("hotkey conflict", "hotkey", "Ctrl+F1")

			out := console.String()
			assert.Contains(t, out, "WARNING: hotkey conflict hotkey=Ctrl+F1")
			if tt.wantDebug {
				assert.Contains(t, out, "[DEBUG] scan pass tracked=2")
			} else {
				assert.NotContains(t, out, "scan pass")
			}
		})
	}
}

func TestLogger_FileReceivesDebug(t *testing.T) {
	dir := t.TempDir()

	log, err := logger.NewLogger(logger.LoggerOptions{LogDir: dir, Console: &bytes.Buffer{}})
	require.NoError(t, err)

	log.Debug("surface created", "pid", 42)
	log.Close()

	data, err := os.ReadFile(filepath.Join(dir, "evelens.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "surface created")
	assert.Contains(t, string(data), "pid=42")
}

func TestPrintLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evelens.log"), []byte("line 1\nline 2\n"), 0o644))

	var out bytes.Buffer
	err := logger.PrintLogFile(&out, logger.LoggerOptions{LogDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\n", out.String())
}

func TestPrintLogFile_Missing(t *testing.T) {
	err := logger.PrintLogFile(&bytes.Buffer{}, logger.LoggerOptions{LogDir: t.TempDir()})
	assert.Error(t, err)
}

func TestNoOpLogger(t *testing.T) {
	log := logger.NewNoOpLogger()

	assert.NotPanics(t, func() {
		log.Debug("x")
		log.Info("x")
		log.Warn("x")
		log.Error("x")
		log.Close()
	})
	assert.Empty(t, log.GetLogPath())
}
