package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/store"
)

// CreateTempDir creates a temporary directory for testing
func CreateTempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "evelens-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// OpenStore opens a migrated SQLite store in a temporary directory. It is closed when
// the test ends.
func OpenStore(t *testing.T) *store.SQLite {
	t.Helper()
	return OpenStoreAt(t, filepath.Join(CreateTempDir(t), "evelens.db"))
}

// OpenStoreAt opens a migrated SQLite store at path.
func OpenStoreAt(t *testing.T, path string) *store.SQLite {
	t.Helper()

	s, err := store.Open(context.Background(), path, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })
	return s
}
