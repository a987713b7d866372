package tests

import (
	"path/filepath"
	"testing"
)

// Sqlite3URI returns the path of a fresh sqlite database inside the test temporary directory.
func Sqlite3URI(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "autopay.db") + "?_busy_timeout=5000"
}
