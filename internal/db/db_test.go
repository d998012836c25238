package db

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drafts.db")

	conn, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='drafts'").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("drafts table count = %d, want 1", count)
	}

	// Re-running the schema must be harmless.
	if err := InitSchema(conn); err != nil {
		t.Errorf("InitSchema not idempotent: %v", err)
	}
}

func TestGetDBReturnsSameConnection(t *testing.T) {
	t.Cleanup(func() { Close() })
	path := filepath.Join(t.TempDir(), "drafts.db")

	first, err := GetDB(path)
	if err != nil {
		t.Fatalf("GetDB failed: %v", err)
	}
	second, err := GetDB(path)
	if err != nil {
		t.Fatalf("GetDB failed: %v", err)
	}
	if first != second {
		t.Error("GetDB opened a second connection")
	}

	if _, err := GetDB(filepath.Join(t.TempDir(), "other.db")); err == nil {
		t.Error("expected error for a different path")
	}
}
