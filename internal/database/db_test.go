package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/streed/memo/internal/config"
)

func setupTestDB(t *testing.T) (*DB, string) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	cfg := &config.Config{
		DatabasePath:  dbPath,
		DataDirectory: tempDir,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	return db, dbPath
}

func TestNew(t *testing.T) {
	db, dbPath := setupTestDB(t)
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	var version string
	err := db.conn.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		t.Errorf("Failed to query SQLite version: %v", err)
	}

	if version == "" {
		t.Error("SQLite version should not be empty")
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	for _, table := range []string{"notes", "tags", "note_tags", "schema_migrations"} {
		var tableExists int
		err := db.conn.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&tableExists)
		if err != nil {
			t.Fatalf("Failed to check for %s table: %v", table, err)
		}
		if tableExists != 1 {
			t.Errorf("%s table should exist", table)
		}
	}
}

func TestForeignKeysEnabledOnEveryConnection(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	db.conn.SetMaxOpenConns(4)
	for i := 0; i < 4; i++ {
		var fk int
		if err := db.conn.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("Failed to read pragma: %v", err)
		}
		if fk != 1 {
			t.Errorf("Expected foreign_keys=1, got %d", fk)
		}
	}

	_, err := db.conn.Exec("INSERT INTO note_tags (note_id, tag_id) VALUES (999, 999)")
	if err == nil {
		t.Error("Expected foreign key violation for dangling note_tags row")
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	db, dbPath := setupTestDB(t)
	if _, err := db.conn.Exec(
		"INSERT INTO notes (title, content, created_at, updated_at) VALUES ('keep', '', 'x', 'x')",
	); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	db.Close()

	reopened, err := New(&config.Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()

	var count int
	if err := reopened.conn.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		t.Fatalf("Failed to count notes: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 note after reopen, got %d", count)
	}
}

func TestClose(t *testing.T) {
	db, _ := setupTestDB(t)

	err := db.Close()
	if err != nil {
		t.Errorf("Failed to close database: %v", err)
	}

	var version string
	err = db.conn.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err == nil {
		t.Error("Expected error when querying closed database")
	}
}

func TestConn(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	conn := db.Conn()
	if conn == nil {
		t.Error("Conn() should return non-nil connection")
	}

	var test int
	err := conn.QueryRow("SELECT 1").Scan(&test)
	if err != nil {
		t.Errorf("Failed to use connection: %v", err)
	}

	if test != 1 {
		t.Errorf("Expected 1, got %d", test)
	}
}

func TestDatabaseWithEmptyConfig(t *testing.T) {
	tempDir := t.TempDir()

	cfg := &config.Config{
		DataDirectory: tempDir,
		// DatabasePath will be generated
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database with empty config: %v", err)
	}
	defer db.Close()

	expectedPath := filepath.Join(tempDir, "memo.db")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Error("Database file should be created at default location")
	}
}

func TestDatabaseCreatesDirectories(t *testing.T) {
	tempDir := t.TempDir()
	deepPath := filepath.Join(tempDir, "level1", "level2", "level3")
	dbPath := filepath.Join(deepPath, "test.db")

	cfg := &config.Config{
		DatabasePath:  dbPath,
		DataDirectory: tempDir,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database in nested directory: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(deepPath); os.IsNotExist(err) {
		t.Error("Nested directories should be created")
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}
