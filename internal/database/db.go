package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/streed/memo/internal/config"
	"github.com/streed/memo/internal/constants"
	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/migrations"
)

type DB struct {
	conn *sql.DB
	cfg  *config.Config
}

// DSN returns the sqlite3 connection string for path with foreign key
// enforcement and a busy timeout enabled on every pooled connection.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

func New(cfg *config.Config) (*DB, error) {
	dbPath := cfg.GetDatabasePath()

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, constants.DirMode); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	logger.Debug("Database path: %s", dbPath)

	conn, err := sql.Open("sqlite3", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

func (db *DB) initialize() error {
	var version string
	if err := db.conn.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Debug("SQLite version %s", version)

	var fk int
	if err := db.conn.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		return fmt.Errorf("failed to read foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		return fmt.Errorf("foreign key enforcement is not enabled")
	}

	return migrations.NewMigrationRunner(db.conn).RunMigrations()
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
