package migrations

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/streed/memo/internal/logger"
)

// Migration represents a single database migration
type Migration struct {
	ID          string                 // Unique identifier (e.g., "002_add_search_indexes")
	Description string                 // Human-readable description
	Up          func(tx *sql.Tx) error // Migration function
	Down        func(tx *sql.Tx) error // Rollback function (optional)
}

// MigrationRunner handles database migrations
type MigrationRunner struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrationRunner creates a runner for the built-in migrations
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return newRunner(db, getAllMigrations())
}

func newRunner(db *sql.DB, migrations []Migration) *MigrationRunner {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &MigrationRunner{db: db, migrations: sorted}
}

// createMigrationsTable creates the migrations tracking table if it doesn't exist
func (mr *MigrationRunner) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := mr.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns a set of migration IDs that have been applied
func (mr *MigrationRunner) getAppliedMigrations() (map[string]bool, error) {
	rows, err := mr.db.Query("SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration id: %w", err)
		}
		applied[id] = true
	}

	return applied, rows.Err()
}

func (mr *MigrationRunner) recordMigration(tx *sql.Tx, migration Migration) error {
	_, err := tx.Exec(
		"INSERT INTO schema_migrations (id, description, applied_at) VALUES (?, ?, ?)",
		migration.ID, migration.Description, time.Now().UTC(),
	)
	return err
}

// RunMigrations runs all pending migrations
func (mr *MigrationRunner) RunMigrations() error {
	_, err := mr.Run()
	return err
}

// Run applies every pending migration, each in its own transaction, and
// returns how many were applied.
func (mr *MigrationRunner) Run() (int, error) {
	logger.Debug("Starting database migrations...")

	if err := mr.createMigrationsTable(); err != nil {
		return 0, err
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return 0, err
	}

	pendingCount := 0
	for _, migration := range mr.migrations {
		if applied[migration.ID] {
			logger.Debug("Migration %s already applied, skipping", migration.ID)
			continue
		}

		logger.Info("Running migration: %s - %s", migration.ID, migration.Description)

		tx, err := mr.db.Begin()
		if err != nil {
			return pendingCount, fmt.Errorf("failed to start transaction for migration %s: %w", migration.ID, err)
		}

		if err := migration.Up(tx); err != nil {
			rollback(tx)
			return pendingCount, fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		if err := mr.recordMigration(tx, migration); err != nil {
			rollback(tx)
			return pendingCount, fmt.Errorf("failed to record migration %s: %w", migration.ID, err)
		}

		if err := tx.Commit(); err != nil {
			return pendingCount, fmt.Errorf("failed to commit migration %s: %w", migration.ID, err)
		}

		pendingCount++
		logger.Debug("Migration %s completed successfully", migration.ID)
	}

	if pendingCount == 0 {
		logger.Debug("No pending migrations found - database is up to date")
	} else {
		logger.Info("Successfully applied %d migrations", pendingCount)
	}

	return pendingCount, nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		logger.Error("Failed to rollback transaction: %v", err)
	}
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Applied     bool   `json:"applied" yaml:"applied"`
	Reversible  bool   `json:"reversible" yaml:"reversible"`
}

// GetMigrationStatus returns the status of all migrations
func (mr *MigrationRunner) GetMigrationStatus() ([]MigrationStatus, error) {
	if err := mr.createMigrationsTable(); err != nil {
		return nil, err
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, 0, len(mr.migrations))
	for _, migration := range mr.migrations {
		status = append(status, MigrationStatus{
			ID:          migration.ID,
			Description: migration.Description,
			Applied:     applied[migration.ID],
			Reversible:  migration.Down != nil,
		})
	}

	return status, nil
}

// RollbackMigration rolls back a specific migration (if supported)
func (mr *MigrationRunner) RollbackMigration(migrationID string) error {
	var target *Migration
	for i := range mr.migrations {
		if mr.migrations[i].ID == migrationID {
			target = &mr.migrations[i]
			break
		}
	}

	if target == nil {
		return fmt.Errorf("migration %s not found", migrationID)
	}

	if target.Down == nil {
		return fmt.Errorf("migration %s does not support rollback", migrationID)
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return err
	}

	if !applied[migrationID] {
		return fmt.Errorf("migration %s is not applied", migrationID)
	}

	logger.Info("Rolling back migration: %s - %s", target.ID, target.Description)

	tx, err := mr.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction for rollback %s: %w", migrationID, err)
	}

	if err := target.Down(tx); err != nil {
		rollback(tx)
		return fmt.Errorf("rollback %s failed: %w", migrationID, err)
	}

	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE id = ?", migrationID); err != nil {
		rollback(tx)
		return fmt.Errorf("failed to remove migration record %s: %w", migrationID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback %s: %w", migrationID, err)
	}

	logger.Info("Migration %s rolled back successfully", migrationID)
	return nil
}
