package migrations

import (
	"database/sql"
	"fmt"
	"strings"
)

// getAllMigrations returns all available migrations in order
func getAllMigrations() []Migration {
	return []Migration{
		{
			ID:          "000_initial_schema",
			Description: "Create notes, tags and note_tags tables",
			Up:          migration000Up,
			Down:        migration000Down,
		},
		{
			ID:          "001_ensure_flag_columns",
			Description: "Add is_trashed and is_favorite to databases created before trash and favorites",
			Up:          migration001Up,
		},
		{
			ID:          "002_add_search_indexes",
			Description: "Index trashed/updated_at ordering and tag lookups",
			Up:          migration002Up,
			Down:        migration002Down,
		},
		// Add new migrations here in chronological order
	}
}

// migration000Up creates the initial database schema
func migration000Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '無題のメモ',
			content TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			is_trashed INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			is_favorite INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tags table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS note_tags (
			note_id INTEGER NOT NULL,
			tag_id INTEGER NOT NULL,
			FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (note_id, tag_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create note_tags table: %w", err)
	}

	return nil
}

// migration000Down drops the initial schema
func migration000Down(tx *sql.Tx) error {
	// Reverse order of creation because of the foreign keys
	tables := []string{"note_tags", "tags", "notes"}

	for _, table := range tables {
		_, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
		if err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// flagColumns lists columns that older memo.db files may be missing.
var flagColumns = []struct {
	table  string
	column string
	def    string
}{
	{"notes", "is_trashed", "INTEGER NOT NULL DEFAULT 0"},
	{"tags", "is_favorite", "INTEGER NOT NULL DEFAULT 0"},
}

// migration001Up adds flag columns that CREATE TABLE IF NOT EXISTS skipped
// on pre-existing tables.
func migration001Up(tx *sql.Tx) error {
	for _, fc := range flagColumns {
		existing, err := tableColumns(tx, fc.table)
		if err != nil {
			return err
		}
		if existing[fc.column] {
			continue
		}

		alterSQL := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", fc.table, fc.column, fc.def)
		if _, err := tx.Exec(alterSQL); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", fc.table, fc.column, err)
		}
	}
	return nil
}

// tableColumns returns the set of column names of table.
func tableColumns(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to get table info for %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, pk bool
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns[strings.ToLower(name)] = true
	}
	return columns, rows.Err()
}

var searchIndexes = []struct {
	name string
	def  string
}{
	{"idx_notes_trashed_updated", "notes(is_trashed, updated_at DESC)"},
	{"idx_note_tags_tag_id", "note_tags(tag_id)"},
}

// migration002Up creates indexes for the listing and tag filters
func migration002Up(tx *sql.Tx) error {
	for _, idx := range searchIndexes {
		if _, err := tx.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s", idx.name, idx.def)); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func migration002Down(tx *sql.Tx) error {
	for _, idx := range searchIndexes {
		if _, err := tx.Exec("DROP INDEX IF EXISTS " + idx.name); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", idx.name, err)
		}
	}
	return nil
}
