// ABOUTME: Tests for database schema creation and migrations
// ABOUTME: Uses in-memory SQLite for fast isolated tests
package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestInitSchema(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	for _, table := range []string{"contacts", "integrations", "sync_triggers", "sync_runs"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	indexes := []string{
		"idx_contacts_user_name",
		"idx_integrations_user",
		"idx_sync_triggers_run_at",
		"idx_sync_runs_integration",
	}
	for _, idx := range indexes {
		var indexName string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&indexName)
		if err != nil {
			t.Errorf("Index %s not found: %v", idx, err)
		}
	}
}

func TestInitSchemaIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := InitSchema(db); err != nil {
		t.Fatalf("first InitSchema failed: %v", err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}

func TestInitSchemaAddsGenerationColumns(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory db: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	// Tables as created before contacts carried a generation.
	_, err = db.Exec(`
		CREATE TABLE contacts (user_id TEXT NOT NULL, id TEXT NOT NULL, name TEXT NOT NULL DEFAULT '', PRIMARY KEY (user_id, id));
		CREATE TABLE integrations (id TEXT PRIMARY KEY, user_id TEXT NOT NULL);
		INSERT INTO contacts (user_id, id) VALUES ('u1', 'c1');
	`)
	if err != nil {
		t.Fatalf("failed to create old tables: %v", err)
	}

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	for _, table := range []string{"contacts", "integrations"} {
		ok, err := hasColumn(db, table, "generation")
		if err != nil {
			t.Fatalf("hasColumn(%s) failed: %v", table, err)
		}
		if !ok {
			t.Errorf("expected %s.generation to be added", table)
		}
	}

	var generation string
	if err := db.QueryRow(`SELECT generation FROM contacts WHERE id = 'c1'`).Scan(&generation); err != nil {
		t.Fatalf("failed to read generation: %v", err)
	}
	if generation != "" {
		t.Errorf("expected empty generation for existing row, got %q", generation)
	}
}
