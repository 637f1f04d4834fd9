// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for contacts, integrations, triggers, and sync runs
package db

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	user_id TEXT NOT NULL,
	id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	name_prefix TEXT NOT NULL DEFAULT '',
	name_suffix TEXT NOT NULL DEFAULT '',
	nickname TEXT NOT NULL DEFAULT '',
	phonetic_first_name TEXT NOT NULL DEFAULT '',
	phonetic_middle_name TEXT NOT NULL DEFAULT '',
	phonetic_last_name TEXT NOT NULL DEFAULT '',
	phonetic_full_name TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	job_title TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	image_available INTEGER NOT NULL DEFAULT 0,
	image_url TEXT NOT NULL DEFAULT '',
	contact_type TEXT NOT NULL DEFAULT '',
	emails TEXT NOT NULL DEFAULT '[]',
	phone_numbers TEXT NOT NULL DEFAULT '[]',
	im_addresses TEXT NOT NULL DEFAULT '[]',
	link_addresses TEXT NOT NULL DEFAULT '[]',
	generation TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_contacts_user_name ON contacts(user_id, name);

CREATE TABLE IF NOT EXISTS integrations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	page_token TEXT,
	sync_token TEXT,
	sync_enabled INTEGER NOT NULL DEFAULT 1,
	client_type TEXT NOT NULL DEFAULT 'desktop',
	status TEXT NOT NULL DEFAULT 'idle' CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	last_sync_time DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	generation TEXT
);

CREATE INDEX IF NOT EXISTS idx_integrations_user ON integrations(user_id);

CREATE TABLE IF NOT EXISTS sync_triggers (
	id TEXT PRIMARY KEY,
	integration_id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	run_at DATETIME NOT NULL,
	payload TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sync_triggers_run_at ON sync_triggers(run_at);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	integration_id TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	outcome TEXT NOT NULL DEFAULT '',
	pages INTEGER NOT NULL DEFAULT 0,
	upserted INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	resets INTEGER NOT NULL DEFAULT 0,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_integration ON sync_runs(integration_id, started_at DESC);
`

// addedColumns are added to databases created before the column existed.
var addedColumns = []struct {
	table, column, definition string
}{
	{"contacts", "generation", "TEXT NOT NULL DEFAULT ''"},
	{"integrations", "generation", "TEXT"},
}

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	for _, c := range addedColumns {
		exists, err := hasColumn(db, c.table, c.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.definition)); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, fmt.Errorf("failed to scan %s columns: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
