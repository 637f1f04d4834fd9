// ABOUTME: Shared helpers for handler tests
// ABOUTME: Opens an in-memory SQLite database and seeds contacts and integrations
package handlers

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/peoplesync/db"
	"github.com/harperreed/peoplesync/models"
)

func setupHandlerTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	database.SetMaxOpenConns(1)

	if err := db.InitSchema(database); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	return database
}

func seedContacts(t *testing.T, contacts *db.ContactsRepository, userID string, seed ...models.Contact) {
	t.Helper()

	if _, err := contacts.UpsertAll(context.Background(), userID, seed); err != nil {
		t.Fatalf("Failed to seed contacts: %v", err)
	}
}

func directoryContact(id, name, company, email string) models.Contact {
	c := models.Contact{
		ID:          id,
		Name:        name,
		Company:     company,
		ContactType: models.ContactTypeGoogle,
	}
	if email != "" {
		c.Emails = []models.ContactField{{Primary: true, Type: "work", Value: email}}
	}
	return c
}
