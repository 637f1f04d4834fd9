// ABOUTME: Shared fixtures for CLI command tests
// ABOUTME: Builds an Env over in-memory SQLite with a scripted directory and static credentials
package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/peoplesync/db"
	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

// stubDirectory returns its pages in order, then fails.
type stubDirectory struct {
	pages    []*sync.Page
	err      error
	requests []sync.PageRequest
}

func (d *stubDirectory) ListPage(_ context.Context, _ string, req sync.PageRequest) (*sync.Page, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	if len(d.pages) == 0 {
		return nil, errors.New("unexpected ListPage call")
	}
	page := d.pages[0]
	d.pages = d.pages[1:]
	return page, nil
}

type stubCredentials struct {
	err error
}

func (c stubCredentials) AccessToken(context.Context, string, string, models.ClientType) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "access-token", nil
}

func newTestEnv(t *testing.T, dir *stubDirectory) (*Env, *bytes.Buffer) {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(database))
	t.Cleanup(func() { _ = database.Close() })

	cfg := sync.DefaultConfig()
	cfg.TokenDir = t.TempDir()
	cfg.LockDir = t.TempDir()

	env := NewEnv(cfg, nil, database, db.NewIntegrationsRepository(database))
	env.Directory = dir
	env.Credentials = stubCredentials{}

	out := &bytes.Buffer{}
	env.Out = out
	return env, out
}

func createIntegration(t *testing.T, env *Env, id, userID string) {
	t.Helper()
	require.NoError(t, env.Integrations.CreateIntegration(context.Background(), &models.Integration{
		ID: id, UserID: userID, Enabled: true,
	}))
}

func namedRecord(id, name string) sync.RawRecord {
	return sync.RawRecord{
		ResourceName: "people/" + id,
		Names:        []sync.RawName{{Primary: true, DisplayName: name}},
		Emails:       []sync.RawValue{{Primary: true, Value: id + "@example.com"}},
	}
}

func fullPage(syncToken string, records ...sync.RawRecord) *sync.Page {
	return &sync.Page{Records: records, NextSyncToken: syncToken}
}
