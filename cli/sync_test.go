// ABOUTME: Tests for the sync, status and contacts CLI commands
// ABOUTME: Drives commands end to end over in-memory storage and checks their output
package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/peoplesync/db"
	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

func TestSyncRunCommand(t *testing.T) {
	dir := &stubDirectory{pages: []*sync.Page{
		{Records: []sync.RawRecord{namedRecord("1", "Ada")}, NextPageToken: "p2"},
		fullPage("sync-1", namedRecord("2", "Grace"), sync.RawRecord{ResourceName: "people/3"}),
	}}
	env, out := newTestEnv(t, dir)
	createIntegration(t, env, "i1", "u1")

	err := SyncRunCommand(env, []string{"--integration", "i1", "--user", "u1", "--initial"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Syncing Google directory (initial)")
	assert.Contains(t, out.String(), "2 page(s) fetched")
	assert.Contains(t, out.String(), "2 contact(s) upserted, 0 deleted")
	assert.Contains(t, out.String(), "1 record(s) skipped")
	assert.Contains(t, out.String(), "✓ Sync complete")

	count, err := env.Contacts.CountContacts(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// expiredTokenDirectory rejects any sync token and serves pages for full listings.
type expiredTokenDirectory struct {
	stubDirectory
}

func (d *expiredTokenDirectory) ListPage(ctx context.Context, token string, req sync.PageRequest) (*sync.Page, error) {
	if req.SyncToken != "" {
		d.requests = append(d.requests, req)
		return nil, sync.ErrCursorInvalid
	}
	return d.stubDirectory.ListPage(ctx, token, req)
}

func TestSyncRunAfterExpiredTokenRemovesVanishedContacts(t *testing.T) {
	ctx := context.Background()
	dir := &expiredTokenDirectory{stubDirectory{pages: []*sync.Page{
		fullPage("sync-2", namedRecord("1", "Ada"), namedRecord("2", "Grace")),
	}}}
	env, out := newTestEnv(t, &dir.stubDirectory)
	env.Directory = dir
	createIntegration(t, env, "i1", "u1")
	require.NoError(t, env.Integrations.UpdateIntegration(ctx, "i1", models.IntegrationUpdate{
		SyncToken: models.Some(models.StringPtr("expired")),
	}))
	_, err := env.Contacts.UpsertAll(ctx, "u1", []models.Contact{
		{ID: "1", Name: "Ada (old)"},
		{ID: "9", Name: "Left the company"},
	})
	require.NoError(t, err)

	require.NoError(t, SyncRunCommand(env, []string{"--integration", "i1", "--user", "u1"}))
	assert.Contains(t, out.String(), "1 full resync(s)")

	contacts, err := env.Contacts.ListContacts(ctx, "u1", "", 10)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Ada", contacts[0].Name)
	assert.Equal(t, "Grace", contacts[1].Name)

	_, err = env.Contacts.GetContact(ctx, "u1", "9")
	assert.ErrorIs(t, err, db.ErrContactNotFound)
}

func TestSyncRunCommandFromScheduledPayload(t *testing.T) {
	dir := &stubDirectory{pages: []*sync.Page{fullPage("sync-2")}}
	env, _ := newTestEnv(t, dir)
	createIntegration(t, env, "i1", "u1")
	require.NoError(t, env.Integrations.UpdateIntegration(context.Background(), "i1", models.IntegrationUpdate{
		SyncToken: models.Some(models.StringPtr("sync-1")),
	}))

	payload := `{"scheduled_time":"2026-01-01T00:00:00Z","payload":"{\"calendarIntegrationId\":\"i1\",\"userId\":\"u1\"}"}`
	require.NoError(t, SyncRunCommand(env, []string{"--payload", payload}))

	require.Len(t, dir.requests, 1)
	assert.Equal(t, "sync-1", dir.requests[0].SyncToken)
}

func TestSyncRunCommandRequiresFields(t *testing.T) {
	env, _ := newTestEnv(t, &stubDirectory{})

	err := SyncRunCommand(env, []string{"--user", "u1"})
	var inputErr *sync.InputError
	require.ErrorAs(t, err, &inputErr)

	err = SyncRunCommand(env, []string{"--payload", "{not json"})
	require.ErrorAs(t, err, &inputErr)
}

func TestSyncRunCommandTransientFailure(t *testing.T) {
	dir := &stubDirectory{err: &sync.TransientError{Op: "list connections", Err: errors.New("503")}}
	env, out := newTestEnv(t, dir)
	createIntegration(t, env, "i1", "u1")

	err := SyncRunCommand(env, []string{"--integration", "i1", "--user", "u1"})
	require.Error(t, err)
	assert.True(t, sync.IsTransient(err))
	assert.Contains(t, out.String(), "retry from the last saved page")

	trigger, err := env.Triggers.Get(context.Background(), "i1")
	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, 1, trigger.Attempts)
}

func TestSyncRunCommandHaltedIntegration(t *testing.T) {
	env, out := newTestEnv(t, &stubDirectory{})
	createIntegration(t, env, "i1", "u1")
	require.NoError(t, env.Integrations.UpdateIntegration(context.Background(), "i1", models.IntegrationUpdate{
		SyncEnabled: models.Some(false),
	}))

	err := SyncRunCommand(env, []string{"--integration", "i1", "--user", "u1"})
	require.Error(t, err)
	assert.True(t, sync.IsConfiguration(err))
	assert.Contains(t, out.String(), "peoplesync connect")
}

func TestSyncStatusCommand(t *testing.T) {
	ctx := context.Background()
	env, out := newTestEnv(t, &stubDirectory{})

	require.NoError(t, SyncStatusCommand(env, nil))
	assert.Contains(t, out.String(), "No integrations")

	out.Reset()
	createIntegration(t, env, "integration-one", "u1")
	require.NoError(t, env.Integrations.UpdateIntegration(ctx, "integration-one", models.IntegrationUpdate{
		PageToken: models.Some(models.StringPtr("p2")),
	}))
	require.NoError(t, sync.NewTriggerRescheduler(env.Triggers).Reschedule(ctx, sync.RescheduleRequest{
		IntegrationID: "integration-one", UserID: "u1", Delay: time.Hour,
	}))

	require.NoError(t, SyncStatusCommand(env, nil))
	assert.Contains(t, out.String(), "integrat")
	assert.NotContains(t, out.String(), "integration-one")
	assert.Contains(t, out.String(), models.CursorMidPage)
	assert.Contains(t, out.String(), "never")
	assert.Contains(t, out.String(), "Total: 1 integration(s)")
}

func TestContactsListCommand(t *testing.T) {
	dir := &stubDirectory{pages: []*sync.Page{fullPage("sync-1", namedRecord("1", "Ada Lovelace"), namedRecord("2", "Grace Hopper"))}}
	env, out := newTestEnv(t, dir)
	createIntegration(t, env, "i1", "u1")
	_, err := env.RunSync(context.Background(), sync.RunRequest{IntegrationID: "i1", UserID: "u1"}, 0)
	require.NoError(t, err)

	require.NoError(t, ContactsListCommand(env, []string{"--user", "u1", "--query", "grace"}))
	assert.Contains(t, out.String(), "Grace Hopper")
	assert.Contains(t, out.String(), "2@example.com")
	assert.NotContains(t, out.String(), "Ada Lovelace")
	assert.Contains(t, out.String(), "Total: 1 contact(s)")

	out.Reset()
	require.NoError(t, ContactsListCommand(env, []string{"--user", "nobody"}))
	assert.Contains(t, out.String(), "No contacts found")

	assert.Error(t, ContactsListCommand(env, nil))
}

func TestRegisterIntegrationCreatesAndReenables(t *testing.T) {
	ctx := context.Background()
	env, _ := newTestEnv(t, &stubDirectory{})

	integ, err := registerIntegration(ctx, env, "u1", models.ClientTypeDesktop)
	require.NoError(t, err)
	assert.True(t, integ.Enabled)

	trigger, err := env.Triggers.Get(ctx, integ.ID)
	require.NoError(t, err)
	require.NotNil(t, trigger)
	req, err := sync.ParseTrigger([]byte(trigger.Payload))
	require.NoError(t, err)
	assert.True(t, req.IsInitialSync)

	require.NoError(t, env.Integrations.UpdateIntegration(ctx, integ.ID, models.IntegrationUpdate{
		SyncEnabled:  models.Some(false),
		Status:       models.Some(models.SyncStatusError),
		ErrorMessage: models.Some(models.StringPtr("invalid_grant")),
	}))

	again, err := registerIntegration(ctx, env, "u1", models.ClientTypeDesktop)
	require.NoError(t, err)
	assert.Equal(t, integ.ID, again.ID)

	stored, err := env.Integrations.GetIntegration(ctx, integ.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
	assert.Equal(t, models.SyncStatusIdle, stored.Status)
	assert.Nil(t, stored.ErrorMessage)

	all, err := env.Integrations.ListIntegrations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConnectCommandValidatesFlags(t *testing.T) {
	env, _ := newTestEnv(t, &stubDirectory{})

	assert.ErrorContains(t, ConnectCommand(env, nil), "--user is required")
	assert.ErrorContains(t, ConnectCommand(env, []string{"--user", "u1", "--client-type", "fax"}), "unknown client type")

	env.Config.GoogleClientID = ""
	env.Config.GoogleClientSecret = ""
	assert.ErrorContains(t, ConnectCommand(env, []string{"--user", "u1"}), "credentials not configured")
}
