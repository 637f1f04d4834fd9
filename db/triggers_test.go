// ABOUTME: Tests for sync triggers and run audit rows
// ABOUTME: Verifies re-arming replaces the trigger and claiming removes due rows
package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/peoplesync/models"
)

func TestArmReplacesTrigger(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	repo := NewTriggersRepository(database)
	ctx := context.Background()

	first := &models.Trigger{IntegrationID: "i1", UserID: "u1", RunAt: time.Now().Add(time.Hour), Payload: "{}"}
	require.NoError(t, repo.Arm(ctx, first))

	second := &models.Trigger{IntegrationID: "i1", UserID: "u1", RunAt: time.Now().Add(2 * time.Hour), Payload: "{}", Attempts: 2}
	require.NoError(t, repo.Arm(ctx, second))

	got, err := repo.Get(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 2, got.Attempts)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM sync_triggers`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestClaimDue(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	repo := NewTriggersRepository(database)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Arm(ctx, &models.Trigger{IntegrationID: "due", UserID: "u1", RunAt: now.Add(-time.Minute), Payload: "{}"}))
	require.NoError(t, repo.Arm(ctx, &models.Trigger{IntegrationID: "later", UserID: "u2", RunAt: now.Add(time.Hour), Payload: "{}"}))

	claimed, err := repo.ClaimDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "due", claimed[0].IntegrationID)

	// Claimed rows are gone, so a second claim finds nothing
	claimed, err = repo.ClaimDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	later, err := repo.Get(ctx, "later")
	require.NoError(t, err)
	assert.NotNil(t, later)
}

func TestDisarm(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	repo := NewTriggersRepository(database)
	ctx := context.Background()

	require.NoError(t, repo.Arm(ctx, &models.Trigger{IntegrationID: "i1", UserID: "u1", RunAt: time.Now(), Payload: "{}"}))
	require.NoError(t, repo.Disarm(ctx, "i1"))

	got, err := repo.Get(ctx, "i1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSyncRunLifecycle(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	repo := NewSyncRunsRepository(database)
	ctx := context.Background()

	run := &models.SyncRun{ID: "run-1", IntegrationID: "i1"}
	require.NoError(t, repo.StartRun(ctx, run))

	run.Outcome = models.RunOutcomeSuccess
	run.Pages = 2
	run.Upserted = 5
	run.Deleted = 1
	run.Resets = 1
	require.NoError(t, repo.FinishRun(ctx, run))

	runs, err := repo.RecentRuns(ctx, "i1", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunOutcomeSuccess, runs[0].Outcome)
	assert.Equal(t, 2, runs[0].Pages)
	assert.Equal(t, int64(5), runs[0].Upserted)
	assert.Equal(t, 1, runs[0].Resets)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Empty(t, runs[0].Error)
}
