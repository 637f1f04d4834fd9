// ABOUTME: Database operations for the sync_runs audit table
// ABOUTME: Records start, outcome, and counters of every orchestrator run
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/peoplesync/models"
)

// SyncRunsRepository records orchestrator runs.
type SyncRunsRepository struct {
	db *sql.DB
}

// NewSyncRunsRepository creates a new sync runs repository.
func NewSyncRunsRepository(db *sql.DB) *SyncRunsRepository {
	return &SyncRunsRepository{db: db}
}

// StartRun inserts a run row. The caller assigns run.ID.
func (r *SyncRunsRepository) StartRun(ctx context.Context, run *models.SyncRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, integration_id, started_at)
		VALUES (?, ?, ?)
	`, run.ID, run.IntegrationID, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to start sync run: %w", err)
	}

	return nil
}

// FinishRun stores the outcome and counters of a run.
func (r *SyncRunsRepository) FinishRun(ctx context.Context, run *models.SyncRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now

	var errMsg sql.NullString
	if run.Error != "" {
		errMsg = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET finished_at = ?, outcome = ?, pages = ?, upserted = ?, deleted = ?, skipped = ?, resets = ?, error = ?
		WHERE id = ?
	`, run.FinishedAt, run.Outcome, run.Pages, run.Upserted, run.Deleted, run.Skipped, run.Resets, errMsg, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	return nil
}

// RecentRuns returns the latest runs of an integration, newest first.
func (r *SyncRunsRepository) RecentRuns(ctx context.Context, integrationID string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, integration_id, started_at, finished_at, outcome, pages, upserted, deleted, skipped, resets, error
		FROM sync_runs
		WHERE integration_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, integrationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var finishedAt sql.NullTime
		var errMsg sql.NullString

		err := rows.Scan(
			&run.ID,
			&run.IntegrationID,
			&run.StartedAt,
			&finishedAt,
			&run.Outcome,
			&run.Pages,
			&run.Upserted,
			&run.Deleted,
			&run.Skipped,
			&run.Resets,
			&errMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
