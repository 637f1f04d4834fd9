// ABOUTME: Scheduled sync trigger rows
// ABOUTME: Arms, lists, and claims the next run of each integration
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/peoplesync/models"
)

// TriggersRepository stores one pending trigger per integration.
type TriggersRepository struct {
	db *sql.DB
}

// NewTriggersRepository creates a new triggers repository.
func NewTriggersRepository(db *sql.DB) *TriggersRepository {
	return &TriggersRepository{db: db}
}

// Arm replaces the integration's trigger with a new one. Deleting and
// recreating the row is what keeps at most one run armed per integration.
func (r *TriggersRepository) Arm(ctx context.Context, trigger *models.Trigger) error {
	if trigger.ID == "" {
		trigger.ID = uuid.New().String()
	}
	trigger.RunAt = trigger.RunAt.UTC().Truncate(time.Second)
	trigger.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_triggers WHERE integration_id = ?`, trigger.IntegrationID); err != nil {
		return fmt.Errorf("failed to delete previous trigger: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_triggers (id, integration_id, user_id, run_at, payload, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, trigger.ID, trigger.IntegrationID, trigger.UserID, trigger.RunAt, trigger.Payload, trigger.Attempts, trigger.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trigger: %w", err)
	}

	return tx.Commit()
}

// Get returns the pending trigger for an integration, or nil when none is armed.
func (r *TriggersRepository) Get(ctx context.Context, integrationID string) (*models.Trigger, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, integration_id, user_id, run_at, payload, attempts, created_at
		FROM sync_triggers WHERE integration_id = ?
	`, integrationID)

	trigger, err := scanTrigger(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trigger: %w", err)
	}
	return trigger, nil
}

// ClaimDue removes and returns every trigger due at or before now.
// A claimed trigger no longer exists, so a second claimer cannot run it too.
func (r *TriggersRepository) ClaimDue(ctx context.Context, now time.Time) ([]models.Trigger, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, integration_id, user_id, run_at, payload, attempts, created_at
		FROM sync_triggers
		WHERE run_at <= ?
		ORDER BY run_at
	`, now.UTC().Truncate(time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to query due triggers: %w", err)
	}

	var due []models.Trigger
	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		due = append(due, *trigger)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}
	_ = rows.Close()

	for _, trigger := range due {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_triggers WHERE id = ?`, trigger.ID); err != nil {
			return nil, fmt.Errorf("failed to claim trigger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trigger claim: %w", err)
	}

	return due, nil
}

// Disarm removes any pending trigger for an integration.
func (r *TriggersRepository) Disarm(ctx context.Context, integrationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_triggers WHERE integration_id = ?`, integrationID)
	if err != nil {
		return fmt.Errorf("failed to disarm trigger: %w", err)
	}
	return nil
}

func scanTrigger(row rowScanner) (*models.Trigger, error) {
	var trigger models.Trigger
	err := row.Scan(
		&trigger.ID,
		&trigger.IntegrationID,
		&trigger.UserID,
		&trigger.RunAt,
		&trigger.Payload,
		&trigger.Attempts,
		&trigger.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}
