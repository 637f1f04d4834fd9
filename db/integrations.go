// ABOUTME: Integration cursor store backed by SQLite
// ABOUTME: Reads and partially updates page/sync tokens, the enabled gate, and sync status
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/peoplesync/models"
)

var (
	ErrIntegrationNotFound = models.ErrIntegrationNotFound
	ErrInvalidIntegration  = errors.New("invalid integration")
)

// IntegrationsRepository stores per-integration sync cursors.
type IntegrationsRepository struct {
	db *sql.DB
}

// NewIntegrationsRepository creates a new integrations repository.
func NewIntegrationsRepository(db *sql.DB) *IntegrationsRepository {
	return &IntegrationsRepository{db: db}
}

const integrationColumns = `id, user_id, provider, page_token, sync_token, sync_enabled, client_type,
	status, error_message, last_sync_time, created_at, updated_at, generation`

// CreateIntegration inserts a new integration with empty cursor state.
func (r *IntegrationsRepository) CreateIntegration(ctx context.Context, integ *models.Integration) error {
	if integ == nil || integ.UserID == "" {
		return ErrInvalidIntegration
	}

	if integ.ID == "" {
		integ.ID = uuid.New().String()
	}
	if integ.Provider == "" {
		integ.Provider = models.ProviderGooglePeople
	}
	if integ.ClientType == "" {
		integ.ClientType = models.ClientTypeDesktop
	}
	if integ.Status == "" {
		integ.Status = models.SyncStatusIdle
	}

	now := time.Now().UTC()
	integ.CreatedAt = now
	integ.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO integrations (`+integrationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, integ.ID, integ.UserID, integ.Provider, integ.PageToken, integ.SyncToken, integ.Enabled,
		string(integ.ClientType), integ.Status, integ.ErrorMessage, integ.LastSyncTime,
		integ.CreatedAt, integ.UpdatedAt, integ.Generation)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}

	return nil
}

// GetIntegration retrieves an integration by ID.
func (r *IntegrationsRepository) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE id = ?`, id)

	integ, err := scanIntegration(row)
	if err == sql.ErrNoRows {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return integ, nil
}

// UpdateIntegration writes only the fields set in update.
func (r *IntegrationsRepository) UpdateIntegration(ctx context.Context, id string, update models.IntegrationUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if update.PageToken.Set {
		sets = append(sets, "page_token = ?")
		args = append(args, update.PageToken.Value)
	}
	if update.SyncToken.Set {
		sets = append(sets, "sync_token = ?")
		args = append(args, update.SyncToken.Value)
	}
	if update.SyncEnabled.Set {
		sets = append(sets, "sync_enabled = ?")
		args = append(args, update.SyncEnabled.Value)
	}
	if update.Status.Set {
		sets = append(sets, "status = ?")
		args = append(args, update.Status.Value)
	}
	if update.ErrorMessage.Set {
		sets = append(sets, "error_message = ?")
		args = append(args, update.ErrorMessage.Value)
	}
	if update.LastSyncTime.Set {
		sets = append(sets, "last_sync_time = ?")
		args = append(args, update.LastSyncTime.Value)
	}
	if update.Generation.Set {
		sets = append(sets, "generation = ?")
		args = append(args, update.Generation.Value)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := r.db.ExecContext(ctx,
		`UPDATE integrations SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrIntegrationNotFound
	}

	return nil
}

// ListIntegrations returns all integrations ordered by creation time.
func (r *IntegrationsRepository) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+integrationColumns+` FROM integrations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var integrations []models.Integration
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		integrations = append(integrations, *integ)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating integrations: %w", err)
	}

	return integrations, nil
}

func scanIntegration(row rowScanner) (*models.Integration, error) {
	var integ models.Integration
	var pageToken, syncToken, errorMessage, generation sql.NullString
	var lastSyncTime sql.NullTime
	var clientType string

	err := row.Scan(
		&integ.ID,
		&integ.UserID,
		&integ.Provider,
		&pageToken,
		&syncToken,
		&integ.Enabled,
		&clientType,
		&integ.Status,
		&errorMessage,
		&lastSyncTime,
		&integ.CreatedAt,
		&integ.UpdatedAt,
		&generation,
	)
	if err != nil {
		return nil, err
	}

	integ.ClientType = models.ClientType(clientType)
	if pageToken.Valid {
		integ.PageToken = &pageToken.String
	}
	if syncToken.Valid {
		integ.SyncToken = &syncToken.String
	}
	if errorMessage.Valid {
		integ.ErrorMessage = &errorMessage.String
	}
	if lastSyncTime.Valid {
		integ.LastSyncTime = &lastSyncTime.Time
	}
	if generation.Valid {
		integ.Generation = &generation.String
	}

	return &integ, nil
}
