// ABOUTME: Integration copy between cursor stores
// ABOUTME: Preserves page and sync tokens so syncs resume where they left off
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harperreed/peoplesync/models"
)

type source interface {
	ListIntegrations(ctx context.Context) ([]models.Integration, error)
}

type destination interface {
	CreateIntegration(ctx context.Context, integ *models.Integration) error
	GetIntegration(ctx context.Context, id string) (*models.Integration, error)
	UpdateIntegration(ctx context.Context, id string, update models.IntegrationUpdate) error
}

type options struct {
	DryRun bool
	Force  bool
}

type stats struct {
	Created     int
	Overwritten int
	Skipped     int
}

func copyIntegrations(ctx context.Context, logger *log.Logger, src source, dst destination, opts options) (stats, error) {
	var st stats

	integrations, err := src.ListIntegrations(ctx)
	if err != nil {
		return st, fmt.Errorf("failed to list source integrations: %w", err)
	}

	for i := range integrations {
		integ := integrations[i]
		logger := logger.With("integration", integ.ID, "user", integ.UserID, "cursor", integ.CursorState())

		_, err := dst.GetIntegration(ctx, integ.ID)
		switch {
		case err == nil && !opts.Force:
			logger.Warn("already exists in destination, skipping (use -force to overwrite)")
			st.Skipped++

		case err == nil:
			if !opts.DryRun {
				if err := dst.UpdateIntegration(ctx, integ.ID, fullUpdate(&integ)); err != nil {
					return st, fmt.Errorf("failed to overwrite integration %s: %w", integ.ID, err)
				}
			}
			logger.Info("overwritten")
			st.Overwritten++

		case errors.Is(err, models.ErrIntegrationNotFound):
			if !opts.DryRun {
				if err := dst.CreateIntegration(ctx, &integ); err != nil {
					return st, fmt.Errorf("failed to create integration %s: %w", integ.ID, err)
				}
			}
			logger.Info("created")
			st.Created++

		default:
			return st, fmt.Errorf("failed to check integration %s: %w", integ.ID, err)
		}
	}

	return st, nil
}

// fullUpdate sets every mutable field of integ.
func fullUpdate(integ *models.Integration) models.IntegrationUpdate {
	return models.IntegrationUpdate{
		PageToken:    models.Some(integ.PageToken),
		SyncToken:    models.Some(integ.SyncToken),
		SyncEnabled:  models.Some(integ.Enabled),
		Status:       models.Some(integ.Status),
		ErrorMessage: models.Some(integ.ErrorMessage),
		LastSyncTime: models.Some(integ.LastSyncTime),
		Generation:   models.Some(integ.Generation),
	}
}
