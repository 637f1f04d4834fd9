// ABOUTME: Sync MCP tool handlers
// ABOUTME: Implements sync_contacts and sync_status tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

// SyncRunner runs one sync and re-arms the integration.
type SyncRunner interface {
	RunSync(ctx context.Context, req sync.RunRequest, attempts int) (*sync.Result, error)
}

type IntegrationLister interface {
	ListIntegrations(ctx context.Context) ([]models.Integration, error)
}

type TriggerGetter interface {
	Get(ctx context.Context, integrationID string) (*models.Trigger, error)
}

type SyncHandlers struct {
	runner       SyncRunner
	integrations IntegrationLister
	triggers     TriggerGetter
}

func NewSyncHandlers(runner SyncRunner, integrations IntegrationLister, triggers TriggerGetter) *SyncHandlers {
	return &SyncHandlers{runner: runner, integrations: integrations, triggers: triggers}
}

type SyncContactsInput struct {
	IntegrationID string `json:"integration_id" jsonschema:"Integration ID (required)"`
	UserID        string `json:"user_id" jsonschema:"Owning user ID (required)"`
	Initial       bool   `json:"initial,omitempty" jsonschema:"Re-enumerate the whole directory instead of fetching changes"`
}

type SyncContactsOutput struct {
	RunID           string `json:"run_id"`
	Success         bool   `json:"success"`
	EnabledAfterRun bool   `json:"enabled_after_run"`
	Pages           int    `json:"pages"`
	Upserted        int64  `json:"upserted"`
	Deleted         int64  `json:"deleted"`
	Skipped         int    `json:"skipped"`
	Resets          int    `json:"resets"`
	Error           string `json:"error,omitempty"`
}

// SyncContacts runs a sync. Halted and transient runs are reported in the
// output; only malformed requests fail the tool call.
func (h *SyncHandlers) SyncContacts(ctx context.Context, _ *mcp.CallToolRequest, input SyncContactsInput) (*mcp.CallToolResult, SyncContactsOutput, error) {
	req := sync.RunRequest{IntegrationID: input.IntegrationID, UserID: input.UserID, IsInitialSync: input.Initial}
	if err := req.Validate(); err != nil {
		return nil, SyncContactsOutput{}, err
	}

	attempts := 0
	if trigger, err := h.triggers.Get(ctx, req.IntegrationID); err == nil && trigger != nil {
		attempts = trigger.Attempts
	}

	res, err := h.runner.RunSync(ctx, req, attempts)
	if res == nil {
		if err == nil {
			err = fmt.Errorf("sync returned no result")
		}
		return nil, SyncContactsOutput{}, err
	}

	out := SyncContactsOutput{
		RunID:           res.RunID,
		Success:         res.Success,
		EnabledAfterRun: res.EnabledAfterRun,
		Pages:           res.Pages,
		Upserted:        res.Upserted,
		Deleted:         res.Deleted,
		Skipped:         res.Skipped,
		Resets:          res.Resets,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return nil, out, nil
}

type SyncStatusInput struct{}

type IntegrationStatus struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	ClientType   string  `json:"client_type"`
	Enabled      bool    `json:"enabled"`
	Status       string  `json:"status"`
	Cursor       string  `json:"cursor"`
	LastSyncTime *string `json:"last_sync_time,omitempty"`
	NextRun      *string `json:"next_run,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

type SyncStatusOutput struct {
	Integrations []IntegrationStatus `json:"integrations"`
}

func (h *SyncHandlers) SyncStatus(ctx context.Context, _ *mcp.CallToolRequest, _ SyncStatusInput) (*mcp.CallToolResult, SyncStatusOutput, error) {
	integrations, err := h.integrations.ListIntegrations(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, fmt.Errorf("failed to list integrations: %w", err)
	}

	out := SyncStatusOutput{Integrations: make([]IntegrationStatus, 0, len(integrations))}
	for i := range integrations {
		integ := &integrations[i]
		status := IntegrationStatus{
			ID:           integ.ID,
			UserID:       integ.UserID,
			ClientType:   string(integ.ClientType),
			Enabled:      integ.Enabled,
			Status:       integ.Status,
			Cursor:       integ.CursorState(),
			ErrorMessage: integ.ErrorMessage,
		}
		if integ.LastSyncTime != nil {
			s := integ.LastSyncTime.Format(time.RFC3339)
			status.LastSyncTime = &s
		}

		trigger, err := h.triggers.Get(ctx, integ.ID)
		if err != nil {
			return nil, SyncStatusOutput{}, fmt.Errorf("failed to get trigger: %w", err)
		}
		if trigger != nil {
			s := trigger.RunAt.Format(time.RFC3339)
			status.NextRun = &s
		}

		out.Integrations = append(out.Integrations, status)
	}

	return nil, out, nil
}
