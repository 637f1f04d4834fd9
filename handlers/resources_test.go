// ABOUTME: Tests for MCP resource and prompt handlers
// ABOUTME: Checks URI routing, JSON payloads, and prompt text
package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/peoplesync/db"
	"github.com/harperreed/peoplesync/models"
)

func readResource(t *testing.T, h *ResourceHandlers, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
}

func TestReadContactResources(t *testing.T) {
	database := setupHandlerTestDB(t)
	contacts := db.NewContactsRepository(database)
	seedContacts(t, contacts, "u1",
		directoryContact("c1", "Ada Lovelace", "Analytical", "ada@example.com"),
		directoryContact("c2", "Grace Hopper", "Navy", ""),
	)
	h := NewResourceHandlers(contacts, db.NewIntegrationsRepository(database))

	result, err := readResource(t, h, "peoplesync://contacts/u1")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var list []models.Contact
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &list))
	assert.Len(t, list, 2)

	result, err = readResource(t, h, "peoplesync://contacts/u1/c2")
	require.NoError(t, err)

	var one models.Contact
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &one))
	assert.Equal(t, "Grace Hopper", one.Name)

	_, err = readResource(t, h, "peoplesync://contacts/u2/c2")
	assert.ErrorIs(t, err, db.ErrContactNotFound)
}

func TestReadEmptyContactListIsArray(t *testing.T) {
	database := setupHandlerTestDB(t)
	h := NewResourceHandlers(db.NewContactsRepository(database), db.NewIntegrationsRepository(database))

	result, err := readResource(t, h, "peoplesync://contacts/nobody")
	require.NoError(t, err)
	assert.Equal(t, "[]", result.Contents[0].Text)
}

func TestReadIntegrationsResource(t *testing.T) {
	database := setupHandlerTestDB(t)
	integrations := db.NewIntegrationsRepository(database)
	require.NoError(t, integrations.CreateIntegration(context.Background(), &models.Integration{ID: "i1", UserID: "u1", Enabled: true}))
	h := NewResourceHandlers(db.NewContactsRepository(database), integrations)

	result, err := readResource(t, h, "peoplesync://integrations")
	require.NoError(t, err)

	var list []models.Integration
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "i1", list[0].ID)
}

func TestReadResourceRejectsBadURIs(t *testing.T) {
	database := setupHandlerTestDB(t)
	h := NewResourceHandlers(db.NewContactsRepository(database), db.NewIntegrationsRepository(database))

	for _, uri := range []string{"crm://contacts", "peoplesync://deals", "peoplesync://contacts", "peoplesync://contacts/u1/c1/extra"} {
		_, err := readResource(t, h, uri)
		assert.Error(t, err, uri)
	}
}

func TestContactSummaryPrompt(t *testing.T) {
	database := setupHandlerTestDB(t)
	contacts := db.NewContactsRepository(database)
	c := directoryContact("c1", "Ada Lovelace", "Analytical", "ada@example.com")
	c.JobTitle = "Engineer"
	c.Notes = "Wrote the first program"
	seedContacts(t, contacts, "u1", c)

	h := NewPromptHandlers(contacts, db.NewIntegrationsRepository(database))
	result, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "contact-summary",
		Arguments: map[string]string{"user_id": "u1", "contact_id": "c1"},
	}})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)

	text := result.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Name: Ada Lovelace")
	assert.Contains(t, text, "Title: Engineer")
	assert.Contains(t, text, "Email: ada@example.com")
	assert.Contains(t, text, "Bio: Wrote the first program")

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "contact-summary",
		Arguments: map[string]string{"user_id": "u1"},
	}})
	assert.Error(t, err)
}

func TestSyncHealthPrompt(t *testing.T) {
	ctx := context.Background()
	database := setupHandlerTestDB(t)
	integrations := db.NewIntegrationsRepository(database)
	require.NoError(t, integrations.CreateIntegration(ctx, &models.Integration{ID: "ok", UserID: "u1", Enabled: true}))
	require.NoError(t, integrations.CreateIntegration(ctx, &models.Integration{
		ID: "bad", UserID: "u2", Status: models.SyncStatusError, ErrorMessage: models.StringPtr("invalid_grant"),
	}))

	h := NewPromptHandlers(db.NewContactsRepository(database), integrations)
	result, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "sync-health"}})
	require.NoError(t, err)

	assert.Equal(t, "Sync health for 2 integration(s), 1 failing", result.Description)
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, `error="invalid_grant"`)
	assert.Contains(t, text, "last_sync=never")

	_, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "deal-analysis"}})
	assert.Error(t, err)
}
