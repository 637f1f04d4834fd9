// ABOUTME: MCP resource handlers for exposing synced directory data
// ABOUTME: Provides read-only access to integrations and contacts via peoplesync:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/peoplesync/models"
)

const resourceScheme = "peoplesync://"

const resourceListLimit = 1000

// ContactReader reads a user's synced contacts.
type ContactReader interface {
	ContactFinder
	GetContact(ctx context.Context, userID, id string) (*models.Contact, error)
}

type ResourceHandlers struct {
	contacts     ContactReader
	integrations IntegrationLister
}

func NewResourceHandlers(contacts ContactReader, integrations IntegrationLister) *ResourceHandlers {
	return &ResourceHandlers{contacts: contacts, integrations: integrations}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")

	switch parts[0] {
	case "integrations":
		return h.readIntegrations(ctx, uri)

	case "contacts":
		switch len(parts) {
		case 2:
			return h.readContacts(ctx, uri, parts[1])
		case 3:
			return h.readContact(ctx, uri, parts[1], parts[2])
		default:
			return nil, fmt.Errorf("contacts resource needs a user ID: %s", uri)
		}

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func (h *ResourceHandlers) readIntegrations(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	integrations, err := h.integrations.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch integrations: %w", err)
	}
	return jsonResource(uri, integrations)
}

func (h *ResourceHandlers) readContacts(ctx context.Context, uri, userID string) (*mcp.ReadResourceResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	contacts, err := h.contacts.ListContacts(ctx, userID, "", resourceListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return jsonResource(uri, contacts)
}

func (h *ResourceHandlers) readContact(ctx context.Context, uri, userID, id string) (*mcp.ReadResourceResult, error) {
	contact, err := h.contacts.GetContact(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	return jsonResource(uri, contact)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
