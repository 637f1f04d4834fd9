// ABOUTME: MCP prompt handlers for reusable directory workflows
// ABOUTME: Provides contact-summary and sync-health prompt templates
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	contacts     ContactReader
	integrations IntegrationLister
}

func NewPromptHandlers(contacts ContactReader, integrations IntegrationLister) *PromptHandlers {
	return &PromptHandlers{contacts: contacts, integrations: integrations}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "contact-summary":
		return h.getContactSummaryPrompt(ctx, request.Params.Arguments)
	case "sync-health":
		return h.getSyncHealthPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getContactSummaryPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	userID := args["user_id"]
	contactID := args["contact_id"]
	if userID == "" || contactID == "" {
		return nil, fmt.Errorf("user_id and contact_id are required")
	}

	contact, err := h.contacts.GetContact(ctx, userID, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("Please provide a short summary of this directory contact:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", contact.Name))
	if contact.Nickname != "" {
		promptText.WriteString(fmt.Sprintf("Nickname: %s\n", contact.Nickname))
	}
	if contact.JobTitle != "" {
		promptText.WriteString(fmt.Sprintf("Title: %s\n", contact.JobTitle))
	}
	if contact.Company != "" {
		promptText.WriteString(fmt.Sprintf("Company: %s\n", contact.Company))
	}
	if contact.Department != "" {
		promptText.WriteString(fmt.Sprintf("Department: %s\n", contact.Department))
	}
	for _, email := range contact.Emails {
		promptText.WriteString(fmt.Sprintf("Email: %s\n", email.Value))
	}
	for _, phone := range contact.PhoneNumbers {
		promptText.WriteString(fmt.Sprintf("Phone: %s\n", phone.Value))
	}
	if contact.Notes != "" {
		promptText.WriteString(fmt.Sprintf("\nBio: %s\n", contact.Notes))
	}

	promptText.WriteString("\nPlease describe their role and the best way to reach them.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Summary for contact: %s", contact.Name),
		Messages:    []*mcp.PromptMessage{userMessage(promptText.String())},
	}, nil
}

func (h *PromptHandlers) getSyncHealthPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	integrations, err := h.integrations.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch integrations: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("Review the health of these directory sync integrations:\n\n")

	failing := 0
	for _, integ := range integrations {
		last := "never"
		if integ.LastSyncTime != nil {
			last = integ.LastSyncTime.Format(time.RFC3339)
		}
		promptText.WriteString(fmt.Sprintf("- %s (user %s): enabled=%t status=%s last_sync=%s",
			integ.ID, integ.UserID, integ.Enabled, integ.Status, last))
		if integ.ErrorMessage != nil {
			failing++
			promptText.WriteString(fmt.Sprintf(" error=%q", *integ.ErrorMessage))
		}
		promptText.WriteString("\n")
	}
	if len(integrations) == 0 {
		promptText.WriteString("(no integrations configured)\n")
	}

	promptText.WriteString("\nFor each failing or disabled integration, explain the likely cause and whether the user needs to reconnect.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Sync health for %d integration(s), %d failing", len(integrations), failing),
		Messages:    []*mcp.PromptMessage{userMessage(promptText.String())},
	}, nil
}

func userMessage(text string) *mcp.PromptMessage {
	return &mcp.PromptMessage{
		Role:    "user",
		Content: &mcp.TextContent{Text: text},
	}
}
