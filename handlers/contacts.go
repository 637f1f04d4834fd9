// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements find_contacts over synced directory contacts
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/peoplesync/models"
)

type ContactFinder interface {
	ListContacts(ctx context.Context, userID, query string, limit int) ([]models.Contact, error)
}

type ContactHandlers struct {
	contacts ContactFinder
}

func NewContactHandlers(contacts ContactFinder) *ContactHandlers {
	return &ContactHandlers{contacts: contacts}
}

type FindContactsInput struct {
	UserID string `json:"user_id" jsonschema:"Owning user ID (required)"`
	Query  string `json:"query,omitempty" jsonschema:"Search by name, company, or email"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
}

type ContactOutput struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Nickname   string                `json:"nickname,omitempty"`
	Email      string                `json:"email,omitempty"`
	Phone      string                `json:"phone,omitempty"`
	Company    string                `json:"company,omitempty"`
	JobTitle   string                `json:"job_title,omitempty"`
	Department string                `json:"department,omitempty"`
	Notes      string                `json:"notes,omitempty"`
	ImageURL   string                `json:"image_url,omitempty"`
	Emails     []models.ContactField `json:"emails,omitempty"`
	Phones     []models.ContactField `json:"phones,omitempty"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ContactHandlers) FindContacts(ctx context.Context, _ *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	if input.UserID == "" {
		return nil, FindContactsOutput{}, fmt.Errorf("user_id is required")
	}

	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	contacts, err := h.contacts.ListContacts(ctx, input.UserID, input.Query, limit)
	if err != nil {
		return nil, FindContactsOutput{}, fmt.Errorf("failed to find contacts: %w", err)
	}

	result := make([]ContactOutput, len(contacts))
	for i := range contacts {
		result[i] = contactToOutput(&contacts[i])
	}

	return nil, FindContactsOutput{Contacts: result}, nil
}

func contactToOutput(c *models.Contact) ContactOutput {
	return ContactOutput{
		ID:         c.ID,
		Name:       c.Name,
		Nickname:   c.Nickname,
		Email:      c.PrimaryEmail(),
		Phone:      c.PrimaryPhone(),
		Company:    c.Company,
		JobTitle:   c.JobTitle,
		Department: c.Department,
		Notes:      c.Notes,
		ImageURL:   c.ImageURL,
		Emails:     c.Emails,
		Phones:     c.PhoneNumbers,
	}
}
