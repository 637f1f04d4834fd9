// ABOUTME: MCP server subcommand
// ABOUTME: Exposes sync and contact lookup tools over stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/peoplesync/handlers"
)

const serverVersion = "0.1.0"

// NewMCPServer registers the sync tools on a new server.
func NewMCPServer(env *Env) *mcp.Server {
	syncHandlers := handlers.NewSyncHandlers(env, env.Integrations, env.Triggers)
	contactHandlers := handlers.NewContactHandlers(env.Contacts)
	resourceHandlers := handlers.NewResourceHandlers(env.Contacts, env.Integrations)
	promptHandlers := handlers.NewPromptHandlers(env.Contacts, env.Integrations)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "peoplesync",
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_contacts",
		Description: "Sync a user's Google directory contacts now (incremental unless initial is set)",
	}, syncHandlers.SyncContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_status",
		Description: "List directory integrations with their sync status and next scheduled run",
	}, syncHandlers.SyncStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search a user's synced contacts by name, company, or email",
	}, contactHandlers.FindContacts)

	server.AddResource(&mcp.Resource{
		URI:         "peoplesync://integrations",
		Name:        "integrations",
		Description: "All directory integrations with their cursor state",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "peoplesync://contacts/{user_id}",
		Name:        "contacts",
		Description: "A user's synced directory contacts",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "peoplesync://contacts/{user_id}/{contact_id}",
		Name:        "contact",
		Description: "One synced directory contact",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "contact-summary",
		Description: "Summarize a synced directory contact",
		Arguments: []*mcp.PromptArgument{
			{Name: "user_id", Description: "Owning user ID", Required: true},
			{Name: "contact_id", Description: "Contact ID", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "sync-health",
		Description: "Diagnose failing or disabled directory integrations",
	}, promptHandlers.GetPrompt)

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(env *Env) error {
	env.Logger.Info("starting peoplesync MCP server")
	return NewMCPServer(env).Run(context.Background(), &mcp.StdioTransport{})
}
