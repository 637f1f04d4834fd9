// ABOUTME: Entry point for the peoplesync CLI, daemon and MCP server
// ABOUTME: Loads configuration, builds the logger and routes to subcommands
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/harperreed/peoplesync/cli"
	"github.com/harperreed/peoplesync/sync"
	"github.com/harperreed/peoplesync/tui"
)

const version = "0.1.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := sync.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: "+cfg.DBPath+")")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")
	flag.Usage = printUsage

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("peoplesync version %s\n", version)
		os.Exit(0)
	}

	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "peoplesync",
		Level:           level,
	})

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	env, err := cli.OpenEnv(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", "err", err)
	}
	defer func() { _ = env.Close() }()

	if *initOnly {
		logger.Info("database initialized", "path", cfg.DBPath)
		return
	}

	if err := run(env, args[0], args[1:]); err != nil {
		_ = env.Close()
		logger.Fatal(err)
	}
}

func run(env *cli.Env, command string, args []string) error {
	switch command {
	case "connect":
		return cli.ConnectCommand(env, args)

	case "sync":
		if len(args) == 0 {
			return fmt.Errorf("sync requires a subcommand (run, status)")
		}
		switch args[0] {
		case "run":
			return cli.SyncRunCommand(env, args[1:])
		case "status":
			return cli.SyncStatusCommand(env, args[1:])
		default:
			return fmt.Errorf("unknown sync command: %s", args[0])
		}

	case "contacts":
		if len(args) == 0 || args[0] != "list" {
			return fmt.Errorf("contacts requires the list subcommand")
		}
		return cli.ContactsListCommand(env, args[1:])

	case "daemon":
		return cli.DaemonCommand(env, args)

	case "mcp":
		return cli.MCPCommand(env)

	case "tui":
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("tui requires an interactive terminal")
		}
		model := tui.NewModel(env.Integrations, env.Contacts, env)
		_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Printf(`peoplesync v%s - Google directory contact sync

USAGE:
  peoplesync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/peoplesync/peoplesync.db)
  --log-level <level>    Log level: debug, info, warn, error (default: info)
  --init                 Initialize database and exit

COMMANDS:
  connect                Authorize a user's Google directory and arm the initial sync
    --user <id>            User ID (required)
    --client-type <type>   OAuth client type: desktop, web, ios, android (default: desktop)

  sync run               Run one sync now and re-arm the next one
    --integration <id>     Integration ID
    --user <id>            Owning user ID
    --initial              Re-enumerate the whole directory
    --payload <json>       Trigger payload instead of the flags above

  sync status            List integrations with cursor state and next run

  contacts list          List a user's synced contacts
    --user <id>            User ID (required)
    --query <text>         Search by name, company or email
    --limit <n>            Max results (default: 50)

  daemon                 Run armed syncs as they come due
    --interval <dur>       Time between successful syncs (default: 15m, minimum 5m)
    --poll <dur>           How often to look for due syncs (default: 30s)
    --http-addr <addr>     Serve status page and Prometheus metrics (e.g. :9090)

  mcp                    Start the MCP server on stdio
  tui                    Interactive integration dashboard

ENVIRONMENT:
  PEOPLESYNC_GOOGLE_CLIENT_ID / GOOGLE_CLIENT_ID
  PEOPLESYNC_GOOGLE_CLIENT_SECRET / GOOGLE_CLIENT_SECRET
  PEOPLESYNC_CURSOR_BACKEND    sqlite or badger (default: sqlite)
  PEOPLESYNC_SYNC_INTERVAL, PEOPLESYNC_BACKOFF_INITIAL, PEOPLESYNC_BACKOFF_MAX
  PEOPLESYNC_MAX_CURSOR_RESETS, PEOPLESYNC_PEOPLE_ENDPOINT
  PEOPLESYNC_TOKEN_DIR, PEOPLESYNC_LOCK_DIR

EXAMPLES:
  peoplesync connect --user alice
  peoplesync sync run --integration <id> --user alice --initial
  peoplesync daemon --http-addr :9090

`, version)
}
