// ABOUTME: Directory sync CLI commands
// ABOUTME: Runs a single sync and reports integration status
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harperreed/peoplesync/sync"
)

// SyncRunCommand runs one sync for an integration, then re-arms it.
func SyncRunCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	integrationID := fs.String("integration", "", "Integration ID")
	userID := fs.String("user", "", "User ID")
	initial := fs.Bool("initial", false, "Full enumeration instead of incremental")
	payload := fs.String("payload", "", "Trigger payload JSON (scheduled or direct shape)")
	_ = fs.Parse(args)

	req := sync.RunRequest{IntegrationID: *integrationID, UserID: *userID, IsInitialSync: *initial}
	if *payload != "" {
		parsed, err := sync.ParseTrigger([]byte(*payload))
		if err != nil {
			return err
		}
		req = *parsed
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	attempts := 0
	if trigger, err := env.Triggers.Get(ctx, req.IntegrationID); err == nil && trigger != nil {
		attempts = trigger.Attempts
	}

	mode := "incremental"
	if req.IsInitialSync {
		mode = "initial"
	}
	fmt.Fprintf(env.Out, "Syncing Google directory (%s)...\n", mode)
	fmt.Fprintln(env.Out, "  → Fetching contacts...")

	res, err := env.RunSync(ctx, req, attempts)
	if res != nil {
		printResult(env, res)
	}
	if err != nil {
		switch {
		case sync.IsConfiguration(err):
			fmt.Fprintln(env.Out, "\nSync is halted. Run 'peoplesync connect' to re-authorize.")
		case sync.IsTransient(err):
			fmt.Fprintln(env.Out, "\nSync will retry from the last saved page.")
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	return nil
}

func printResult(env *Env, res *sync.Result) {
	fmt.Fprintf(env.Out, "  ✓ %d page(s) fetched\n", res.Pages)
	fmt.Fprintf(env.Out, "  ✓ %d contact(s) upserted, %d deleted\n", res.Upserted, res.Deleted)
	if res.Skipped > 0 {
		fmt.Fprintf(env.Out, "  ! %d record(s) skipped without a name\n", res.Skipped)
	}
	if res.Resets > 0 {
		fmt.Fprintf(env.Out, "  ! cursor expired, %d full resync(s)\n", res.Resets)
	}
	if res.Success {
		fmt.Fprintln(env.Out, "\n✓ Sync complete")
	}
}

// SyncStatusCommand lists integrations with their cursor and next run.
func SyncStatusCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()

	integrations, err := env.Integrations.ListIntegrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list integrations: %w", err)
	}

	if len(integrations) == 0 {
		fmt.Fprintln(env.Out, "No integrations. Run 'peoplesync connect --user <id>' first.")
		return nil
	}

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSER\tENABLED\tSTATUS\tLAST SYNC\tCURSOR\tNEXT RUN")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t------\t---------\t------\t--------")

	for _, integ := range integrations {
		nextRun := "-"
		trigger, err := env.Triggers.Get(ctx, integ.ID)
		if err != nil {
			return fmt.Errorf("failed to get trigger: %w", err)
		}
		if trigger != nil {
			nextRun = trigger.RunAt.Local().Format("2006-01-02 15:04")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			shortID(integ.ID), integ.UserID, integ.Enabled, integ.Status,
			formatLastSync(integ.LastSyncTime), integ.CursorState(), nextRun)
	}
	_ = w.Flush()

	fmt.Fprintf(env.Out, "\nTotal: %d integration(s)\n", len(integrations))
	return nil
}

func formatLastSync(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
