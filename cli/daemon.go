// ABOUTME: Sync daemon mode running armed triggers on a ticker
// ABOUTME: Serves the status page with metrics and shuts down gracefully on SIGINT/SIGTERM
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
	"github.com/harperreed/peoplesync/web"
)

const minSyncInterval = 5 * time.Minute

// Daemon claims due triggers and runs their syncs one at a time.
type Daemon struct {
	env  *Env
	poll time.Duration
	now  func() time.Time
}

// NewDaemon creates a daemon that checks for due triggers every poll.
func NewDaemon(env *Env, poll time.Duration) *Daemon {
	return &Daemon{env: env, poll: poll, now: time.Now}
}

// Tick runs every trigger due now and returns how many ran. Claiming
// deletes the trigger row, so a run is never started twice; RunSync arms
// the next one. Triggers that cannot run this tick are put back.
func (d *Daemon) Tick(ctx context.Context) (int, error) {
	triggers, err := d.env.Triggers.ClaimDue(ctx, d.now())
	if err != nil {
		return 0, fmt.Errorf("failed to claim triggers: %w", err)
	}

	ran := 0
	for i := range triggers {
		trigger := &triggers[i]
		if ctx.Err() != nil {
			d.rearm(trigger)
			continue
		}

		req, err := sync.ParseTrigger([]byte(trigger.Payload))
		if err != nil {
			d.env.Logger.Error("dropping malformed trigger", "trigger", trigger.ID, "integration", trigger.IntegrationID, "err", err)
			continue
		}

		res, err := d.env.RunSync(ctx, *req, trigger.Attempts)
		if errors.Is(err, ErrSyncInProgress) {
			d.env.Logger.Info("sync already running elsewhere", "integration", req.IntegrationID)
			d.rearm(trigger)
			continue
		}
		ran++
		if err != nil {
			d.env.Logger.Warn("sync failed", "integration", req.IntegrationID, "attempts", trigger.Attempts+1, "err", err)
			// A nil result means the run never reached AfterRun.
			var inputErr *sync.InputError
			if !errors.As(err, &inputErr) && (res == nil || errors.Is(err, ErrRescheduleFailed)) {
				d.rearm(trigger)
			}
			continue
		}
		d.env.Logger.Info("sync finished", "integration", req.IntegrationID, "upserted", res.Upserted, "deleted", res.Deleted)
	}

	return ran, nil
}

// rearm puts a claimed trigger back one poll from now, unless a run
// elsewhere has already armed the next one.
func (d *Daemon) rearm(trigger *models.Trigger) {
	ctx := context.Background()
	existing, err := d.env.Triggers.Get(ctx, trigger.IntegrationID)
	if err != nil {
		d.env.Logger.Error("failed to check trigger", "integration", trigger.IntegrationID, "err", err)
		return
	}
	if existing != nil {
		return
	}

	trigger.RunAt = d.now().Add(d.poll)
	if err := d.env.Triggers.Arm(ctx, trigger); err != nil {
		d.env.Logger.Error("failed to re-arm trigger", "integration", trigger.IntegrationID, "err", err)
	}
}

// Run ticks immediately and then every poll interval until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.Tick(ctx); err != nil {
		d.env.Logger.Error("tick failed", "err", err)
	}

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := d.Tick(ctx); err != nil {
				d.env.Logger.Error("tick failed", "err", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// DaemonCommand runs the daemon until interrupted.
func DaemonCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	interval := fs.Duration("interval", env.Config.SyncInterval, "Time between successful syncs (minimum 5m)")
	poll := fs.Duration("poll", 30*time.Second, "How often to check for due syncs")
	httpAddr := fs.String("http-addr", "", "Serve the status page and Prometheus metrics on this address (e.g. :9090)")
	_ = fs.Parse(args)

	if *interval < minSyncInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minSyncInterval, *interval)
	}
	if *poll <= 0 {
		return fmt.Errorf("poll must be positive, got %s", *poll)
	}
	env.Config.SyncInterval = *interval

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *httpAddr != "" {
		server := web.NewServer(env.Integrations, env.Triggers, env.Contacts, env.Registry, env.Logger).HTTPServer(*httpAddr)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				env.Logger.Error("status server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(env.Out, "  → Status on http://%s/ (metrics at /metrics)\n", *httpAddr)
	}

	fmt.Fprintf(env.Out, "Sync daemon started (interval %s, poll %s). Press Ctrl+C to stop.\n", *interval, *poll)

	err := NewDaemon(env, *poll).Run(ctx)

	fmt.Fprintln(env.Out, "\n✓ Daemon stopped")
	return err
}
