// ABOUTME: Cross-process run lock for a single integration
// ABOUTME: Uses a flock file per integration so the CLI, TUI, MCP server and daemon never overlap
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrSyncInProgress is returned by RunSync when another process holds the
// integration's run lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrRescheduleFailed marks a run whose next trigger could not be written.
var ErrRescheduleFailed = errors.New("failed to reschedule")

func (e *Env) lockIntegration(integrationID string) (*flock.Flock, error) {
	if err := os.MkdirAll(e.Config.LockDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(e.Config.LockDir, filepath.Base(integrationID)+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("integration %s: %w", integrationID, ErrSyncInProgress)
	}
	return lock, nil
}
