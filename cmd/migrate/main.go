// ABOUTME: Cursor store migration tool
// ABOUTME: Copies integration cursor state between the SQLite and Badger backends
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/harperreed/peoplesync/db"
	"github.com/harperreed/peoplesync/kvstore"
	"github.com/harperreed/peoplesync/sync"
)

func main() {
	_ = godotenv.Load()

	cfg, err := sync.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	dbPath := flag.String("db", cfg.DBPath, "Path to the SQLite database")
	badgerDir := flag.String("badger", cfg.BadgerDir, "Path to the Badger cursor store")
	to := flag.String("to", sync.CursorBackendBadger, "Destination backend (sqlite or badger)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Back up the destination before migrating")
	force := flag.Bool("force", false, "Overwrite integrations that already exist in the destination")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "migrate"})

	opts := options{DryRun: *dryRun, Force: *force}
	if err := run(context.Background(), logger, *dbPath, *badgerDir, *to, *backup, opts); err != nil {
		logger.Fatal("migration failed", "err", err)
	}
	logger.Info("migration completed successfully")
}

func run(ctx context.Context, logger *log.Logger, dbPath, badgerDir, to string, backup bool, opts options) error {
	if to != sync.CursorBackendSQLite && to != sync.CursorBackendBadger {
		return fmt.Errorf("unknown destination %q (want %s or %s)", to, sync.CursorBackendSQLite, sync.CursorBackendBadger)
	}

	if backup && !opts.DryRun && to == sync.CursorBackendSQLite {
		if err := backupFile(logger, dbPath); err != nil {
			return err
		}
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	store, err := kvstore.Open(badgerDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sqlite := db.NewIntegrationsRepository(database)

	if to == sync.CursorBackendSQLite {
		stats, err := copyIntegrations(ctx, logger, store, sqlite, opts)
		logStats(logger, stats, opts)
		return err
	}

	backupPath := ""
	if backup && !opts.DryRun {
		backupPath, err = backupStore(logger, store, badgerDir)
		if err != nil {
			return err
		}
	}
	stats, err := copyIntegrations(ctx, logger, sqlite, store, opts)
	logStats(logger, stats, opts)
	if err != nil && backupPath != "" {
		if restoreErr := restoreStore(logger, store, backupPath); restoreErr != nil {
			return errors.Join(err, restoreErr)
		}
	}
	return err
}

func backupFile(logger *log.Logger, path string) error {
	input, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	logger.Info("backup created", "path", backupPath)
	return nil
}

func backupStore(logger *log.Logger, store *kvstore.Store, dir string) (string, error) {
	backupPath := fmt.Sprintf("%s.backup.%s", dir, time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := store.Backup(f); err != nil {
		return "", err
	}
	logger.Info("backup created", "path", backupPath)
	return backupPath, nil
}

// restoreStore rolls the store back to the snapshot at backupPath.
func restoreStore(logger *log.Logger, store *kvstore.Store, backupPath string) error {
	f, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := store.Reset(); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	if err := store.Restore(f); err != nil {
		return err
	}
	logger.Warn("copy failed, store restored from backup", "path", backupPath)
	return nil
}

func logStats(logger *log.Logger, stats stats, opts options) {
	prefix := ""
	if opts.DryRun {
		prefix = "[DRY RUN] "
	}
	logger.Info(prefix+"integrations copied", "created", stats.Created, "overwritten", stats.Overwritten, "skipped", stats.Skipped)
}
