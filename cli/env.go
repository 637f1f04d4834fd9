// ABOUTME: Shared command environment wiring storage, credentials and the orchestrator
// ABOUTME: Every command, the MCP server and the TUI run syncs through Env.RunSync
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harperreed/peoplesync/db"
	"github.com/harperreed/peoplesync/kvstore"
	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

// IntegrationStore is a cursor store that can also create and list
// integrations. Both the SQLite and Badger stores satisfy it.
type IntegrationStore interface {
	sync.CursorStore
	CreateIntegration(ctx context.Context, integ *models.Integration) error
	ListIntegrations(ctx context.Context) ([]models.Integration, error)
}

// Env carries the collaborators commands need.
type Env struct {
	Config       *sync.Config
	Logger       *log.Logger
	DB           *sql.DB
	Integrations IntegrationStore
	Contacts     *db.ContactsRepository
	Triggers     *db.TriggersRepository
	Runs         *db.SyncRunsRepository
	Directory    sync.DirectoryClient
	Credentials  sync.CredentialProvider
	Registry     *prometheus.Registry
	Metrics      *sync.Metrics
	Out          io.Writer

	closers []func() error
}

// OpenEnv opens the database and the configured cursor backend.
func OpenEnv(cfg *sync.Config, logger *log.Logger) (*Env, error) {
	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var integrations IntegrationStore = db.NewIntegrationsRepository(database)
	closers := []func() error{database.Close}

	if cfg.CursorBackend == sync.CursorBackendBadger {
		store, err := kvstore.Open(cfg.BadgerDir)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		integrations = store
		closers = append(closers, store.Close)
	}

	env := NewEnv(cfg, logger, database, integrations)
	env.Directory = sync.NewPeopleDirectory(cfg.PeopleEndpoint)
	env.Credentials = sync.NewFileTokenProvider(sync.NewOAuthConfig(cfg), sync.NewTokenStore(cfg.TokenDir))
	env.closers = closers
	return env, nil
}

// NewEnv wires repositories over an open database. Directory and
// Credentials are left for the caller.
func NewEnv(cfg *sync.Config, logger *log.Logger, database *sql.DB, integrations IntegrationStore) *Env {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	registry := prometheus.NewRegistry()

	return &Env{
		Config:       cfg,
		Logger:       logger,
		DB:           database,
		Integrations: integrations,
		Contacts:     db.NewContactsRepository(database),
		Triggers:     db.NewTriggersRepository(database),
		Runs:         db.NewSyncRunsRepository(database),
		Registry:     registry,
		Metrics:      sync.NewMetrics(registry),
		Out:          os.Stdout,
	}
}

// Close releases the database and cursor store.
func (e *Env) Close() error {
	var firstErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Orchestrator builds an orchestrator over the environment.
func (e *Env) Orchestrator() *sync.Orchestrator {
	return sync.NewOrchestrator(e.Config, sync.Deps{
		Cursors:     e.Integrations,
		Contacts:    e.Contacts,
		Directory:   e.Directory,
		Credentials: e.Credentials,
		Auditor:     e.Runs,
		Metrics:     e.Metrics,
		Logger:      e.Logger,
	})
}

// RunSync runs one sync and re-arms the integration's trigger. attempts is
// the number of consecutive transient failures before this run. It returns
// ErrSyncInProgress without running when the integration is already syncing.
func (e *Env) RunSync(ctx context.Context, req sync.RunRequest, attempts int) (*sync.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lock, err := e.lockIntegration(req.IntegrationID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			e.Logger.Warn("failed to release run lock", "integration", req.IntegrationID, "err", err)
		}
	}()

	res, runErr := e.Orchestrator().Run(ctx, req)
	if res == nil {
		return nil, runErr
	}

	rescheduler := sync.NewTriggerRescheduler(e.Triggers)
	if err := sync.AfterRun(context.WithoutCancel(ctx), rescheduler, sync.PolicyFromConfig(e.Config), req, res, attempts); err != nil {
		err = fmt.Errorf("%w: %w", ErrRescheduleFailed, err)
		if runErr != nil {
			return res, errors.Join(runErr, err)
		}
		return res, err
	}

	return res, runErr
}
