// ABOUTME: Sync orchestrator driving directory pages into the contact store
// ABOUTME: Explicit state machine with full-resync recovery on cursor invalidation
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/peoplesync/models"
)

// CursorStore reads and partially updates integration cursor state.
type CursorStore interface {
	GetIntegration(ctx context.Context, id string) (*models.Integration, error)
	UpdateIntegration(ctx context.Context, id string, update models.IntegrationUpdate) error
}

// ContactRepository applies reconciled pages to local contacts.
type ContactRepository interface {
	DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error)
	UpsertAll(ctx context.Context, userID string, contacts []models.Contact) (int64, error)
	DeleteStale(ctx context.Context, userID, generation string) (int64, error)
}

// CredentialProvider resolves an access token for a user's integration.
type CredentialProvider interface {
	AccessToken(ctx context.Context, userID, resource string, clientType models.ClientType) (string, error)
}

// RunAuditor records one audit row per run. Optional.
type RunAuditor interface {
	StartRun(ctx context.Context, run *models.SyncRun) error
	FinishRun(ctx context.Context, run *models.SyncRun) error
}

// Deps are the collaborators of an Orchestrator. Auditor, Metrics and Logger
// may be nil.
type Deps struct {
	Cursors     CursorStore
	Contacts    ContactRepository
	Directory   DirectoryClient
	Credentials CredentialProvider
	Auditor     RunAuditor
	Metrics     *Metrics
	Logger      *log.Logger
}

// Result is what a caller needs to re-arm or halt scheduling.
type Result struct {
	RunID           string
	Success         bool
	EnabledAfterRun bool
	Pages           int
	Upserted        int64
	Deleted         int64
	Skipped         int
	Resets          int
}

// Orchestrator runs incremental directory syncs.
//
// Callers must guarantee at most one in-flight Run per integration; the
// orchestrator is the only writer of an integration's cursor while it runs.
type Orchestrator struct {
	cursors     CursorStore
	contacts    ContactRepository
	directory   DirectoryClient
	credentials CredentialProvider
	auditor     RunAuditor
	metrics     *Metrics
	logger      *log.Logger
	maxResets   int
	now         func() time.Time
}

// NewOrchestrator creates an orchestrator from explicit configuration.
func NewOrchestrator(cfg *Config, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	maxResets := 3
	if cfg != nil && cfg.MaxCursorResets > 0 {
		maxResets = cfg.MaxCursorResets
	}

	return &Orchestrator{
		cursors:     deps.Cursors,
		contacts:    deps.Contacts,
		directory:   deps.Directory,
		credentials: deps.Credentials,
		auditor:     deps.Auditor,
		metrics:     deps.Metrics,
		logger:      logger,
		maxResets:   maxResets,
		now:         time.Now,
	}
}

type runState int

const (
	stateStart runState = iota
	stateInitial
	stateIncremental
	statePageFetched
	stateReconciled
	stateReset
	stateDone
)

func (s runState) String() string {
	switch s {
	case stateStart:
		return "START"
	case stateInitial:
		return "INITIAL"
	case stateIncremental:
		return "INCREMENTAL"
	case statePageFetched:
		return "PAGE_FETCHED"
	case stateReconciled:
		return "RECONCILED"
	case stateReset:
		return "RESET"
	case stateDone:
		return "DONE"
	}
	return fmt.Sprintf("runState(%d)", int(s))
}

// run is the mutable state of one Run call.
type run struct {
	state       runState
	req         RunRequest
	integ       *models.Integration
	accessToken string
	pager       *pager
	plan        Classification
	result      Result
	logger      *log.Logger

	// generation stamps every upserted contact. When fullListing is set the
	// enumeration is a full listing and, once complete, contacts of any
	// other generation are swept.
	generation  string
	fullListing bool
}

// Run performs one sync for the requested integration.
//
// Input errors return a nil Result. Every other outcome returns a Result:
// a disabled integration or unresolvable credential yields
// EnabledAfterRun=false with a *ConfigurationError, a transient failure
// yields EnabledAfterRun=true with a *TransientError and leaves the cursor
// at the last reconciled page.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		state:  stateStart,
		req:    req,
		result: Result{RunID: ulid.Make().String()},
	}
	r.logger = o.logger.With("integration", req.IntegrationID, "run", r.result.RunID)

	audit := &models.SyncRun{ID: r.result.RunID, IntegrationID: req.IntegrationID, StartedAt: o.now().UTC()}
	o.startAudit(ctx, audit)

	err := o.drive(ctx, r)
	o.finish(ctx, r, audit, err)

	if err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) {
			return nil, err
		}
		return &r.result, err
	}
	return &r.result, nil
}

// drive applies transitions until DONE or an error.
func (o *Orchestrator) drive(ctx context.Context, r *run) error {
	for r.state != stateDone {
		if err := ctx.Err(); err != nil {
			return transient("sync canceled", err)
		}

		next, err := o.step(ctx, r)
		if err != nil {
			return err
		}

		r.logger.Debug("transition", "from", r.state, "to", next)
		r.state = next
	}
	return nil
}

// step is the transition function.
func (o *Orchestrator) step(ctx context.Context, r *run) (runState, error) {
	switch r.state {
	case stateStart:
		return o.start(ctx, r)

	case stateInitial:
		r.generation = ulid.Make().String()
		r.fullListing = true
		r.pager = newPager(o.directory, r.accessToken, PageRequest{})
		return o.fetch(ctx, r)

	case stateIncremental:
		r.pager = newPager(o.directory, r.accessToken, PageRequest{
			PageToken: deref(r.integ.PageToken),
			SyncToken: deref(r.integ.SyncToken),
		})
		return o.fetch(ctx, r)

	case statePageFetched:
		if err := o.reconcile(ctx, r); err != nil {
			return 0, err
		}
		return stateReconciled, nil

	case stateReconciled:
		if err := o.persistCursor(ctx, r); err != nil {
			return 0, err
		}
		if r.pager.Done() {
			return stateDone, nil
		}
		return o.fetch(ctx, r)

	case stateReset:
		r.result.Resets++
		o.metrics.cursorReset()
		if r.result.Resets > o.maxResets {
			return 0, &TransientError{Op: "full resync", Err: ErrTooManyResets}
		}
		if err := o.cursors.UpdateIntegration(ctx, r.integ.ID, models.IntegrationUpdate{
			PageToken: models.Some[*string](nil),
			SyncToken: models.Some[*string](nil),
		}); err != nil {
			return 0, transient("clear cursor", err)
		}
		r.integ.PageToken = nil
		r.integ.SyncToken = nil
		r.logger.Warn("cursor invalidated, starting full resync", "resets", r.result.Resets)
		return stateInitial, nil
	}

	return 0, fmt.Errorf("no transition from state %s", r.state)
}

// start loads the integration, checks the gate and resolves credentials.
func (o *Orchestrator) start(ctx context.Context, r *run) (runState, error) {
	integ, err := o.cursors.GetIntegration(ctx, r.req.IntegrationID)
	if err != nil {
		if errors.Is(err, models.ErrIntegrationNotFound) {
			return 0, &ConfigurationError{Reason: "integration not found", Err: err}
		}
		return 0, transient("load integration", err)
	}
	if integ.UserID != "" && integ.UserID != r.req.UserID {
		return 0, &InputError{Field: "userId", Reason: "does not own the integration"}
	}
	r.integ = integ

	if !integ.Enabled {
		return 0, &ConfigurationError{Reason: "sync halted until re-authorized", Err: ErrIntegrationDisabled}
	}

	token, err := o.credentials.AccessToken(ctx, r.req.UserID, models.ProviderGooglePeople, integ.ClientType)
	if err != nil {
		if IsTransient(err) {
			return 0, err
		}
		o.disable(ctx, r, err)
		return 0, &ConfigurationError{Reason: "failed to resolve credential", Err: err}
	}
	r.accessToken = token

	// A page token without a sync token is a full listing left mid-way.
	r.generation = deref(integ.Generation)
	r.fullListing = integ.PageToken != nil && deref(integ.SyncToken) == "" && r.generation != ""

	if err := o.cursors.UpdateIntegration(ctx, integ.ID, models.IntegrationUpdate{
		Status: models.Some(models.SyncStatusSyncing),
	}); err != nil {
		return 0, transient("mark syncing", err)
	}

	if r.req.IsInitialSync || (integ.PageToken == nil && integ.SyncToken == nil) {
		return stateInitial, nil
	}
	return stateIncremental, nil
}

// fetch pulls the next page, routing cursor invalidation to RESET.
func (o *Orchestrator) fetch(ctx context.Context, r *run) (runState, error) {
	page, err := r.pager.Next(ctx)
	if err != nil {
		if errors.Is(err, ErrCursorInvalid) {
			return stateReset, nil
		}
		return 0, transient("fetch page", err)
	}

	r.result.Pages++
	o.metrics.pageFetched()
	r.plan = Classify(page.Records)
	r.logger.Debug("page fetched", "records", len(page.Records), "deleted", len(r.plan.ToDelete))
	return statePageFetched, nil
}

// reconcile deletes tombstones then upserts live records of the current page.
func (o *Orchestrator) reconcile(ctx context.Context, r *run) error {
	if r.plan.IsEmpty() {
		return nil
	}
	userID := r.req.UserID

	ids := make([]string, 0, len(r.plan.ToDelete))
	for _, rec := range r.plan.ToDelete {
		if rec.ID() == "" {
			r.logger.Warn("skipping deletion without resource name")
			continue
		}
		ids = append(ids, rec.ID())
	}

	var deleted int64
	if len(ids) > 0 {
		n, err := o.contacts.DeleteByIDs(ctx, userID, ids)
		if err != nil {
			return transient("delete contacts", err)
		}
		deleted = n
	}

	contacts := make([]models.Contact, 0, len(r.plan.ToUpsert))
	skipped := len(r.plan.ToDelete) - len(ids)
	for _, rec := range r.plan.ToUpsert {
		contact, err := MapRecord(userID, rec)
		if err != nil {
			skipped++
			r.logger.Warn("skipping record", "resource", rec.ResourceName, "reason", err)
			continue
		}
		contact.Generation = r.generation
		contacts = append(contacts, contact)
	}

	var upserted int64
	if len(contacts) > 0 {
		n, err := o.contacts.UpsertAll(ctx, userID, contacts)
		if err != nil {
			return transient("upsert contacts", err)
		}
		upserted = n
	}

	r.result.Deleted += deleted
	r.result.Upserted += upserted
	r.result.Skipped += skipped
	o.metrics.reconciled(upserted, deleted, skipped)
	return nil
}

// persistCursor saves the position after the reconciled page. A completed
// full listing first sweeps contacts it did not write.
func (o *Orchestrator) persistCursor(ctx context.Context, r *run) error {
	if r.fullListing && r.pager.Done() {
		if err := o.sweep(ctx, r); err != nil {
			return err
		}
	}

	pageToken, syncToken := r.pager.Cursor()
	update := models.IntegrationUpdate{
		PageToken: models.Some(models.StringPtr(pageToken)),
		SyncToken: models.Some(models.StringPtr(syncToken)),
	}
	if r.fullListing {
		update.Generation = models.Some(models.StringPtr(r.generation))
	}
	if err := o.cursors.UpdateIntegration(ctx, r.integ.ID, update); err != nil {
		return transient("persist cursor", err)
	}
	update.Apply(r.integ)
	return nil
}

// sweep deletes local contacts missing from the completed full listing.
func (o *Orchestrator) sweep(ctx context.Context, r *run) error {
	n, err := o.contacts.DeleteStale(ctx, r.req.UserID, r.generation)
	if err != nil {
		return transient("sweep stale contacts", err)
	}
	if n > 0 {
		r.logger.Info("removed contacts missing from full listing", "count", n)
	}
	r.result.Deleted += n
	o.metrics.reconciled(0, n, 0)
	return nil
}

// disable turns sync off after a credential failure.
func (o *Orchestrator) disable(ctx context.Context, r *run, cause error) {
	msg := cause.Error()
	err := o.cursors.UpdateIntegration(ctx, r.integ.ID, models.IntegrationUpdate{
		SyncEnabled:  models.Some(false),
		Status:       models.Some(models.SyncStatusError),
		ErrorMessage: models.Some(&msg),
	})
	if err != nil {
		r.logger.Error("failed to disable integration", "err", err)
	}
}

// finish records the outcome on the integration, the audit row and metrics.
func (o *Orchestrator) finish(ctx context.Context, r *run, audit *models.SyncRun, runErr error) {
	// Bookkeeping still happens when the run was canceled
	ctx = context.WithoutCancel(ctx)
	outcome := models.RunOutcomeSuccess

	switch {
	case runErr == nil:
		now := o.now().UTC()
		r.result.Success = true
		r.result.EnabledAfterRun = true
		if err := o.cursors.UpdateIntegration(ctx, r.integ.ID, models.IntegrationUpdate{
			SyncEnabled:  models.Some(true),
			Status:       models.Some(models.SyncStatusIdle),
			ErrorMessage: models.Some[*string](nil),
			LastSyncTime: models.Some(&now),
		}); err != nil {
			r.logger.Error("failed to record sync completion", "err", err)
		}
		r.logger.Info("sync complete",
			"pages", r.result.Pages,
			"upserted", r.result.Upserted,
			"deleted", r.result.Deleted,
			"skipped", r.result.Skipped,
			"resets", r.result.Resets)

	case IsConfiguration(runErr):
		outcome = models.RunOutcomeDisabled
		r.result.EnabledAfterRun = false
		r.logger.Warn("sync halted", "err", runErr)

	case isInputError(runErr):
		outcome = models.RunOutcomeDisabled
		r.logger.Error("sync rejected", "err", runErr)

	default:
		outcome = models.RunOutcomeTransient
		r.result.EnabledAfterRun = true
		if r.integ != nil {
			msg := runErr.Error()
			if err := o.cursors.UpdateIntegration(ctx, r.integ.ID, models.IntegrationUpdate{
				Status:       models.Some(models.SyncStatusError),
				ErrorMessage: models.Some(&msg),
			}); err != nil {
				r.logger.Error("failed to record sync error", "err", err)
			}
		}
		r.logger.Error("sync aborted", "err", runErr, "pages", r.result.Pages)
	}

	o.metrics.runFinished(outcome)

	finished := o.now().UTC()
	audit.FinishedAt = &finished
	audit.Outcome = outcome
	audit.Pages = r.result.Pages
	audit.Upserted = r.result.Upserted
	audit.Deleted = r.result.Deleted
	audit.Skipped = r.result.Skipped
	audit.Resets = r.result.Resets
	if runErr != nil {
		audit.Error = runErr.Error()
	}
	if o.auditor != nil {
		if err := o.auditor.FinishRun(ctx, audit); err != nil {
			r.logger.Warn("failed to finish audit row", "err", err)
		}
	}
}

func (o *Orchestrator) startAudit(ctx context.Context, audit *models.SyncRun) {
	if o.auditor == nil {
		return
	}
	if err := o.auditor.StartRun(ctx, audit); err != nil {
		o.logger.Warn("failed to start audit row", "integration", audit.IntegrationID, "err", err)
	}
}

func isInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
