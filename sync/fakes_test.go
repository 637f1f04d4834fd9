// ABOUTME: In-memory collaborators for orchestrator tests
// ABOUTME: Scripted directory, cursor store, contact repository and credentials
package sync

import (
	"context"
	"errors"
	"sort"

	"github.com/harperreed/peoplesync/models"
)

// directoryStep is one scripted ListPage response.
type directoryStep struct {
	page *Page
	err  error
}

type fakeDirectory struct {
	steps    []directoryStep
	requests []PageRequest
	tokens   []string
}

func (d *fakeDirectory) ListPage(_ context.Context, accessToken string, req PageRequest) (*Page, error) {
	d.requests = append(d.requests, req)
	d.tokens = append(d.tokens, accessToken)
	if len(d.steps) == 0 {
		return nil, errors.New("unexpected ListPage call")
	}
	step := d.steps[0]
	d.steps = d.steps[1:]
	return step.page, step.err
}

// remoteDirectory serves a fixed remote state, paging by pageSize and
// answering any sync token with an empty delta.
type remoteDirectory struct {
	records  []RawRecord
	pageSize int
	failAt   int // 1-based call number that fails transiently; 0 never
	calls    int
}

func (d *remoteDirectory) ListPage(_ context.Context, _ string, req PageRequest) (*Page, error) {
	d.calls++
	if d.failAt != 0 && d.calls == d.failAt {
		return nil, &TransientError{Op: "list connections", Err: errors.New("503")}
	}

	if req.SyncToken != "" && req.PageToken == "" {
		return &Page{NextSyncToken: "sync-final"}, nil
	}

	start := 0
	if req.PageToken != "" {
		for i := range d.records {
			if "page-"+d.records[i].ResourceName == req.PageToken {
				start = i
				break
			}
		}
	}
	end := start + d.pageSize
	if end > len(d.records) {
		end = len(d.records)
	}

	page := &Page{Records: d.records[start:end]}
	if end < len(d.records) {
		page.NextPageToken = "page-" + d.records[end].ResourceName
	} else {
		page.NextSyncToken = "sync-final"
	}
	return page, nil
}

type fakeCursorStore struct {
	integrations map[string]*models.Integration
	updates      []models.IntegrationUpdate
	failUpdateAt int // 1-based update number that fails; 0 never
}

func newFakeCursorStore(integ *models.Integration) *fakeCursorStore {
	return &fakeCursorStore{integrations: map[string]*models.Integration{integ.ID: integ}}
}

func (s *fakeCursorStore) GetIntegration(_ context.Context, id string) (*models.Integration, error) {
	integ, ok := s.integrations[id]
	if !ok {
		return nil, models.ErrIntegrationNotFound
	}
	cp := *integ
	return &cp, nil
}

func (s *fakeCursorStore) UpdateIntegration(_ context.Context, id string, update models.IntegrationUpdate) error {
	s.updates = append(s.updates, update)
	if s.failUpdateAt != 0 && len(s.updates) == s.failUpdateAt {
		return errors.New("database is locked")
	}
	integ, ok := s.integrations[id]
	if !ok {
		return models.ErrIntegrationNotFound
	}
	update.Apply(integ)
	return nil
}

type fakeContacts struct {
	rows        map[string]models.Contact
	deleteCalls [][]string
	upsertCalls [][]models.Contact
	sweepCalls  []string
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{rows: map[string]models.Contact{}}
}

func (c *fakeContacts) DeleteByIDs(_ context.Context, userID string, ids []string) (int64, error) {
	c.deleteCalls = append(c.deleteCalls, ids)
	var n int64
	for _, id := range ids {
		key := userID + "/" + id
		if _, ok := c.rows[key]; ok {
			delete(c.rows, key)
			n++
		}
	}
	return n, nil
}

func (c *fakeContacts) UpsertAll(_ context.Context, userID string, contacts []models.Contact) (int64, error) {
	c.upsertCalls = append(c.upsertCalls, contacts)
	for _, contact := range contacts {
		c.rows[userID+"/"+contact.ID] = contact
	}
	return int64(len(contacts)), nil
}

func (c *fakeContacts) DeleteStale(_ context.Context, userID, generation string) (int64, error) {
	c.sweepCalls = append(c.sweepCalls, generation)
	var n int64
	for key, contact := range c.rows {
		if contact.UserID == userID && contact.Generation != generation {
			delete(c.rows, key)
			n++
		}
	}
	return n, nil
}

func (c *fakeContacts) names() []string {
	out := make([]string, 0, len(c.rows))
	for _, contact := range c.rows {
		out = append(out, contact.ID+"="+contact.Name)
	}
	sort.Strings(out)
	return out
}

type fakeCredentials struct {
	token string
	err   error
	calls int
}

func (f *fakeCredentials) AccessToken(context.Context, string, string, models.ClientType) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeAuditor struct {
	started  []models.SyncRun
	finished []models.SyncRun
}

func (a *fakeAuditor) StartRun(_ context.Context, run *models.SyncRun) error {
	a.started = append(a.started, *run)
	return nil
}

func (a *fakeAuditor) FinishRun(_ context.Context, run *models.SyncRun) error {
	a.finished = append(a.finished, *run)
	return nil
}

func person(id, name string) RawRecord {
	return RawRecord{ResourceName: "people/" + id, Names: []RawName{{DisplayName: name}}}
}

func tombstone(id string) RawRecord {
	return RawRecord{ResourceName: "people/" + id, Deleted: true}
}
