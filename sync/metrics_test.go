// ABOUTME: Tests for sync Prometheus counters
// ABOUTME: Drives an orchestrator run and reads counters back from the registry
package sync

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/peoplesync/models"
)

func TestMetricsCountRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	integ := enabledIntegration()
	integ.SyncToken = models.StringPtr("s0")
	h := newHarness(integ)
	dir := &fakeDirectory{steps: []directoryStep{
		{err: ErrCursorInvalid},
		{page: &Page{Records: []RawRecord{person("a", "Ada"), {ResourceName: "people/x"}}, NextPageToken: "p2"}},
		{page: &Page{Records: []RawRecord{tombstone("b")}, NextSyncToken: "s1"}},
	}}

	orch := NewOrchestrator(DefaultConfig(), Deps{
		Cursors:     h.cursors,
		Contacts:    h.contacts,
		Directory:   dir,
		Credentials: h.creds,
		Metrics:     metrics,
	})

	_, err := orch.Run(context.Background(), RunRequest{IntegrationID: "I1", UserID: "U1"})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.pagesFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.upserted))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.recordsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cursorResets))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues(models.RunOutcomeSuccess)))

	count, err := testutil.GatherAndCount(reg, "peoplesync_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.pageFetched()
		m.reconciled(1, 1, 1)
		m.cursorReset()
		m.runFinished(models.RunOutcomeTransient)
	})
}
