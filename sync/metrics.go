// ABOUTME: Prometheus counters for directory sync runs
// ABOUTME: A nil *Metrics is valid and records nothing
package sync

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "peoplesync"

// Metrics counts pages, writes, skips, resets and run outcomes.
type Metrics struct {
	pagesFetched   prometheus.Counter
	upserted       prometheus.Counter
	deleted        prometheus.Counter
	recordsSkipped prometheus.Counter
	cursorResets   prometheus.Counter
	runs           *prometheus.CounterVec
}

// NewMetrics creates the sync counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pages_fetched_total",
			Help:      "Directory pages fetched.",
		}),
		upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "contacts_upserted_total",
			Help:      "Contacts written by upsert.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "contacts_deleted_total",
			Help:      "Contacts removed after remote deletion.",
		}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_skipped_total",
			Help:      "Directory records skipped for missing identity or name.",
		}),
		cursorResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cursor_resets_total",
			Help:      "Full resyncs forced by cursor invalidation.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Sync runs by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.pagesFetched, m.upserted, m.deleted, m.recordsSkipped, m.cursorResets, m.runs)
	}
	return m
}

func (m *Metrics) pageFetched() {
	if m != nil {
		m.pagesFetched.Inc()
	}
}

func (m *Metrics) reconciled(upserted, deleted int64, skipped int) {
	if m == nil {
		return
	}
	m.upserted.Add(float64(upserted))
	m.deleted.Add(float64(deleted))
	m.recordsSkipped.Add(float64(skipped))
}

func (m *Metrics) cursorReset() {
	if m != nil {
		m.cursorResets.Inc()
	}
}

func (m *Metrics) runFinished(outcome string) {
	if m != nil {
		m.runs.WithLabelValues(outcome).Inc()
	}
}
