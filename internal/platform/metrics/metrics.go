package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	DraftsCreated        prometheus.Counter
	EvidenceSealed       prometheus.Counter
	IdempotentReplays    prometheus.Counter
	PolicyViolations     prometheus.Counter
	ReconciliationRuns   prometheus.Counter
	ReconciliationFixes  prometheus.Counter
	SealDuration         prometheus.Histogram
	HashVerifyMismatches prometheus.Counter
	OutboxPublished      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DraftsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_drafts_created_total",
			Help: "Total number of evidence drafts created",
		}),
		EvidenceSealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_evidence_sealed_total",
			Help: "Total number of evidence records sealed",
		}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_idempotent_replays_total",
			Help: "Total number of mutation attempts answered from a prior command outcome",
		}),
		PolicyViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_policy_violations_total",
			Help: "Total number of blocked mutation attempts against sealed evidence",
		}),
		ReconciliationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_reconciliation_runs_total",
			Help: "Total number of reconciliation runs",
		}),
		ReconciliationFixes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_reconciliation_fixes_total",
			Help: "Total number of records migrated or backfilled by reconciliation",
		}),
		SealDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigillum_seal_duration_seconds",
			Help:    "Latency of the seal pipeline",
			Buckets: prometheus.DefBuckets,
		}),
		HashVerifyMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_hash_verify_mismatches_total",
			Help: "Total number of verification requests that found a hash mismatch",
		}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigillum_outbox_published_total",
			Help: "Total number of outbox entries delivered to the audit topic",
		}),
	}
}

// ObserveSealDuration records one seal pipeline execution.
func (m *Metrics) ObserveSealDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.SealDuration.Observe(d.Seconds())
}

// Inc helpers are nil-safe so services can run without metrics in tests.
func inc(c prometheus.Counter) {
	c.Inc()
}

func (m *Metrics) IncDraftsCreated() {
	if m != nil {
		inc(m.DraftsCreated)
	}
}

func (m *Metrics) IncEvidenceSealed() {
	if m != nil {
		inc(m.EvidenceSealed)
	}
}

func (m *Metrics) IncIdempotentReplays() {
	if m != nil {
		inc(m.IdempotentReplays)
	}
}

func (m *Metrics) IncPolicyViolations() {
	if m != nil {
		inc(m.PolicyViolations)
	}
}

func (m *Metrics) IncReconciliationRuns() {
	if m != nil {
		inc(m.ReconciliationRuns)
	}
}

func (m *Metrics) AddReconciliationFixes(n int) {
	if m != nil && n > 0 {
		m.ReconciliationFixes.Add(float64(n))
	}
}

func (m *Metrics) IncHashVerifyMismatches() {
	if m != nil {
		inc(m.HashVerifyMismatches)
	}
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m != nil && n > 0 {
		m.OutboxPublished.Add(float64(n))
	}
}
