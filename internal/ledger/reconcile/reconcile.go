// Package reconcile scans the ledger for records that drifted out of the
// state contract and repairs them without erasing history. It is the only
// code path that reads across tenants, and it refuses to run without an
// explicit admin context.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/state"
	"sigillum/internal/ledger/store"
	"sigillum/internal/platform/metrics"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/sentinel"
	txcontext "sigillum/pkg/platform/tx"
	"sigillum/pkg/requestcontext"
)

// ReasonLegacyStateMigrated tags records force-migrated out of a state the
// current contract no longer recognizes.
const ReasonLegacyStateMigrated = "LEGACY_STATE_MIGRATED"

const scanConcurrency = 8

// Finding describes one non-compliant record in a diagnostic report.
type Finding struct {
	TenantID   string `json:"tenant_id"`
	EvidenceID string `json:"evidence_id"`
	State      string `json:"state"`
	Problem    string `json:"problem"`
}

// Report is the read-only diagnostic output. Nothing is mutated to produce
// it.
type Report struct {
	GeneratedAtUTC time.Time `json:"generated_at_utc"`
	Scanned        int       `json:"scanned"`
	LegacyStates   []Finding `json:"legacy_states,omitempty"`
	NotSealed      []Finding `json:"not_sealed,omitempty"`
	MissingHashes  []Finding `json:"missing_hashes,omitempty"`
	MissingAudit   []Finding `json:"missing_audit,omitempty"`
}

// Clean reports whether the scan found nothing to repair.
func (r *Report) Clean() bool {
	return len(r.LegacyStates) == 0 && len(r.MissingHashes) == 0 && len(r.MissingAudit) == 0
}

// RunSummary is the outcome of a repair run. Running a second time over the
// same store state yields zero counts.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	StartedAtUTC   time.Time `json:"started_at_utc"`
	FinishedAtUTC  time.Time `json:"finished_at_utc"`
	Scanned        int       `json:"scanned"`
	Migrated       int       `json:"migrated"`
	AuditBackfills int       `json:"audit_backfills"`
	Skipped        int       `json:"skipped"`
}

type Reconciler struct {
	evidence store.Store
	audits   audit.Store
	auditor  *audit.Writer
	runner   txcontext.Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(evidence store.Store, audits audit.Store, auditor *audit.Writer, runner txcontext.Runner, m *metrics.Metrics, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		evidence: evidence,
		audits:   audits,
		auditor:  auditor,
		runner:   runner,
		metrics:  m,
		logger:   logger,
	}
}

func requireAdmin(ctx context.Context) error {
	if _, ok := requestcontext.Admin(ctx); !ok {
		return dErrors.New(dErrors.CodeForbidden, "reconciliation requires an admin context")
	}
	return nil
}

// Run produces a diagnostic report and, unless dryRun is set, repairs what
// it found. Safe to run against live traffic: every write re-checks the
// record's current state, and a record that moved since the scan is skipped,
// not clobbered.
func (r *Reconciler) Run(ctx context.Context, dryRun bool) (*Report, *RunSummary, error) {
	report, err := r.Inspect(ctx)
	if err != nil {
		return nil, nil, err
	}
	if dryRun {
		return report, nil, nil
	}
	summary, err := r.repair(ctx, report)
	if err != nil {
		return nil, nil, err
	}
	return report, summary, nil
}

// Inspect scans every record and classifies drift without mutating anything.
func (r *Reconciler) Inspect(ctx context.Context) (*Report, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	records, err := r.evidence.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAtUTC: requestcontext.Now(ctx).UTC(),
		Scanned:        len(records),
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)

	for _, e := range records {
		g.Go(func() error {
			findings, err := r.classify(gCtx, e)
			if err != nil {
				return err
			}
			if len(findings) == 0 {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, f := range findings {
				switch f.Problem {
				case "legacy_state":
					report.LegacyStates = append(report.LegacyStates, f)
				case "not_sealed":
					report.NotSealed = append(report.NotSealed, f)
				case "missing_hashes":
					report.MissingHashes = append(report.MissingHashes, f)
				case "missing_audit":
					report.MissingAudit = append(report.MissingAudit, f)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Reconciler) classify(ctx context.Context, e *ledger.Evidence) ([]Finding, error) {
	base := Finding{
		TenantID:   e.TenantID.String(),
		EvidenceID: e.EvidenceID.String(),
		State:      string(e.LedgerState),
	}
	var findings []Finding

	if !e.LedgerState.Valid() {
		f := base
		f.Problem = "legacy_state"
		return append(findings, f), nil
	}
	if !e.Sealed() {
		f := base
		f.Problem = "not_sealed"
		findings = append(findings, f)
		return findings, nil
	}

	if e.PayloadHashSHA256 == "" || e.MetadataHashSHA256 == "" {
		f := base
		f.Problem = "missing_hashes"
		findings = append(findings, f)
	}
	count, err := r.audits.CountByEvidence(ctx, e.TenantID, e.EvidenceID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		f := base
		f.Problem = "missing_audit"
		findings = append(findings, f)
	}
	return findings, nil
}

// repair fixes what Inspect reported: legacy states are force-migrated to
// REJECTED with the original value preserved, and sealed records with no
// audit coverage get one retroactive sealed event tagged as a backfill. The
// run itself ends with its own audit event carrying the counts.
func (r *Reconciler) repair(ctx context.Context, report *Report) (*RunSummary, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:        uuid.NewString(),
		StartedAtUTC: requestcontext.Now(ctx).UTC(),
		Scanned:      report.Scanned,
	}

	for _, f := range report.LegacyStates {
		migrated, err := r.migrateLegacy(ctx, f, summary.RunID)
		if err != nil {
			return nil, err
		}
		if migrated {
			summary.Migrated++
		} else {
			summary.Skipped++
		}
	}

	for _, f := range report.MissingAudit {
		backfilled, err := r.backfillAudit(ctx, f, summary.RunID)
		if err != nil {
			return nil, err
		}
		if backfilled {
			summary.AuditBackfills++
		} else {
			summary.Skipped++
		}
	}

	summary.FinishedAtUTC = requestcontext.Now(ctx).UTC()

	if err := r.auditor.Record(ctx, audit.Event{
		Action: audit.ActionReconciliationRun,
		Context: map[string]any{
			"run_id":          summary.RunID,
			"scanned":         summary.Scanned,
			"migrated":        summary.Migrated,
			"audit_backfills": summary.AuditBackfills,
			"skipped":         summary.Skipped,
		},
	}); err != nil {
		return nil, err
	}

	r.metrics.IncReconciliationRuns()
	r.metrics.AddReconciliationFixes(summary.Migrated + summary.AuditBackfills)
	r.logger.InfoContext(ctx, "reconciliation run finished",
		"run_id", summary.RunID, "scanned", summary.Scanned,
		"migrated", summary.Migrated, "audit_backfills", summary.AuditBackfills,
		"skipped", summary.Skipped)
	return summary, nil
}

func (r *Reconciler) migrateLegacy(ctx context.Context, f Finding, runID string) (bool, error) {
	tenantID, err := idTenant(f.TenantID)
	if err != nil {
		return false, err
	}
	evidenceID, err := idEvidence(f.EvidenceID)
	if err != nil {
		return false, err
	}

	err = r.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := r.evidence.ForceMigrate(txCtx, tenantID, evidenceID, f.State, state.Rejected, ReasonLegacyStateMigrated); err != nil {
			return err
		}
		return r.auditor.Record(txCtx, audit.Event{
			TenantID:      tenantID,
			EvidenceID:    &evidenceID,
			Action:        audit.ActionStateMigrated,
			PreviousState: state.State(f.State),
			NewState:      state.Rejected,
			ReasonCode:    ReasonLegacyStateMigrated,
			Context: map[string]any{
				"run_id":         runID,
				"original_state": f.State,
			},
		})
	})
	if err != nil {
		// The record moved since the scan; the current state wins.
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Reconciler) backfillAudit(ctx context.Context, f Finding, runID string) (bool, error) {
	tenantID, err := idTenant(f.TenantID)
	if err != nil {
		return false, err
	}
	evidenceID, err := idEvidence(f.EvidenceID)
	if err != nil {
		return false, err
	}

	var backfilled bool
	err = r.runner.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := r.audits.CountByEvidence(txCtx, tenantID, evidenceID)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		backfilled = true
		return r.auditor.Record(txCtx, audit.Event{
			TenantID:   tenantID,
			EvidenceID: &evidenceID,
			Action:     audit.ActionEvidenceSealed,
			NewState:   state.Sealed,
			Context: map[string]any{
				"backfill": true,
				"run_id":   runID,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return backfilled, nil
}

func idTenant(raw string) (id.TenantID, error) {
	tenantID, err := id.ParseTenantID(raw)
	if err != nil {
		return id.TenantID{}, dErrors.Wrap(err, dErrors.CodeInternal, "scan produced an invalid tenant id")
	}
	return tenantID, nil
}

func idEvidence(raw string) (id.EvidenceID, error) {
	evidenceID, err := id.ParseEvidenceID(raw)
	if err != nil {
		return id.EvidenceID{}, dErrors.Wrap(err, dErrors.CodeInternal, "scan produced an invalid evidence id")
	}
	return evidenceID, nil
}
