package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
	txcontext "sigillum/pkg/platform/tx"
)

// PostgresStore persists evidence records in PostgreSQL. Every state change
// carries its expected current state in the WHERE clause; zero affected rows
// means the record moved and the caller receives the sentinel for the actual
// current state.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const evidenceColumns = `
	id, tenant_id, ledger_state, ingestion_method, source_system,
	dataset_type, declared_scope, declared_intent, purpose_tags,
	retention_policy, personal_data_present, retention_end_date,
	payload_hash_sha256, metadata_hash_sha256, sealed_at_utc,
	created_by, command_id, review_status,
	quarantine_reason, quarantined_by, quarantine_created_at_utc,
	supersedes_evidence_id, superseded_by_evidence_id, original_state,
	payload, created_at_utc, updated_at_utc
`

func (s *PostgresStore) Create(ctx context.Context, e *ledger.Evidence) error {
	query := `
		INSERT INTO evidence (` + evidenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.EvidenceID),
		uuid.UUID(e.TenantID),
		string(e.LedgerState),
		e.IngestionMethod,
		e.SourceSystem,
		e.DatasetType,
		e.DeclaredScope,
		e.DeclaredIntent,
		pq.Array(e.PurposeTags),
		e.RetentionPolicy,
		e.PersonalDataPresent,
		e.RetentionEndDate,
		e.PayloadHashSHA256,
		e.MetadataHashSHA256,
		e.SealedAtUTC,
		uuid.UUID(e.CreatedBy),
		e.CommandID,
		e.ReviewStatus,
		e.QuarantineReason,
		e.QuarantinedBy,
		e.QuarantineCreatedAtUTC,
		nullEvidenceID(e.SupersedesEvidenceID),
		nullEvidenceID(e.SupersededByEvidenceID),
		e.OriginalState,
		e.Payload,
		e.CreatedAtUTC,
		e.UpdatedAtUTC,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*ledger.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE tenant_id = $1 AND id = $2`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	records, err := scanEvidence(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return records[0], nil
}

func (s *PostgresStore) FilterByTenantAndState(ctx context.Context, tenantID id.TenantID, st state.State) ([]*ledger.Evidence, error) {
	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence
		WHERE tenant_id = $1 AND ledger_state = $2
		ORDER BY created_at_utc DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), string(st))
	if err != nil {
		return nil, fmt.Errorf("filter evidence: %w", err)
	}
	defer rows.Close()
	return scanEvidence(rows)
}

func (s *PostgresStore) UpdateDeclared(ctx context.Context, e *ledger.Evidence) error {
	query := `
		UPDATE evidence
		SET ingestion_method = $3, source_system = $4, dataset_type = $5,
		    declared_scope = $6, declared_intent = $7, purpose_tags = $8,
		    retention_policy = $9, personal_data_present = $10,
		    retention_end_date = $11, payload = $12, review_status = $13,
		    updated_at_utc = $14
		WHERE tenant_id = $1 AND id = $2 AND ledger_state = 'INGESTED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.TenantID), uuid.UUID(e.EvidenceID),
		e.IngestionMethod, e.SourceSystem, e.DatasetType,
		e.DeclaredScope, e.DeclaredIntent, pq.Array(e.PurposeTags),
		e.RetentionPolicy, e.PersonalDataPresent,
		e.RetentionEndDate, e.Payload, e.ReviewStatus,
		e.UpdatedAtUTC,
	)
	if err != nil {
		return fmt.Errorf("update evidence: %w", err)
	}
	return s.resolveNoRows(ctx, res, e.TenantID, e.EvidenceID, sentinel.ErrSealed)
}

func (s *PostgresStore) UpdateReviewStatus(ctx context.Context, e *ledger.Evidence) error {
	query := `
		UPDATE evidence
		SET review_status = $3, updated_at_utc = $4
		WHERE tenant_id = $1 AND id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.TenantID), uuid.UUID(e.EvidenceID), e.ReviewStatus, e.UpdatedAtUTC)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Seal(ctx context.Context, e *ledger.Evidence) error {
	query := `
		UPDATE evidence
		SET ledger_state = 'SEALED', payload_hash_sha256 = $3,
		    metadata_hash_sha256 = $4, sealed_at_utc = $5, command_id = $6,
		    updated_at_utc = $7
		WHERE tenant_id = $1 AND id = $2 AND ledger_state = 'INGESTED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.TenantID), uuid.UUID(e.EvidenceID),
		e.PayloadHashSHA256, e.MetadataHashSHA256, e.SealedAtUTC, e.CommandID,
		e.UpdatedAtUTC,
	)
	if err != nil {
		return fmt.Errorf("seal evidence: %w", err)
	}
	return s.resolveNoRows(ctx, res, e.TenantID, e.EvidenceID, sentinel.ErrSealed)
}

func (s *PostgresStore) Supersede(ctx context.Context, tenantID id.TenantID, oldID, newID id.EvidenceID) error {
	query := `
		UPDATE evidence
		SET ledger_state = 'SUPERSEDED', superseded_by_evidence_id = $3
		WHERE tenant_id = $1 AND id = $2 AND ledger_state = 'SEALED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(oldID), uuid.UUID(newID))
	if err != nil {
		return fmt.Errorf("supersede evidence: %w", err)
	}
	return s.resolveNoRows(ctx, res, tenantID, oldID, sentinel.ErrInvalidState)
}

func (s *PostgresStore) Quarantine(ctx context.Context, e *ledger.Evidence) error {
	query := `
		UPDATE evidence
		SET ledger_state = 'QUARANTINED', quarantine_reason = $3,
		    quarantined_by = $4, quarantine_created_at_utc = $5,
		    updated_at_utc = $6
		WHERE tenant_id = $1 AND id = $2 AND ledger_state = 'SEALED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.TenantID), uuid.UUID(e.EvidenceID),
		e.QuarantineReason, e.QuarantinedBy, e.QuarantineCreatedAtUTC,
		e.UpdatedAtUTC,
	)
	if err != nil {
		return fmt.Errorf("quarantine evidence: %w", err)
	}
	return s.resolveNoRows(ctx, res, e.TenantID, e.EvidenceID, sentinel.ErrInvalidState)
}

func (s *PostgresStore) ReleaseQuarantine(ctx context.Context, e *ledger.Evidence) error {
	query := `
		UPDATE evidence
		SET ledger_state = 'SEALED', quarantine_reason = '',
		    quarantined_by = '', quarantine_created_at_utc = NULL,
		    updated_at_utc = $3
		WHERE tenant_id = $1 AND id = $2 AND ledger_state = 'QUARANTINED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.TenantID), uuid.UUID(e.EvidenceID), e.UpdatedAtUTC)
	if err != nil {
		return fmt.Errorf("release quarantine: %w", err)
	}
	return s.resolveNoRows(ctx, res, e.TenantID, e.EvidenceID, sentinel.ErrInvalidState)
}

func (s *PostgresStore) ForceMigrate(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID, expectedState string, target state.State, reasonCode string) error {
	// original_state keeps the legacy value; review_status carries the
	// migration reason for operator triage.
	query := `
		UPDATE evidence
		SET ledger_state = $3, original_state = $4, review_status = $5
		WHERE tenant_id = $1 AND id = $2 AND ledger_state = $4
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(evidenceID),
		string(target), expectedState, reasonCode)
	if err != nil {
		return fmt.Errorf("force migrate evidence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("force migrate evidence: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ScanAll(ctx context.Context) ([]*ledger.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence ORDER BY created_at_utc ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan evidence: %w", err)
	}
	defer rows.Close()
	return scanEvidence(rows)
}

// resolveNoRows maps a zero-affected-rows update to the right sentinel by
// looking at the record's current state.
func (s *PostgresStore) resolveNoRows(ctx context.Context, res sql.Result, tenantID id.TenantID, evidenceID id.EvidenceID, sealedErr error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var current string
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT ledger_state FROM evidence WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(evidenceID)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve current state: %w", err)
	}
	switch state.State(current) {
	case state.Sealed, state.Superseded, state.Quarantined:
		return sealedErr
	default:
		return sentinel.ErrInvalidState
	}
}

func scanEvidence(rows *sql.Rows) ([]*ledger.Evidence, error) {
	var records []*ledger.Evidence
	for rows.Next() {
		var (
			e            ledger.Evidence
			evidenceID   uuid.UUID
			tenantID     uuid.UUID
			ledgerState  string
			createdBy    uuid.UUID
			supersedes   uuid.NullUUID
			supersededBy uuid.NullUUID
			tags         pq.StringArray
		)
		if err := rows.Scan(
			&evidenceID, &tenantID, &ledgerState,
			&e.IngestionMethod, &e.SourceSystem, &e.DatasetType,
			&e.DeclaredScope, &e.DeclaredIntent, &tags,
			&e.RetentionPolicy, &e.PersonalDataPresent, &e.RetentionEndDate,
			&e.PayloadHashSHA256, &e.MetadataHashSHA256, &e.SealedAtUTC,
			&createdBy, &e.CommandID, &e.ReviewStatus,
			&e.QuarantineReason, &e.QuarantinedBy, &e.QuarantineCreatedAtUTC,
			&supersedes, &supersededBy, &e.OriginalState,
			&e.Payload, &e.CreatedAtUTC, &e.UpdatedAtUTC,
		); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		e.EvidenceID = id.EvidenceID(evidenceID)
		e.TenantID = id.TenantID(tenantID)
		e.LedgerState = state.State(ledgerState)
		e.CreatedBy = id.UserID(createdBy)
		e.PurposeTags = tags
		if supersedes.Valid {
			v := id.EvidenceID(supersedes.UUID)
			e.SupersedesEvidenceID = &v
		}
		if supersededBy.Valid {
			v := id.EvidenceID(supersededBy.UUID)
			e.SupersededByEvidenceID = &v
		}
		records = append(records, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return records, nil
}

func nullEvidenceID(eid *id.EvidenceID) uuid.NullUUID {
	if eid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*eid), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
