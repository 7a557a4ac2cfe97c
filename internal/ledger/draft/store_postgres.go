package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
	txcontext "sigillum/pkg/platform/tx"
)

// PostgresStore persists drafts in PostgreSQL. The declaration and
// attachments are stored as JSONB; attachment content lives in a side table
// so listing drafts never drags payload bytes along.
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

func (s *PostgresStore) Create(ctx context.Context, d *Draft) error {
	declJSON, attJSON, err := marshalDraft(d)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO drafts (
			id, tenant_id, correlation_id, declaration, attachments,
			raw_payload, status, sealed_evidence_id, created_by,
			created_at_utc, updated_at_utc
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(d.DraftID),
		uuid.UUID(d.TenantID),
		d.CorrelationID,
		declJSON,
		attJSON,
		d.RawPayload,
		string(d.Status),
		nullUUID(d.SealedEvidenceID),
		uuid.UUID(d.CreatedBy),
		d.CreatedAtUTC,
		d.UpdatedAtUTC,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}

	return s.saveAttachmentContent(ctx, d)
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, draftID id.DraftID) (*Draft, error) {
	const query = `
		SELECT id, tenant_id, correlation_id, declaration, attachments,
		       raw_payload, status, sealed_evidence_id, created_by,
		       created_at_utc, updated_at_utc
		FROM drafts
		WHERE tenant_id = $1 AND id = $2
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(draftID))

	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadAttachmentContent(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Update persists a mutable draft. The WHERE clause excludes sealed rows so a
// racing seal cannot be overwritten.
func (s *PostgresStore) Update(ctx context.Context, d *Draft) error {
	declJSON, attJSON, err := marshalDraft(d)
	if err != nil {
		return err
	}

	const query = `
		UPDATE drafts
		SET declaration = $3, attachments = $4, raw_payload = $5,
		    status = $6, updated_at_utc = $7
		WHERE tenant_id = $1 AND id = $2 AND status <> 'SEALED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(d.TenantID),
		uuid.UUID(d.DraftID),
		declJSON,
		attJSON,
		d.RawPayload,
		string(d.Status),
		d.UpdatedAtUTC,
	)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from sealed for the caller's error mapping.
		var status string
		err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT status FROM drafts WHERE tenant_id = $1 AND id = $2`,
			uuid.UUID(d.TenantID), uuid.UUID(d.DraftID)).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update draft: %w", err)
		}
		return sentinel.ErrSealed
	}

	return s.saveAttachmentContent(ctx, d)
}

func (s *PostgresStore) MarkSealed(ctx context.Context, tenantID id.TenantID, draftID id.DraftID, evidenceID id.EvidenceID) error {
	const query = `
		UPDATE drafts
		SET status = 'SEALED', sealed_evidence_id = $3
		WHERE tenant_id = $1 AND id = $2 AND status <> 'SEALED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(draftID), uuid.UUID(evidenceID))
	if err != nil {
		return fmt.Errorf("mark draft sealed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark draft sealed: %w", err)
	}
	if affected == 0 {
		var sealedTo uuid.NullUUID
		err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT sealed_evidence_id FROM drafts WHERE tenant_id = $1 AND id = $2`,
			uuid.UUID(tenantID), uuid.UUID(draftID)).Scan(&sealedTo)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("mark draft sealed: %w", err)
		}
		if sealedTo.Valid && sealedTo.UUID == uuid.UUID(evidenceID) {
			return nil
		}
		return sentinel.ErrSealed
	}
	return nil
}

func (s *PostgresStore) saveAttachmentContent(ctx context.Context, d *Draft) error {
	const query = `
		INSERT INTO draft_attachments (id, draft_id, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	for _, a := range d.Attachments {
		if len(a.Content) == 0 {
			continue
		}
		if _, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(a.AttachmentID), uuid.UUID(d.DraftID), a.Content); err != nil {
			return fmt.Errorf("insert attachment content: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) loadAttachmentContent(ctx context.Context, d *Draft) error {
	if len(d.Attachments) == 0 {
		return nil
	}
	const query = `SELECT id, content FROM draft_attachments WHERE draft_id = $1`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(d.DraftID))
	if err != nil {
		return fmt.Errorf("load attachment content: %w", err)
	}
	defer rows.Close()

	content := make(map[uuid.UUID][]byte)
	for rows.Next() {
		var aid uuid.UUID
		var c []byte
		if err := rows.Scan(&aid, &c); err != nil {
			return fmt.Errorf("scan attachment content: %w", err)
		}
		content[aid] = c
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attachment content: %w", err)
	}
	for i := range d.Attachments {
		d.Attachments[i].Content = content[uuid.UUID(d.Attachments[i].AttachmentID)]
	}
	return nil
}

func marshalDraft(d *Draft) (decl, att []byte, err error) {
	decl, err = json.Marshal(d.Declaration)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal declaration: %w", err)
	}
	// Content bytes live in draft_attachments, not in the JSONB column.
	att, err = json.Marshal(d.Attachments)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal attachments: %w", err)
	}
	return decl, att, nil
}

func scanDraft(row *sql.Row) (*Draft, error) {
	var (
		d          Draft
		draftID    uuid.UUID
		tenantID   uuid.UUID
		declJSON   []byte
		attJSON    []byte
		status     string
		sealedTo   uuid.NullUUID
		createdBy  uuid.UUID
	)
	err := row.Scan(
		&draftID, &tenantID, &d.CorrelationID, &declJSON, &attJSON,
		&d.RawPayload, &status, &sealedTo, &createdBy,
		&d.CreatedAtUTC, &d.UpdatedAtUTC,
	)
	if err != nil {
		return nil, err
	}
	d.DraftID = id.DraftID(draftID)
	d.TenantID = id.TenantID(tenantID)
	d.Status = Status(status)
	d.CreatedBy = id.UserID(createdBy)
	if sealedTo.Valid {
		eid := id.EvidenceID(sealedTo.UUID)
		d.SealedEvidenceID = &eid
	}
	if err := json.Unmarshal(declJSON, &d.Declaration); err != nil {
		return nil, fmt.Errorf("unmarshal declaration: %w", err)
	}
	if len(attJSON) > 0 {
		if err := json.Unmarshal(attJSON, &d.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	return &d, nil
}

func nullUUID(eid *id.EvidenceID) uuid.NullUUID {
	if eid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*eid), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
