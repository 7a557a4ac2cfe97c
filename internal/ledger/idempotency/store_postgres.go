package idempotency

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
	txcontext "sigillum/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	outcome, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("marshal command outcome: %w", err)
	}

	query := `
		INSERT INTO command_records (tenant_id, aggregate_id, command_id, outcome, created_at_utc)
		VALUES ($1, $2, $3, $4, $5)`

	if tx, ok := txcontext.From(ctx); ok {
		_, err = tx.ExecContext(ctx, query,
			rec.TenantID.String(), rec.AggregateID, rec.CommandID, outcome, rec.CreatedAtUTC)
	} else {
		_, err = s.db.ExecContext(ctx, query,
			rec.TenantID.String(), rec.AggregateID, rec.CommandID, outcome, rec.CreatedAtUTC)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save command record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, tenantID id.TenantID, aggregateID, commandID string) (*Record, error) {
	query := `
		SELECT tenant_id, aggregate_id, command_id, outcome, created_at_utc
		FROM command_records
		WHERE tenant_id = $1 AND aggregate_id = $2 AND command_id = $3`

	var (
		rec        Record
		rawTenant  string
		rawOutcome []byte
	)
	row := s.db.QueryRowContext(ctx, query, tenantID.String(), aggregateID, commandID)
	if tx, ok := txcontext.From(ctx); ok {
		row = tx.QueryRowContext(ctx, query, tenantID.String(), aggregateID, commandID)
	}
	err := row.Scan(&rawTenant, &rec.AggregateID, &rec.CommandID, &rawOutcome, &rec.CreatedAtUTC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find command record: %w", err)
	}

	rec.TenantID, err = id.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("parse stored tenant id: %w", err)
	}
	if len(rawOutcome) > 0 {
		if err := json.Unmarshal(rawOutcome, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("decode command outcome: %w", err)
		}
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
