package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	txcontext "sigillum/pkg/platform/tx"
)

// PostgresStore persists audit events in PostgreSQL. Each append writes the
// queryable audit_events row and a transactional-outbox row in the same
// transaction; the outbox worker publishes to Kafka so downstream consumers
// never observe an event whose state change rolled back.
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

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	contextJSON, err := json.Marshal(event.Context)
	if err != nil {
		return fmt.Errorf("marshal audit context: %w", err)
	}

	var evidenceID *uuid.UUID
	if event.EvidenceID != nil {
		eid := uuid.UUID(*event.EvidenceID)
		evidenceID = &eid
	}

	exec := s.execer(ctx)

	const insertEvent = `
		INSERT INTO audit_events (
			id, tenant_id, evidence_id, actor_user_id, actor_role,
			action, previous_state, new_state, reason_code,
			timestamp_utc, request_id, context
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := exec.ExecContext(ctx, insertEvent,
		uuid.UUID(event.AuditEventID),
		uuid.UUID(event.TenantID),
		evidenceID,
		uuid.UUID(event.ActorUserID),
		event.ActorRole,
		string(event.Action),
		string(event.PreviousState),
		string(event.NewState),
		event.ReasonCode,
		event.TimestampUTC,
		event.RequestID,
		contextJSON,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	aggregateID := uuid.UUID(event.TenantID).String()
	if event.EvidenceID != nil {
		aggregateID = event.EvidenceID.String()
	}

	const insertOutbox = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := exec.ExecContext(ctx, insertOutbox,
		uuid.New(),
		"evidence",
		aggregateID,
		string(event.Action),
		payload,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEvidence(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) ([]Event, error) {
	const query = `
		SELECT id, tenant_id, evidence_id, actor_user_id, actor_role,
		       action, previous_state, new_state, reason_code,
		       timestamp_utc, request_id, context
		FROM audit_events
		WHERE tenant_id = $1 AND evidence_id = $2
		ORDER BY timestamp_utc ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) CountByEvidence(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (int, error) {
	const query = `
		SELECT COUNT(*) FROM audit_events
		WHERE tenant_id = $1 AND evidence_id = $2
	`
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(evidenceID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event       Event
			eventID     uuid.UUID
			tenantID    uuid.UUID
			evidenceID  *uuid.UUID
			actorID     uuid.UUID
			action      string
			prevState   string
			newState    string
			contextJSON []byte
		)
		if err := rows.Scan(
			&eventID,
			&tenantID,
			&evidenceID,
			&actorID,
			&event.ActorRole,
			&action,
			&prevState,
			&newState,
			&event.ReasonCode,
			&event.TimestampUTC,
			&event.RequestID,
			&contextJSON,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.AuditEventID = id.AuditEventID(eventID)
		event.TenantID = id.TenantID(tenantID)
		event.ActorUserID = id.UserID(actorID)
		event.Action = Action(action)
		event.PreviousState = stateOrEmpty(prevState)
		event.NewState = stateOrEmpty(newState)
		if evidenceID != nil {
			eid := id.EvidenceID(*evidenceID)
			event.EvidenceID = &eid
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &event.Context); err != nil {
				return nil, fmt.Errorf("unmarshal audit context: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func stateOrEmpty(s string) state.State { return state.State(s) }
