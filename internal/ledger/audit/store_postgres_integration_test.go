//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	"sigillum/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events", "outbox"))
}

func newEvent(tenantID id.TenantID, evidenceID id.EvidenceID, action audit.Action, at time.Time) audit.Event {
	return audit.Event{
		AuditEventID:  id.AuditEventID(uuid.New()),
		TenantID:      tenantID,
		EvidenceID:    &evidenceID,
		ActorUserID:   id.UserID(uuid.New()),
		ActorRole:     "uploader",
		Action:        action,
		PreviousState: state.Ingested,
		NewState:      state.Sealed,
		TimestampUTC:  at.UTC().Truncate(time.Microsecond),
		RequestID:     uuid.NewString(),
		Context:       map[string]any{"payload_hash": "abc123"},
	}
}

func (s *AuditPostgresSuite) TestAppendWritesEventAndOutboxRow() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	evidenceID := id.NewEvidenceID()

	event := newEvent(tenantID, evidenceID, audit.ActionEvidenceSealed, time.Now())
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByEvidence(ctx, tenantID, evidenceID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionEvidenceSealed, events[0].Action)
	s.Equal("abc123", events[0].Context["payload_hash"])

	var outboxCount int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM outbox WHERE aggregate_id = $1`, evidenceID.String()).Scan(&outboxCount)
	s.Require().NoError(err)
	s.Equal(1, outboxCount)
}

func (s *AuditPostgresSuite) TestAppendIsIdempotentPerEventID() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	evidenceID := id.NewEvidenceID()

	event := newEvent(tenantID, evidenceID, audit.ActionEvidenceIngested, time.Now())
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	count, err := s.store.CountByEvidence(ctx, tenantID, evidenceID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *AuditPostgresSuite) TestListOrdersByTimestamp() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	evidenceID := id.NewEvidenceID()
	base := time.Now().Add(-time.Hour)

	sealed := newEvent(tenantID, evidenceID, audit.ActionEvidenceSealed, base.Add(time.Minute))
	ingested := newEvent(tenantID, evidenceID, audit.ActionEvidenceIngested, base)
	s.Require().NoError(s.store.Append(ctx, sealed))
	s.Require().NoError(s.store.Append(ctx, ingested))

	events, err := s.store.ListByEvidence(ctx, tenantID, evidenceID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionEvidenceIngested, events[0].Action)
	s.Equal(audit.ActionEvidenceSealed, events[1].Action)
}

func (s *AuditPostgresSuite) TestTrailIsTenantScoped() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	evidenceID := id.NewEvidenceID()
	s.Require().NoError(s.store.Append(ctx, newEvent(tenantID, evidenceID, audit.ActionEvidenceIngested, time.Now())))

	events, err := s.store.ListByEvidence(ctx, id.TenantID(uuid.New()), evidenceID)
	s.Require().NoError(err)
	s.Empty(events)
}
