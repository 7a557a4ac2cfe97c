//go:build integration

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/idempotency"
	"sigillum/internal/ledger/service"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	txcontext "sigillum/pkg/platform/tx"
	"sigillum/pkg/testutil"
	"sigillum/pkg/testutil/containers"

	evidencestore "sigillum/internal/ledger/store"
)

// Full seal pipeline against real Postgres: the draft, evidence, audit and
// command-record writes must land in one transaction.
type SealPipelinePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	audits   *audit.PostgresStore
	service  *service.Service
}

func TestSealPipelinePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SealPipelinePostgresSuite))
}

func (s *SealPipelinePostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.audits = audit.NewPostgres(s.postgres.DB)
	s.service = service.New(
		evidencestore.NewPostgres(s.postgres.DB),
		draft.NewPostgres(s.postgres.DB),
		audit.NewWriter(s.audits),
		idempotency.NewGuard(idempotency.NewPostgresStore(s.postgres.DB), nil),
		txcontext.NewSQLRunner(s.postgres.DB),
		nil, nil, nil,
	)
}

func (s *SealPipelinePostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"draft_attachments", "drafts", "audit_events", "outbox", "command_records", "evidence"))
}

func (s *SealPipelinePostgresSuite) sealOne(ctx context.Context, commandID string) *service.SealResult {
	d, err := s.service.CreateDraft(ctx, draft.Declaration{
		IngestionMethod: "api_upload",
		SourceSystem:    "core-banking",
		DatasetType:     "transactions",
		DeclaredScope:   "q3-report",
	})
	s.Require().NoError(err)

	_, err = s.service.SetPayload(ctx, d.DraftID, `{"rows":12}`)
	s.Require().NoError(err)
	_, err = s.service.MarkReady(ctx, d.DraftID)
	s.Require().NoError(err)

	result, err := s.service.Seal(ctx, d.DraftID, commandID)
	s.Require().NoError(err)
	return result
}

func (s *SealPipelinePostgresSuite) TestSealCommitsAtomically() {
	ctx := testutil.NewTenantContext(context.Background())

	result := s.sealOne(ctx, "cmd-1")
	s.False(result.Replayed)
	s.Equal(state.Sealed, result.Evidence.LedgerState)
	s.NotEmpty(result.Evidence.PayloadHashSHA256)

	trail, err := s.service.GetTrail(ctx, result.Evidence.EvidenceID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(audit.ActionEvidenceIngested, trail[0].Action)
	s.Equal(audit.ActionEvidenceSealed, trail[1].Action)

	// Both audit events produced outbox rows in the same commit.
	var outboxCount int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM outbox WHERE aggregate_id = $1`,
		result.Evidence.EvidenceID.String()).Scan(&outboxCount)
	s.Require().NoError(err)
	s.Equal(2, outboxCount)
}

func (s *SealPipelinePostgresSuite) TestSealReplaySameCommand() {
	ctx := testutil.NewTenantContext(context.Background())

	first := s.sealOne(ctx, "cmd-1")

	// Replaying the same command against the consumed draft returns the
	// original outcome instead of failing on DRAFT_SEALED.
	draftID := firstDraftID(s, ctx, first.Evidence.EvidenceID)
	replay, err := s.service.Seal(ctx, draftID, "cmd-1")
	s.Require().NoError(err)
	s.True(replay.Replayed)
	s.Equal(first.Evidence.EvidenceID, replay.Evidence.EvidenceID)

	// A different command id on the consumed draft still answers with the
	// existing record; sealing never reruns for a draft already sealed.
	retry, err := s.service.Seal(ctx, draftID, "cmd-2")
	s.Require().NoError(err)
	s.True(retry.Replayed)
	s.Equal(first.Evidence.EvidenceID, retry.Evidence.EvidenceID)

	var evidenceCount int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM evidence`).Scan(&evidenceCount)
	s.Require().NoError(err)
	s.Equal(1, evidenceCount)
}

func (s *SealPipelinePostgresSuite) TestConcurrentSealsSameCommand() {
	ctx := testutil.NewTenantContext(context.Background())

	d, err := s.service.CreateDraft(ctx, draft.Declaration{
		IngestionMethod: "api_upload",
		SourceSystem:    "core-banking",
		DatasetType:     "transactions",
		DeclaredScope:   "q3-report",
	})
	s.Require().NoError(err)
	_, err = s.service.SetPayload(ctx, d.DraftID, `{"rows":12}`)
	s.Require().NoError(err)
	_, err = s.service.MarkReady(ctx, d.DraftID)
	s.Require().NoError(err)

	// Both submissions race on the command-record uniqueness constraint; the
	// loser must surface the winner's outcome, never a second record.
	results := make([]*service.SealResult, 2)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			res, err := s.service.Seal(ctx, d.DraftID, "cmd-race")
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.Equal(results[0].Evidence.EvidenceID, results[1].Evidence.EvidenceID)
	s.NotEqual(results[0].Replayed, results[1].Replayed)

	var evidenceCount int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM evidence`).Scan(&evidenceCount)
	s.Require().NoError(err)
	s.Equal(1, evidenceCount)

	var commandCount int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM command_records`).Scan(&commandCount)
	s.Require().NoError(err)
	s.Equal(1, commandCount)

	trail, err := s.service.GetTrail(ctx, results[0].Evidence.EvidenceID)
	s.Require().NoError(err)
	s.Len(trail, 2)
}

func (s *SealPipelinePostgresSuite) TestSealRecordsActorAndFrozenTime() {
	tenantID := id.TenantID(uuid.New())
	userID := id.UserID(uuid.New())
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ctx := testutil.FrozenClock(
		testutil.TenantContext(context.Background(), tenantID, userID, "compliance_officer"), at)

	sealed := s.sealOne(ctx, "cmd-frozen")
	s.Equal(userID, sealed.Evidence.CreatedBy)
	s.Require().NotNil(sealed.Evidence.SealedAtUTC)
	s.True(sealed.Evidence.SealedAtUTC.Equal(at))
	s.True(sealed.Evidence.CreatedAtUTC.Equal(at))
}

func (s *SealPipelinePostgresSuite) TestImmutabilityGateAuditsRejection() {
	ctx := testutil.NewTenantContext(context.Background())
	sealed := s.sealOne(ctx, "cmd-1")

	intent := "rewritten"
	_, err := s.service.UpdateEvidence(ctx, sealed.Evidence.EvidenceID, service.DeclaredUpdate{
		DeclaredIntent: &intent,
	})
	s.Require().Error(err)
	s.Equal("SEALED_IMMUTABLE", dErrors.ReasonOf(err))

	// The violation event committed even though the mutation was rejected.
	trail, err := s.service.GetTrail(ctx, sealed.Evidence.EvidenceID)
	s.Require().NoError(err)
	s.Require().Len(trail, 3)
	s.Equal(audit.ActionPolicyViolation, trail[2].Action)
}

func (s *SealPipelinePostgresSuite) TestTenantsCannotSeeEachOther() {
	ctxA := testutil.NewTenantContext(context.Background())
	ctxB := testutil.NewTenantContext(context.Background())

	sealed := s.sealOne(ctxA, "cmd-1")

	_, err := s.service.GetEvidence(ctxB, sealed.Evidence.EvidenceID)
	s.Require().Error(err)
	s.Equal("NOT_FOUND", dErrors.ReasonOf(err))
}

// firstDraftID finds the draft consumed by the given evidence record.
func firstDraftID(s *SealPipelinePostgresSuite, ctx context.Context, evidenceID id.EvidenceID) id.DraftID {
	var raw string
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT id FROM drafts WHERE sealed_evidence_id = $1`, evidenceID.String()).Scan(&raw)
	s.Require().NoError(err)
	draftID, err := id.ParseDraftID(raw)
	s.Require().NoError(err)
	return draftID
}
