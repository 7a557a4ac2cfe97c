//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/state"
	"sigillum/internal/ledger/store"
	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
	"sigillum/pkg/testutil/containers"
)

type EvidencePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestEvidencePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EvidencePostgresSuite))
}

func (s *EvidencePostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *EvidencePostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "evidence"))
}

func newIngested(tenantID id.TenantID) *ledger.Evidence {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &ledger.Evidence{
		EvidenceID:      id.NewEvidenceID(),
		TenantID:        tenantID,
		LedgerState:     state.Ingested,
		IngestionMethod: "api_upload",
		SourceSystem:    "core-banking",
		DatasetType:     "transactions",
		DeclaredScope:   "q3-report",
		PurposeTags:     []string{"aml"},
		CreatedBy:       id.UserID(uuid.New()),
		Payload:         []byte(`{"rows":12}`),
		CreatedAtUTC:    now,
		UpdatedAtUTC:    now,
	}
}

func (s *EvidencePostgresSuite) seal(e *ledger.Evidence) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	e.PayloadHashSHA256 = "a" + uuid.NewString()[:8]
	e.MetadataHashSHA256 = "b" + uuid.NewString()[:8]
	e.SealedAtUTC = &now
	e.LedgerState = state.Sealed
	e.UpdatedAtUTC = now
	s.Require().NoError(s.store.Seal(context.Background(), e))
}

// ============================================================================
// Create / Get
// ============================================================================

func (s *EvidencePostgresSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))

	got, err := s.store.Get(ctx, e.TenantID, e.EvidenceID)
	s.Require().NoError(err)
	s.Equal(e.EvidenceID, got.EvidenceID)
	s.Equal(state.Ingested, got.LedgerState)
	s.Equal([]string{"aml"}, got.PurposeTags)
	s.Equal([]byte(`{"rows":12}`), got.Payload)
}

func (s *EvidencePostgresSuite) TestCreateDuplicateConflicts() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))
	s.ErrorIs(s.store.Create(ctx, e), sentinel.ErrConflict)
}

func (s *EvidencePostgresSuite) TestCrossTenantReadsAreMisses() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))

	_, err := s.store.Get(ctx, id.TenantID(uuid.New()), e.EvidenceID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// ============================================================================
// Seal guard
// ============================================================================

func (s *EvidencePostgresSuite) TestSealOnlyFromIngested() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))
	s.seal(e)

	got, err := s.store.Get(ctx, e.TenantID, e.EvidenceID)
	s.Require().NoError(err)
	s.Equal(state.Sealed, got.LedgerState)
	s.Equal(e.PayloadHashSHA256, got.PayloadHashSHA256)

	// A second seal attempt loses the state guard.
	s.ErrorIs(s.store.Seal(ctx, e), sentinel.ErrSealed)
}

func (s *EvidencePostgresSuite) TestUpdateDeclaredBlockedAfterSeal() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))
	s.seal(e)

	e.DeclaredScope = "tampered"
	s.ErrorIs(s.store.UpdateDeclared(ctx, e), sentinel.ErrSealed)
}

func (s *EvidencePostgresSuite) TestReviewStatusWritableAfterSeal() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))
	s.seal(e)

	e.ReviewStatus = "REVIEWED"
	e.UpdatedAtUTC = time.Now().UTC()
	s.Require().NoError(s.store.UpdateReviewStatus(ctx, e))

	got, err := s.store.Get(ctx, e.TenantID, e.EvidenceID)
	s.Require().NoError(err)
	s.Equal("REVIEWED", got.ReviewStatus)
}

// ============================================================================
// Supersede / Quarantine
// ============================================================================

func (s *EvidencePostgresSuite) TestSupersedeLinksAndGuards() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	old := newIngested(tenantID)
	s.Require().NoError(s.store.Create(ctx, old))
	s.seal(old)

	replacement := newIngested(tenantID)
	s.Require().NoError(s.store.Create(ctx, replacement))

	s.Require().NoError(s.store.Supersede(ctx, tenantID, old.EvidenceID, replacement.EvidenceID))

	got, err := s.store.Get(ctx, tenantID, old.EvidenceID)
	s.Require().NoError(err)
	s.Equal(state.Superseded, got.LedgerState)
	s.Require().NotNil(got.SupersededByEvidenceID)
	s.Equal(replacement.EvidenceID, *got.SupersededByEvidenceID)

	// A superseded record cannot be superseded again.
	s.ErrorIs(s.store.Supersede(ctx, tenantID, old.EvidenceID, replacement.EvidenceID), sentinel.ErrInvalidState)
}

func (s *EvidencePostgresSuite) TestQuarantineRoundTrip() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))
	s.seal(e)

	now := time.Now().UTC().Truncate(time.Microsecond)
	e.QuarantineReason = "chain of custody gap found during quarterly review"
	e.QuarantinedBy = "auditor-7"
	e.QuarantineCreatedAtUTC = &now
	e.UpdatedAtUTC = now
	s.Require().NoError(s.store.Quarantine(ctx, e))

	got, err := s.store.Get(ctx, e.TenantID, e.EvidenceID)
	s.Require().NoError(err)
	s.Equal(state.Quarantined, got.LedgerState)
	s.Equal("auditor-7", got.QuarantinedBy)

	e.UpdatedAtUTC = time.Now().UTC()
	s.Require().NoError(s.store.ReleaseQuarantine(ctx, e))

	got, err = s.store.Get(ctx, e.TenantID, e.EvidenceID)
	s.Require().NoError(err)
	s.Equal(state.Sealed, got.LedgerState)
	s.Empty(got.QuarantineReason)
	s.Nil(got.QuarantineCreatedAtUTC)

	// Release is only valid from QUARANTINED.
	s.ErrorIs(s.store.ReleaseQuarantine(ctx, e), sentinel.ErrInvalidState)
}

// ============================================================================
// Reconciliation surface
// ============================================================================

func (s *EvidencePostgresSuite) TestForceMigratePreservesOriginalState() {
	ctx := context.Background()
	e := newIngested(id.TenantID(uuid.New()))
	e.LedgerState = state.State("STRUCTURED")
	s.Require().NoError(s.store.Create(ctx, e))

	err := s.store.ForceMigrate(ctx, e.TenantID, e.EvidenceID, "STRUCTURED", state.Rejected, "LEGACY_STATE_MIGRATED")
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, e.TenantID, e.EvidenceID)
	s.Require().NoError(err)
	s.Equal(state.Rejected, got.LedgerState)
	s.Equal("STRUCTURED", got.OriginalState)

	// The expected-state guard makes reruns no-ops.
	err = s.store.ForceMigrate(ctx, e.TenantID, e.EvidenceID, "STRUCTURED", state.Rejected, "LEGACY_STATE_MIGRATED")
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *EvidencePostgresSuite) TestScanAllCrossesTenants() {
	ctx := context.Background()
	a := newIngested(id.TenantID(uuid.New()))
	b := newIngested(id.TenantID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	all, err := s.store.ScanAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *EvidencePostgresSuite) TestFilterByTenantAndState() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	sealed := newIngested(tenantID)
	s.Require().NoError(s.store.Create(ctx, sealed))
	s.seal(sealed)
	s.Require().NoError(s.store.Create(ctx, newIngested(tenantID)))

	got, err := s.store.FilterByTenantAndState(ctx, tenantID, state.Sealed)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(sealed.EvidenceID, got[0].EvidenceID)
}
