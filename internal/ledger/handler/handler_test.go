package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/handler/mocks"
	"sigillum/internal/ledger/service"
	"sigillum/internal/ledger/state"
	"sigillum/internal/platform/middleware"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks

// staticValidator accepts any bearer token and returns fixed claims, so
// handler tests exercise the full middleware chain without minting JWTs.
type staticValidator struct {
	claims middleware.JWTClaims
}

func (v *staticValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	c := v.claims
	return &c, nil
}

type LedgerHandlerSuite struct {
	suite.Suite
	router   chi.Router
	service  *mocks.MockService
	tenantID id.TenantID
	userID   id.UserID
}

func TestLedgerHandlerSuite(t *testing.T) {
	suite.Run(t, new(LedgerHandlerSuite))
}

func (s *LedgerHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.tenantID = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := &staticValidator{claims: middleware.JWTClaims{
		TenantID: s.tenantID.String(),
		UserID:   s.userID.String(),
		Role:     "compliance_officer",
	}}

	s.router = chi.NewRouter()
	New(s.service, logger, validator).Register(s.router)
}

func (s *LedgerHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *LedgerHandlerSuite) decodeError(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// =============================================================================
// Auth Boundary
// =============================================================================

func (s *LedgerHandlerSuite) TestMissingTokenRejected() {
	req := httptest.NewRequest(http.MethodGet, "/ledger/evidence", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// Draft Routes
// =============================================================================

func (s *LedgerHandlerSuite) TestCreateDraft() {
	s.Run("valid declaration creates a draft", func() {
		created := &draft.Draft{DraftID: id.NewDraftID(), TenantID: s.tenantID, Status: draft.StatusDraft}
		s.service.EXPECT().CreateDraft(gomock.Any(), draft.Declaration{
			IngestionMethod: "api_upload",
			SourceSystem:    "erp.acme",
			DatasetType:     "emissions_report",
			DeclaredScope:   "shipment:SH-1",
		}).Return(created, nil)

		rec := s.do(http.MethodPost, "/ledger/drafts", CreateDraftRequest{
			IngestionMethod: "api_upload",
			SourceSystem:    "erp.acme",
			DatasetType:     "emissions_report",
			DeclaredScope:   "shipment:SH-1",
		})
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("validation errors surface the reason code", func() {
		s.service.EXPECT().CreateDraft(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.WithReason(dErrors.CodeBadRequest,
				ledger.ReasonBindingFieldsRequired, "missing binding fields"))

		rec := s.do(http.MethodPost, "/ledger/drafts", CreateDraftRequest{})
		s.Equal(http.StatusBadRequest, rec.Code)
		body := s.decodeError(rec)
		s.Equal(ledger.ReasonBindingFieldsRequired, body["reason"])
		s.NotEmpty(body["request_id"])
	})

	s.Run("malformed body is rejected before the service runs", func() {
		req := httptest.NewRequest(http.MethodPost, "/ledger/drafts", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Authorization", "Bearer test-token")
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *LedgerHandlerSuite) TestSeal() {
	draftID := id.NewDraftID()

	s.Run("fresh seal returns 201", func() {
		s.service.EXPECT().Seal(gomock.Any(), draftID, "cmd-1").
			Return(&service.SealResult{Evidence: &ledger.Evidence{
				EvidenceID:  id.NewEvidenceID(),
				LedgerState: state.Sealed,
			}}, nil)

		rec := s.do(http.MethodPost, "/ledger/drafts/"+draftID.String()+"/seal", SealRequest{CommandID: "cmd-1"})
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("replayed seal returns 200", func() {
		s.service.EXPECT().Seal(gomock.Any(), draftID, "cmd-1").
			Return(&service.SealResult{
				Evidence: &ledger.Evidence{EvidenceID: id.NewEvidenceID(), LedgerState: state.Sealed},
				Replayed: true,
			}, nil)

		rec := s.do(http.MethodPost, "/ledger/drafts/"+draftID.String()+"/seal", SealRequest{CommandID: "cmd-1"})
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("Idempotency-Key header carries the command id for a body-less seal", func() {
		s.service.EXPECT().Seal(gomock.Any(), draftID, "cmd-header").
			Return(&service.SealResult{Evidence: &ledger.Evidence{
				EvidenceID:  id.NewEvidenceID(),
				LedgerState: state.Sealed,
			}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/ledger/drafts/"+draftID.String()+"/seal", nil)
		req.Header.Set("Authorization", "Bearer test-token")
		req.Header.Set("Idempotency-Key", "cmd-header")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("body command id wins over the header", func() {
		s.service.EXPECT().Seal(gomock.Any(), draftID, "cmd-body").
			Return(&service.SealResult{Evidence: &ledger.Evidence{
				EvidenceID:  id.NewEvidenceID(),
				LedgerState: state.Sealed,
			}}, nil)

		raw, err := json.Marshal(SealRequest{CommandID: "cmd-body"})
		s.Require().NoError(err)
		req := httptest.NewRequest(http.MethodPost, "/ledger/drafts/"+draftID.String()+"/seal", bytes.NewReader(raw))
		req.Header.Set("Authorization", "Bearer test-token")
		req.Header.Set("Idempotency-Key", "cmd-header")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("malformed draft id is a uniform 404", func() {
		rec := s.do(http.MethodPost, "/ledger/drafts/not-a-uuid/seal", SealRequest{CommandID: "cmd-1"})
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(ledger.ReasonDraftNotFound, s.decodeError(rec)["reason"])
	})
}

// =============================================================================
// Evidence Routes
// =============================================================================

func (s *LedgerHandlerSuite) TestGetEvidence() {
	s.Run("missing record is a uniform 404", func() {
		evidenceID := id.NewEvidenceID()
		s.service.EXPECT().GetEvidence(gomock.Any(), evidenceID).
			Return(nil, dErrors.WithReason(dErrors.CodeNotFound, ledger.ReasonNotFound, "evidence record not found"))

		rec := s.do(http.MethodGet, "/ledger/evidence/"+evidenceID.String(), nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(ledger.ReasonNotFound, s.decodeError(rec)["reason"])
	})

	s.Run("found record is returned", func() {
		evidenceID := id.NewEvidenceID()
		s.service.EXPECT().GetEvidence(gomock.Any(), evidenceID).
			Return(&ledger.Evidence{EvidenceID: evidenceID, LedgerState: state.Sealed}, nil)

		rec := s.do(http.MethodGet, "/ledger/evidence/"+evidenceID.String(), nil)
		s.Equal(http.StatusOK, rec.Code)

		var e ledger.Evidence
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &e))
		s.Equal(evidenceID, e.EvidenceID)
	})
}

func (s *LedgerHandlerSuite) TestImmutabilityResponses() {
	evidenceID := id.NewEvidenceID()

	s.Run("sealed mutation attempt maps to 409", func() {
		s.service.EXPECT().UpdateEvidence(gomock.Any(), evidenceID, gomock.Any()).
			Return(nil, dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonSealedImmutable,
				"sealed evidence metadata is immutable"))

		intent := "tamper"
		rec := s.do(http.MethodPatch, "/ledger/evidence/"+evidenceID.String(),
			UpdateEvidenceRequest{DeclaredIntent: &intent})
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(ledger.ReasonSealedImmutable, s.decodeError(rec)["reason"])
	})

	s.Run("delete maps to 409 with IMMUTABLE_EVIDENCE", func() {
		s.service.EXPECT().DeleteEvidence(gomock.Any(), evidenceID).
			Return(dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonImmutableEvidence,
				"evidence records cannot be deleted"))

		rec := s.do(http.MethodDelete, "/ledger/evidence/"+evidenceID.String(), nil)
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(ledger.ReasonImmutableEvidence, s.decodeError(rec)["reason"])
	})
}

func (s *LedgerHandlerSuite) TestQuarantineRoutes() {
	evidenceID := id.NewEvidenceID()

	s.Run("short reason maps to 400", func() {
		s.service.EXPECT().Quarantine(gomock.Any(), evidenceID, "too short").
			Return(nil, dErrors.WithReason(dErrors.CodeBadRequest,
				ledger.ReasonQuarantineReasonRequired, "reason too short"))

		rec := s.do(http.MethodPost, "/ledger/evidence/"+evidenceID.String()+"/quarantine",
			QuarantineRequest{Reason: "too short"})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(ledger.ReasonQuarantineReasonRequired, s.decodeError(rec)["reason"])
	})

	s.Run("release returns the sealed record", func() {
		s.service.EXPECT().ReleaseQuarantine(gomock.Any(), evidenceID).
			Return(&ledger.Evidence{EvidenceID: evidenceID, LedgerState: state.Sealed}, nil)

		rec := s.do(http.MethodPost, "/ledger/evidence/"+evidenceID.String()+"/quarantine/release", nil)
		s.Equal(http.StatusOK, rec.Code)
	})
}

func (s *LedgerHandlerSuite) TestVerify() {
	evidenceID := id.NewEvidenceID()
	s.service.EXPECT().Verify(gomock.Any(), evidenceID).
		Return(&service.VerificationResult{
			EvidenceID:        evidenceID,
			PayloadHashMatch:  false,
			MetadataHashMatch: true,
		}, nil)

	rec := s.do(http.MethodGet, "/ledger/evidence/"+evidenceID.String()+"/verify", nil)
	s.Equal(http.StatusOK, rec.Code)

	var res service.VerificationResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
	s.False(res.PayloadHashMatch)
	s.True(res.MetadataHashMatch)
}

// =============================================================================
// Internal Error Shape
// =============================================================================

func (s *LedgerHandlerSuite) TestInternalErrorsOmitDetail() {
	evidenceID := id.NewEvidenceID()
	s.service.EXPECT().GetEvidence(gomock.Any(), evidenceID).
		Return(nil, dErrors.New(dErrors.CodeInternal, "audit write failed: connection refused"))

	rec := s.do(http.MethodGet, "/ledger/evidence/"+evidenceID.String(), nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	body := s.decodeError(rec)
	s.Nil(body["error_description"])
}
