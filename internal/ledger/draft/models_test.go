package draft

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
)

func validDeclaration() Declaration {
	return Declaration{
		IngestionMethod: "api_upload",
		SourceSystem:    "core-banking",
		DatasetType:     "transactions",
		DeclaredScope:   "q3-report",
	}
}

func TestNewDraft(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	userID := id.UserID(uuid.New())
	now := time.Now()

	t.Run("valid declaration produces a DRAFT", func(t *testing.T) {
		d, err := New(tenantID, userID, validDeclaration(), now)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, d.Status)
		assert.False(t, d.DraftID.IsNil())
		assert.NotEmpty(t, d.CorrelationID)
		assert.Equal(t, tenantID, d.TenantID)
	})

	t.Run("missing binding fields are rejected", func(t *testing.T) {
		decl := validDeclaration()
		decl.DatasetType = ""
		_, err := New(tenantID, userID, decl, now)
		require.Error(t, err)
		assert.Equal(t, "BINDING_FIELDS_REQUIRED", dErrors.ReasonOf(err))
	})

	t.Run("unresolved scope requires a substantive quarantine reason", func(t *testing.T) {
		decl := validDeclaration()
		decl.DeclaredScope = "UNKNOWN"
		decl.QuarantineReason = "too short"
		_, err := New(tenantID, userID, decl, now)
		require.Error(t, err)
		assert.Equal(t, "QUARANTINE_REASON_REQUIRED", dErrors.ReasonOf(err))
	})

	t.Run("unresolved scope requires a resolution deadline", func(t *testing.T) {
		decl := validDeclaration()
		decl.DeclaredScope = "unlinked"
		decl.QuarantineReason = strings.Repeat("x", MinQuarantineReasonLen)
		_, err := New(tenantID, userID, decl, now)
		require.Error(t, err)
		assert.Equal(t, "INVALID_RESOLUTION_DEADLINE", dErrors.ReasonOf(err))
	})

	t.Run("resolution deadline outside the window is rejected", func(t *testing.T) {
		decl := validDeclaration()
		decl.DeclaredScope = "UNKNOWN"
		decl.QuarantineReason = strings.Repeat("x", MinQuarantineReasonLen)

		tooSoon := now.Add(time.Hour)
		decl.ResolutionDeadline = &tooSoon
		_, err := New(tenantID, userID, decl, now)
		require.Error(t, err)
		assert.Equal(t, "INVALID_RESOLUTION_DEADLINE", dErrors.ReasonOf(err))

		tooLate := now.Add(91 * 24 * time.Hour)
		decl.ResolutionDeadline = &tooLate
		_, err = New(tenantID, userID, decl, now)
		require.Error(t, err)
		assert.Equal(t, "INVALID_RESOLUTION_DEADLINE", dErrors.ReasonOf(err))
	})

	t.Run("unresolved scope with full justification is accepted", func(t *testing.T) {
		decl := validDeclaration()
		decl.DeclaredScope = "UNKNOWN"
		decl.QuarantineReason = strings.Repeat("x", MinQuarantineReasonLen)
		deadline := now.Add(7 * 24 * time.Hour)
		decl.ResolutionDeadline = &deadline
		d, err := New(tenantID, userID, decl, now)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, d.Status)
	})
}

func TestScopeUnresolved(t *testing.T) {
	assert.True(t, ScopeUnresolved("UNKNOWN"))
	assert.True(t, ScopeUnresolved(" unlinked "))
	assert.True(t, ScopeUnresolved(""))
	assert.False(t, ScopeUnresolved("q3-report"))
}

func TestCombinedPayload(t *testing.T) {
	t.Run("raw payload wins over attachments", func(t *testing.T) {
		d := &Draft{
			RawPayload: "raw",
			Attachments: []Attachment{
				{Content: []byte("ignored")},
			},
		}
		assert.Equal(t, []byte("raw"), d.CombinedPayload())
	})

	t.Run("attachments concatenate in staging order", func(t *testing.T) {
		d := &Draft{Attachments: []Attachment{
			{Content: []byte("first,")},
			{Content: []byte("second")},
		}}
		assert.Equal(t, []byte("first,second"), d.CombinedPayload())
	})

	t.Run("empty draft has no payload source", func(t *testing.T) {
		d := &Draft{}
		assert.False(t, d.HasPayloadSource())
		assert.Empty(t, d.CombinedPayload())
	})
}
