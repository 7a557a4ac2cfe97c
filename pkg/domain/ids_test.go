package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sigillum/pkg/domain-errors"
)

// Typed ids are a trust boundary: every external identifier passes through a
// Parse helper before it can touch a store or a service.
func TestParseIDInvariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEvidenceID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEvidenceID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil uuid", func(t *testing.T) {
		_, err := ParseTenantID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid uuid", func(t *testing.T) {
		raw := uuid.NewString()

		tenantID, err := ParseTenantID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, tenantID.String())

		draftID, err := ParseDraftID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, draftID.String())

		userID, err := ParseUserID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, userID.String())
	})

	t.Run("rejects uppercase variant inconsistently with canonical form", func(t *testing.T) {
		raw := strings.ToUpper(uuid.NewString())
		evidenceID, err := ParseEvidenceID(raw)
		require.NoError(t, err)
		// uuid.Parse normalizes to lowercase; round trips are canonical.
		assert.Equal(t, strings.ToLower(raw), evidenceID.String())
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, EvidenceID(uuid.Nil).IsNil())
	assert.False(t, NewEvidenceID().IsNil())
	assert.True(t, DraftID(uuid.Nil).IsNil())
	assert.False(t, NewDraftID().IsNil())
}

func TestTypedIDsDoNotCrossAssign(t *testing.T) {
	// Compile-time property, asserted here as documentation: an EvidenceID
	// and a DraftID built from the same uuid still render identically but
	// are distinct types.
	raw := uuid.New()
	assert.Equal(t, EvidenceID(raw).String(), DraftID(raw).String())
}
