package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sigillum/pkg/domain-errors"
)

func TestTransitionTable(t *testing.T) {
	legal := []struct{ from, to State }{
		{Ingested, Sealed},
		{Ingested, Rejected},
		{Ingested, Failed},
		{Sealed, Superseded},
		{Sealed, Quarantined},
		{Quarantined, Sealed},
	}
	for _, tc := range legal {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			require.NoError(t, Transition(tc.from, tc.to))
		})
	}

	illegal := []struct{ from, to State }{
		{Sealed, Ingested},
		{Sealed, Rejected},
		{Rejected, Sealed},
		{Failed, Sealed},
		{Superseded, Sealed},
		{Quarantined, Ingested},
		{Quarantined, Superseded},
		{Ingested, Quarantined},
		{Ingested, Superseded},
	}
	for _, tc := range illegal {
		t.Run(string(tc.from)+"_to_"+string(tc.to)+"_rejected", func(t *testing.T) {
			err := Transition(tc.from, tc.to)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
			assert.Equal(t, ReasonInvalidTransition, dErrors.ReasonOf(err))
		})
	}
}

func TestNonContractStateIsNeverSilentlyAccepted(t *testing.T) {
	// Legacy values produced by earlier contract versions.
	for _, legacy := range []State{"RAW", "CLASSIFIED", "STRUCTURED", ""} {
		err := Transition(legacy, Sealed)
		require.Error(t, err)
		assert.Equal(t, ReasonInvalidTransition, dErrors.ReasonOf(err))
		assert.False(t, legacy.Valid())
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, Rejected.Terminal())
	assert.True(t, Failed.Terminal())
	assert.True(t, Superseded.Terminal())
	assert.False(t, Sealed.Terminal())
	assert.False(t, Ingested.Terminal())
	assert.False(t, Quarantined.Terminal())
}
