// Package state defines the canonical ledger state enum and the
// allowed-transition table. There is exactly one state field per record;
// legacy values produced by earlier contract versions are not part of the
// enum and get migrated by reconciliation.
package state

import (
	dErrors "sigillum/pkg/domain-errors"
)

// State is the canonical ledger state of an Evidence record.
type State string

const (
	Ingested    State = "INGESTED"
	Sealed      State = "SEALED"
	Rejected    State = "REJECTED"
	Failed      State = "FAILED"
	Superseded  State = "SUPERSEDED"
	Quarantined State = "QUARANTINED"
)

// ReasonInvalidTransition is the machine-readable reason returned for
// transitions outside the allowed table.
const ReasonInvalidTransition = "INVALID_STATE_TRANSITION"

// allowed is the single source of truth for legal transitions.
var allowed = map[State]map[State]bool{
	Ingested: {
		Sealed:   true, // normal path, requires hashes to be computable
		Rejected: true, // validation failure
		Failed:   true, // processing error
	},
	Sealed: {
		Superseded:  true, // explicit correction workflow only
		Quarantined: true, // administrative flag
	},
	Quarantined: {
		// Release returns to SEALED, the only prior reviewable state; a
		// quarantined record never becomes mutable again.
		Sealed: true,
	},
}

// terminal states admit no outgoing transitions.
var terminal = map[State]bool{
	Rejected:   true,
	Failed:     true,
	Superseded: true,
}

// Valid reports whether s is one of the canonical states.
func (s State) Valid() bool {
	switch s {
	case Ingested, Sealed, Rejected, Failed, Superseded, Quarantined:
		return true
	}
	return false
}

// Terminal reports whether s admits no outgoing transitions.
func (s State) Terminal() bool { return terminal[s] }

// CanTransition reports whether current → target appears in the allowed table.
func CanTransition(current, target State) bool {
	return allowed[current][target]
}

// Transition validates a requested transition. On failure the caller must not
// apply any data change.
func Transition(current, target State) error {
	if !current.Valid() {
		return dErrors.WithReason(dErrors.CodeConflict, ReasonInvalidTransition,
			"record is in a non-contract state "+string(current)+" and must be reconciled")
	}
	if !CanTransition(current, target) {
		return dErrors.WithReason(dErrors.CodeConflict, ReasonInvalidTransition,
			"illegal transition "+string(current)+" -> "+string(target))
	}
	return nil
}
