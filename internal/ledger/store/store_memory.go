package store

import (
	"context"
	"sync"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
)

type recordKey struct {
	tenant   id.TenantID
	evidence id.EvidenceID
}

// InMemoryStore keeps evidence records in memory for tests and local runs.
// A single mutex serializes state changes, which gives the same
// at-most-one-winner guarantee the Postgres guards provide.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*ledger.Evidence
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[recordKey]*ledger.Evidence)}
}

func (s *InMemoryStore) Create(_ context.Context, e *ledger.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: e.TenantID, evidence: e.EvidenceID}
	if _, exists := s.records[key]; exists {
		return sentinel.ErrConflict
	}
	s.records[key] = cloneEvidence(e)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*ledger.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[recordKey{tenant: tenantID, evidence: evidenceID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvidence(e), nil
}

func (s *InMemoryStore) FilterByTenantAndState(_ context.Context, tenantID id.TenantID, st state.State) ([]*ledger.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ledger.Evidence
	for key, e := range s.records {
		if key.tenant == tenantID && e.LedgerState == st {
			out = append(out, cloneEvidence(e))
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateDeclared(_ context.Context, e *ledger.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: e.TenantID, evidence: e.EvidenceID}
	existing, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.LedgerState != state.Ingested {
		return sentinel.ErrSealed
	}
	updated := cloneEvidence(existing)
	updated.IngestionMethod = e.IngestionMethod
	updated.SourceSystem = e.SourceSystem
	updated.DatasetType = e.DatasetType
	updated.DeclaredScope = e.DeclaredScope
	updated.DeclaredIntent = e.DeclaredIntent
	updated.PurposeTags = append([]string{}, e.PurposeTags...)
	updated.RetentionPolicy = e.RetentionPolicy
	updated.PersonalDataPresent = e.PersonalDataPresent
	updated.RetentionEndDate = e.RetentionEndDate
	updated.Payload = append([]byte{}, e.Payload...)
	updated.ReviewStatus = e.ReviewStatus
	updated.UpdatedAtUTC = e.UpdatedAtUTC
	s.records[key] = updated
	return nil
}

func (s *InMemoryStore) UpdateReviewStatus(_ context.Context, e *ledger.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: e.TenantID, evidence: e.EvidenceID}
	existing, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := cloneEvidence(existing)
	updated.ReviewStatus = e.ReviewStatus
	updated.UpdatedAtUTC = e.UpdatedAtUTC
	s.records[key] = updated
	return nil
}

func (s *InMemoryStore) Seal(_ context.Context, e *ledger.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: e.TenantID, evidence: e.EvidenceID}
	existing, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.LedgerState == state.Sealed {
		return sentinel.ErrSealed
	}
	if existing.LedgerState != state.Ingested {
		return sentinel.ErrInvalidState
	}
	s.records[key] = cloneEvidence(e)
	return nil
}

func (s *InMemoryStore) Supersede(_ context.Context, tenantID id.TenantID, oldID, newID id.EvidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[recordKey{tenant: tenantID, evidence: oldID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.LedgerState != state.Sealed {
		return sentinel.ErrInvalidState
	}
	e.LedgerState = state.Superseded
	e.SupersededByEvidenceID = &newID
	return nil
}

func (s *InMemoryStore) Quarantine(_ context.Context, e *ledger.Evidence) error {
	return s.replaceIfState(e, state.Sealed)
}

func (s *InMemoryStore) ReleaseQuarantine(_ context.Context, e *ledger.Evidence) error {
	return s.replaceIfState(e, state.Quarantined)
}

func (s *InMemoryStore) replaceIfState(e *ledger.Evidence, expected state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: e.TenantID, evidence: e.EvidenceID}
	existing, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.LedgerState != expected {
		return sentinel.ErrInvalidState
	}
	s.records[key] = cloneEvidence(e)
	return nil
}

func (s *InMemoryStore) ForceMigrate(_ context.Context, tenantID id.TenantID, evidenceID id.EvidenceID, expectedState string, target state.State, reasonCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[recordKey{tenant: tenantID, evidence: evidenceID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	if string(e.LedgerState) != expectedState {
		// The record moved since the scan; reconciliation skips it.
		return sentinel.ErrInvalidState
	}
	e.OriginalState = expectedState
	e.LedgerState = target
	e.ReviewStatus = reasonCode
	return nil
}

func (s *InMemoryStore) ScanAll(_ context.Context) ([]*ledger.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ledger.Evidence, 0, len(s.records))
	for _, e := range s.records {
		out = append(out, cloneEvidence(e))
	}
	return out, nil
}

// Put force-inserts a record regardless of state. Test helper for staging
// legacy and corrupt states reconciliation must repair.
func (s *InMemoryStore) Put(e *ledger.Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{tenant: e.TenantID, evidence: e.EvidenceID}] = cloneEvidence(e)
}

func cloneEvidence(e *ledger.Evidence) *ledger.Evidence {
	c := *e
	c.PurposeTags = append([]string{}, e.PurposeTags...)
	c.Payload = append([]byte{}, e.Payload...)
	if e.RetentionEndDate != nil {
		t := *e.RetentionEndDate
		c.RetentionEndDate = &t
	}
	if e.SealedAtUTC != nil {
		t := *e.SealedAtUTC
		c.SealedAtUTC = &t
	}
	if e.QuarantineCreatedAtUTC != nil {
		t := *e.QuarantineCreatedAtUTC
		c.QuarantineCreatedAtUTC = &t
	}
	if e.SupersedesEvidenceID != nil {
		v := *e.SupersedesEvidenceID
		c.SupersedesEvidenceID = &v
	}
	if e.SupersededByEvidenceID != nil {
		v := *e.SupersededByEvidenceID
		c.SupersededByEvidenceID = &v
	}
	return &c
}
