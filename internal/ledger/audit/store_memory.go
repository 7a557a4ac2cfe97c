package audit

import (
	"context"
	"sync"

	id "sigillum/pkg/domain"
)

// InMemoryStore keeps audit events in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByEvidence(_ context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.TenantID == tenantID && e.EvidenceID != nil && *e.EvidenceID == evidenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountByEvidence(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (int, error) {
	events, err := s.ListByEvidence(ctx, tenantID, evidenceID)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// All returns every stored event, oldest first. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}
