package idempotency

import (
	"context"
	"fmt"
	"sync"

	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func memKey(tenantID id.TenantID, aggregateID, commandID string) string {
	return fmt.Sprintf("%s/%s/%s", tenantID, aggregateID, commandID)
}

func (s *InMemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(rec.TenantID, rec.AggregateID, rec.CommandID)
	if _, exists := s.records[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.records[key] = rec
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, tenantID id.TenantID, aggregateID, commandID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[memKey(tenantID, aggregateID, commandID)]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}
