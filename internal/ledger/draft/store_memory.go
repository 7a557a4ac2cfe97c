package draft

import (
	"context"
	"sync"

	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
)

type draftKey struct {
	tenant id.TenantID
	draft  id.DraftID
}

// InMemoryStore keeps drafts in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	drafts map[draftKey]*Draft
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{drafts: make(map[draftKey]*Draft)}
}

func (s *InMemoryStore) Create(_ context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := draftKey{tenant: d.TenantID, draft: d.DraftID}
	if _, exists := s.drafts[key]; exists {
		return sentinel.ErrConflict
	}
	s.drafts[key] = cloneDraft(d)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, draftID id.DraftID) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[draftKey{tenant: tenantID, draft: draftID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDraft(d), nil
}

func (s *InMemoryStore) Update(_ context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := draftKey{tenant: d.TenantID, draft: d.DraftID}
	existing, ok := s.drafts[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Status == StatusSealed {
		return sentinel.ErrSealed
	}
	s.drafts[key] = cloneDraft(d)
	return nil
}

func (s *InMemoryStore) MarkSealed(_ context.Context, tenantID id.TenantID, draftID id.DraftID, evidenceID id.EvidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[draftKey{tenant: tenantID, draft: draftID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	if d.Status == StatusSealed {
		if d.SealedEvidenceID != nil && *d.SealedEvidenceID == evidenceID {
			return nil
		}
		return sentinel.ErrSealed
	}
	d.Status = StatusSealed
	d.SealedEvidenceID = &evidenceID
	return nil
}

func cloneDraft(d *Draft) *Draft {
	c := *d
	c.Attachments = append([]Attachment{}, d.Attachments...)
	c.Declaration.PurposeTags = append([]string{}, d.Declaration.PurposeTags...)
	if d.SealedEvidenceID != nil {
		eid := *d.SealedEvidenceID
		c.SealedEvidenceID = &eid
	}
	return &c
}
