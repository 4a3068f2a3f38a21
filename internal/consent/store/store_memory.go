package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"xs2acms/internal/consent/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

// InMemoryStore stores consents in memory for tests and single-node runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[id.ConsentID]*models.Consent
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{consents: make(map[id.ConsentID]*models.Consent)}
}

func (s *InMemoryStore) Create(_ context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.consents[consent.ID]; exists {
		return sentinel.ErrConflict
	}
	consent.Version = 1
	s.consents[consent.ID] = consent.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, instanceID id.InstanceID, consentID id.ConsentID) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	consent, ok := s.consents[consentID]
	if !ok || consent.InstanceID != instanceID {
		return nil, sentinel.ErrNotFound
	}
	return consent.Clone(), nil
}

// Save replaces the stored consent if its version still matches.
func (s *InMemoryStore) Save(_ context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.consents[consent.ID]
	if !ok || stored.InstanceID != consent.InstanceID {
		return sentinel.ErrNotFound
	}
	if stored.Version != consent.Version {
		return sentinel.ErrConflict
	}
	consent.Version++
	s.consents[consent.ID] = consent.Clone()
	return nil
}

func (s *InMemoryStore) ListByTpp(_ context.Context, instanceID id.InstanceID, tppID string) ([]*models.Consent, error) {
	return s.filter(func(c *models.Consent) bool {
		return c.InstanceID == instanceID && c.TppID == tppID
	}, 0), nil
}

func (s *InMemoryStore) ListByPsu(_ context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Consent, error) {
	return s.filter(func(c *models.Consent) bool {
		return c.InstanceID == instanceID && c.HasPsu(psu)
	}, 0), nil
}

// ListExpirable returns open consents, across instances, that the sweeper should close.
func (s *InMemoryStore) ListExpirable(_ context.Context, now, notConfirmedBefore time.Time, limit int) ([]*models.Consent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.filter(func(c *models.Consent) bool {
		return expirable(c, now, notConfirmedBefore)
	}, limit), nil
}

func (s *InMemoryStore) filter(keep func(*models.Consent) bool, limit int) []*models.Consent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Consent
	for _, c := range s.consents {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Consent) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
