package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

// InMemoryStore stores payments in memory for tests and single-node runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*models.Payment
}

// New constructs an empty in-memory payment store.
func New() *InMemoryStore {
	return &InMemoryStore{payments: make(map[id.PaymentID]*models.Payment)}
}

func (s *InMemoryStore) Create(_ context.Context, payment *models.Payment) error {
	if payment == nil {
		return fmt.Errorf("payment is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.ID]; exists {
		return sentinel.ErrConflict
	}
	payment.Version = 1
	s.payments[payment.ID] = payment.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, instanceID id.InstanceID, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payment, ok := s.payments[paymentID]
	if !ok || payment.InstanceID != instanceID {
		return nil, sentinel.ErrNotFound
	}
	return payment.Clone(), nil
}

// Save replaces the stored payment if its version still matches.
func (s *InMemoryStore) Save(_ context.Context, payment *models.Payment) error {
	if payment == nil {
		return fmt.Errorf("payment is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payments[payment.ID]
	if !ok || stored.InstanceID != payment.InstanceID {
		return sentinel.ErrNotFound
	}
	if stored.Version != payment.Version {
		return sentinel.ErrConflict
	}
	payment.Version++
	s.payments[payment.ID] = payment.Clone()
	return nil
}

func (s *InMemoryStore) ListByPsu(_ context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Payment, error) {
	return s.filter(func(p *models.Payment) bool {
		return p.InstanceID == instanceID && p.HasPsu(psu)
	}, 0), nil
}

// ListExpirable returns payments, across instances, still waiting for SCA
// that were created before notConfirmedBefore.
func (s *InMemoryStore) ListExpirable(_ context.Context, notConfirmedBefore time.Time, limit int) ([]*models.Payment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.filter(func(p *models.Payment) bool {
		return expirable(p, notConfirmedBefore)
	}, limit), nil
}

func (s *InMemoryStore) filter(keep func(*models.Payment) bool, limit int) []*models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Payment
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Payment) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
