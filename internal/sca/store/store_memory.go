package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/sca/expiry"
	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

// InMemoryStore keeps authorisations in process memory.
// Used by tests and single-node deployments without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[id.AuthorisationID]*models.Authorisation
	byParent map[string][]id.AuthorisationID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[id.AuthorisationID]*models.Authorisation),
		byParent: make(map[string][]id.AuthorisationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, auth *models.Authorisation) error {
	if auth == nil {
		return fmt.Errorf("authorisation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[auth.ID]; exists {
		return sentinel.ErrConflict
	}
	auth.Version = 1
	s.byID[auth.ID] = auth.Clone()
	key := parentKey(auth.InstanceID, auth.ParentType, auth.ParentID.String())
	s.byParent[key] = append(s.byParent[key], auth.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*models.Authorisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auth, ok := s.byID[authID]
	if !ok || auth.InstanceID != instanceID {
		return nil, sentinel.ErrNotFound
	}
	return auth.Clone(), nil
}

// ListByParent returns the parent's authorisations ordered by creation time.
func (s *InMemoryStore) ListByParent(_ context.Context, instanceID id.InstanceID, parentType models.ParentType, parentID uuid.UUID) ([]*models.Authorisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byParent[parentKey(instanceID, parentType, parentID.String())]
	out := make([]*models.Authorisation, 0, len(ids))
	for _, authID := range ids {
		out = append(out, s.byID[authID].Clone())
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) Save(_ context.Context, auth *models.Authorisation) error {
	if auth == nil {
		return fmt.Errorf("authorisation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[auth.ID]
	if !ok || stored.InstanceID != auth.InstanceID {
		return sentinel.ErrNotFound
	}
	if stored.Version != auth.Version {
		return sentinel.ErrConflict
	}
	auth.Version++
	s.byID[auth.ID] = auth.Clone()
	return nil
}

// ListExpired returns open authorisations, across all instances, whose
// authorisation expiration lies before now.
func (s *InMemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]*models.Authorisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Authorisation
	for _, auth := range s.byID {
		if auth.ScaStatus.IsFinalised() || !expiry.IsExpired(auth.ExpiresAt, now) {
			continue
		}
		out = append(out, auth.Clone())
	}
	sortByCreation(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByCreation(auths []*models.Authorisation) {
	slices.SortStableFunc(auths, func(a, b *models.Authorisation) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
}
