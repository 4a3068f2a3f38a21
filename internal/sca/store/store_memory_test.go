package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
	"xs2acms/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newAuth(parentID uuid.UUID, created time.Duration) *models.Authorisation {
	expires := s.now.Add(time.Hour)
	return &models.Authorisation{
		ID:         id.NewAuthorisationID(),
		InstanceID: "bank-a",
		ParentID:   parentID,
		ParentType: models.ParentConsent,
		Type:       models.AuthorisationTypeCreation,
		ScaStatus:  models.ScaStatusReceived,
		ExpiresAt:  &expires,
		CreatedAt:  s.now.Add(created),
	}
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	auth := s.newAuth(uuid.New(), 0)
	s.Require().NoError(s.store.Create(s.ctx, auth))
	s.Equal(int64(1), auth.Version)

	found, err := s.store.FindByID(s.ctx, "bank-a", auth.ID)
	s.Require().NoError(err)
	s.Equal(auth.ID, found.ID)

	s.Run("other instance cannot see it", func() {
		_, err := s.store.FindByID(s.ctx, "bank-b", auth.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate create conflicts", func() {
		s.ErrorIs(s.store.Create(s.ctx, auth), sentinel.ErrConflict)
	})
}

// TestSave_OptimisticVersion verifies a stale copy cannot overwrite a newer one.
func (s *InMemoryStoreSuite) TestSave_OptimisticVersion() {
	auth := s.newAuth(uuid.New(), 0)
	s.Require().NoError(s.store.Create(s.ctx, auth))

	first, err := s.store.FindByID(s.ctx, "bank-a", auth.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(s.ctx, "bank-a", auth.ID)
	s.Require().NoError(err)

	first.ScaStatus = models.ScaStatusStarted
	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Equal(int64(2), first.Version)

	second.ScaStatus = models.ScaStatusFailed
	s.ErrorIs(s.store.Save(s.ctx, second), sentinel.ErrConflict)

	stored, err := s.store.FindByID(s.ctx, "bank-a", auth.ID)
	s.Require().NoError(err)
	s.Equal(models.ScaStatusStarted, stored.ScaStatus)
}

func (s *InMemoryStoreSuite) TestSave_ConcurrentWritersOneWins() {
	auth := s.newAuth(uuid.New(), 0)
	s.Require().NoError(s.store.Create(s.ctx, auth))

	result := testutil.RunConcurrent(10, func(int) error {
		cp := auth.Clone()
		cp.ScaStatus = models.ScaStatusStarted
		return s.store.Save(s.ctx, cp)
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.Conflicts)
}

func (s *InMemoryStoreSuite) TestListByParent_OrderedByCreation() {
	parent := uuid.New()
	later := s.newAuth(parent, time.Minute)
	earlier := s.newAuth(parent, 0)
	s.Require().NoError(s.store.Create(s.ctx, later))
	s.Require().NoError(s.store.Create(s.ctx, earlier))
	s.Require().NoError(s.store.Create(s.ctx, s.newAuth(uuid.New(), 0)))

	list, err := s.store.ListByParent(s.ctx, "bank-a", models.ParentConsent, parent)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(earlier.ID, list[0].ID)
	s.Equal(later.ID, list[1].ID)

	none, err := s.store.ListByParent(s.ctx, "bank-a", models.ParentPayment, parent)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *InMemoryStoreSuite) TestListByParent_EqualTimestampsKeepInsertionOrder() {
	parent := uuid.New()
	var want []id.AuthorisationID
	for range 5 {
		a := s.newAuth(parent, 0)
		s.Require().NoError(s.store.Create(s.ctx, a))
		want = append(want, a.ID)
	}

	list, err := s.store.ListByParent(s.ctx, "bank-a", models.ParentConsent, parent)
	s.Require().NoError(err)
	got := make([]id.AuthorisationID, 0, len(list))
	for _, a := range list {
		got = append(got, a.ID)
	}
	s.Equal(want, got)
}

func (s *InMemoryStoreSuite) TestListExpired() {
	open := s.newAuth(uuid.New(), 0)
	done := s.newAuth(uuid.New(), 0)
	done.ScaStatus = models.ScaStatusFinalised
	s.Require().NoError(s.store.Create(s.ctx, open))
	s.Require().NoError(s.store.Create(s.ctx, done))

	expired, err := s.store.ListExpired(s.ctx, s.now.Add(2*time.Hour), 0)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal(open.ID, expired[0].ID)

	notYet, err := s.store.ListExpired(s.ctx, s.now, 0)
	s.Require().NoError(err)
	s.Empty(notYet)
}
