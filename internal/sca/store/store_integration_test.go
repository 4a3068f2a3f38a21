//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"xs2acms/internal/consent/service"
	"xs2acms/internal/sca/models"
	"xs2acms/internal/sca/store"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
	"xs2acms/pkg/testutil"
	"xs2acms/pkg/testutil/containers"
)

// storeContract runs the behaviour every authorisation store shares.
type storeContract struct {
	suite.Suite
	store service.AuthorisationStore
	reset func(ctx context.Context) error
	now   time.Time
}

func (s *storeContract) SetupTest() {
	s.Require().NoError(s.reset(context.Background()))
	s.now = time.Now().UTC().Truncate(time.Millisecond)
}

func (s *storeContract) TestCreateFindAcrossInstances() {
	ctx := context.Background()
	auth := testutil.NewAuthorisationBuilder(s.now).WithPsu("anton").Build()
	s.Require().NoError(s.store.Create(ctx, auth))
	s.Equal(int64(1), auth.Version)

	found, err := s.store.FindByID(ctx, testutil.TestInstance, auth.ID)
	s.Require().NoError(err)
	s.Equal(auth.ParentID, found.ParentID)
	s.Require().NotNil(found.PsuData)
	s.Equal("anton", found.PsuData.PsuID)

	_, err = s.store.FindByID(ctx, "bank-b", auth.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Create(ctx, auth), sentinel.ErrConflict)
}

func (s *storeContract) TestListByParentInCreationOrder() {
	ctx := context.Background()
	consentID := id.NewConsentID()
	later := testutil.NewAuthorisationBuilder(s.now.Add(time.Second)).ForConsent(consentID).Build()
	earlier := testutil.NewAuthorisationBuilder(s.now).ForConsent(consentID).Build()
	other := testutil.NewAuthorisationBuilder(s.now).ForPayment(id.PaymentID(consentID)).Build()
	for _, a := range []*models.Authorisation{later, earlier, other} {
		s.Require().NoError(s.store.Create(ctx, a))
	}

	list, err := s.store.ListByParent(ctx, testutil.TestInstance, models.ParentConsent, uuid.UUID(consentID))
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(earlier.ID, list[0].ID)
	s.Equal(later.ID, list[1].ID)

	empty, err := s.store.ListByParent(ctx, testutil.TestInstance, models.ParentConsent, uuid.New())
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *storeContract) TestListByParentKeepsInsertionOrderOnEqualTimestamps() {
	ctx := context.Background()
	consentID := id.NewConsentID()
	first := testutil.NewAuthorisationBuilder(s.now).ForConsent(consentID).WithPsu("anton").Build()
	second := testutil.NewAuthorisationBuilder(s.now).ForConsent(consentID).WithPsu("anton").Build()
	third := testutil.NewAuthorisationBuilder(s.now).ForConsent(consentID).WithPsu("anton").Build()
	for _, a := range []*models.Authorisation{first, second, third} {
		s.Require().NoError(s.store.Create(ctx, a))
	}

	list, err := s.store.ListByParent(ctx, testutil.TestInstance, models.ParentConsent, uuid.UUID(consentID))
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]id.AuthorisationID{first.ID, second.ID, third.ID},
		[]id.AuthorisationID{list[0].ID, list[1].ID, list[2].ID})
}

func (s *storeContract) TestSaveIsOptimistic() {
	ctx := context.Background()
	auth := testutil.NewAuthorisationBuilder(s.now).Build()
	s.Require().NoError(s.store.Create(ctx, auth))

	stale := auth.Clone()
	auth.ScaStatus = models.ScaStatusPsuIdentified
	s.Require().NoError(s.store.Save(ctx, auth))
	s.Equal(int64(2), auth.Version)

	stale.ScaStatus = models.ScaStatusFailed
	s.ErrorIs(s.store.Save(ctx, stale), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, testutil.TestInstance, auth.ID)
	s.Require().NoError(err)
	s.Equal(models.ScaStatusPsuIdentified, found.ScaStatus)

	missing := testutil.NewAuthorisationBuilder(s.now).Build()
	s.ErrorIs(s.store.Save(ctx, missing), sentinel.ErrNotFound)
}

func (s *storeContract) TestListExpiredSkipsFinalised() {
	ctx := context.Background()
	expired := testutil.NewAuthorisationBuilder(s.now).ExpiresAt(s.now.Add(-time.Minute)).Build()
	finalised := testutil.NewAuthorisationBuilder(s.now).ExpiresAt(s.now.Add(-time.Minute)).
		WithStatus(models.ScaStatusFinalised).Build()
	open := testutil.NewAuthorisationBuilder(s.now).ExpiresAt(s.now.Add(time.Hour)).Build()
	for _, a := range []*models.Authorisation{expired, finalised, open} {
		s.Require().NoError(s.store.Create(ctx, a))
	}

	list, err := s.store.ListExpired(ctx, s.now, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(expired.ID, list[0].ID)

	expired.ScaStatus = models.ScaStatusFailed
	s.Require().NoError(s.store.Save(ctx, expired))
	list, err = s.store.ListExpired(ctx, s.now, 10)
	s.Require().NoError(err)
	s.Empty(list)
}

type PostgresAuthorisationStoreSuite struct {
	storeContract
}

func TestPostgresAuthorisationStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuthorisationStoreSuite))
}

func (s *PostgresAuthorisationStoreSuite) SetupSuite() {
	pg := containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(pg.DB)
	s.reset = pg.TruncateModuleTables
}

type RedisAuthorisationStoreSuite struct {
	storeContract
}

func TestRedisAuthorisationStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAuthorisationStoreSuite))
}

func (s *RedisAuthorisationStoreSuite) SetupSuite() {
	rc := containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(rc.Client)
	s.reset = rc.Flush
}
