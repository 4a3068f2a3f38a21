package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"xs2acms/internal/audit"
	"xs2acms/internal/consent/models"
	"xs2acms/internal/consent/service/mocks"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/sentinel"
	"xs2acms/pkg/requestcontext"
)

type mockDeps struct {
	consents *mocks.MockStore
	auths    *mocks.MockAuthorisationStore
	auditor  *mocks.MockAuditPublisher
	service  *Service
	consent  *models.Consent
	ctx      context.Context
}

func newMockDeps(t *testing.T) *mockDeps {
	ctrl := gomock.NewController(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c, err := models.NewConsent(id.NewConsentID(), testInstance, "tpp-1", models.ConsentTypeAIS, now.AddDate(0, 1, 0), now)
	require.NoError(t, err)

	d := &mockDeps{
		consents: mocks.NewMockStore(ctrl),
		auths:    mocks.NewMockAuthorisationStore(ctrl),
		auditor:  mocks.NewMockAuditPublisher(ctrl),
		consent:  c,
		ctx:      requestcontext.WithTime(context.Background(), now.Add(time.Minute)),
	}
	stores := Stores{Consents: d.consents, Authorisations: d.auths}
	d.service = NewService(stores, NewInMemoryTx(stores),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(d.auditor))
	return d
}

// fresh hands out a new copy per load, as a real store would.
func (d *mockDeps) fresh(context.Context, id.InstanceID, id.ConsentID) (*models.Consent, error) {
	return d.consent.Clone(), nil
}

func TestRunInTx_RetriesOnceOnConflict(t *testing.T) {
	d := newMockDeps(t)

	d.consents.EXPECT().FindByID(gomock.Any(), testInstance, d.consent.ID).DoAndReturn(d.fresh).Times(2)
	gomock.InOrder(
		d.consents.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
		d.consents.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *models.Consent) error {
			assert.Equal(t, models.StatusRejected, c.Status)
			return nil
		}),
	)
	d.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		assert.Equal(t, audit.ActionConsentStatusChanged, e.Action)
		assert.Equal(t, string(models.StatusRejected), e.NewStatus)
		return nil
	}).Times(1)

	ok, err := d.service.Reject(d.ctx, testInstance, d.consent.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunInTx_SecondConflictSurfaces(t *testing.T) {
	d := newMockDeps(t)

	d.consents.EXPECT().FindByID(gomock.Any(), testInstance, d.consent.ID).DoAndReturn(d.fresh).Times(2)
	d.consents.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(2)
	d.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(0)

	ok, err := d.service.Reject(d.ctx, testInstance, d.consent.ID)
	assert.False(t, ok)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConcurrentModification))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestRunInTx_StoreFailure(t *testing.T) {
	t.Run("load", func(t *testing.T) {
		d := newMockDeps(t)
		d.consents.EXPECT().FindByID(gomock.Any(), testInstance, d.consent.ID).Return(nil, errors.New("connection reset")).Times(1)

		ok, err := d.service.Confirm(d.ctx, testInstance, d.consent.ID)
		assert.False(t, ok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("save", func(t *testing.T) {
		d := newMockDeps(t)
		d.consents.EXPECT().FindByID(gomock.Any(), testInstance, d.consent.ID).DoAndReturn(d.fresh).Times(1)
		d.consents.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(1)
		d.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(0)

		ok, err := d.service.Reject(d.ctx, testInstance, d.consent.ID)
		assert.False(t, ok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestRunInTx_NotFound(t *testing.T) {
	d := newMockDeps(t)
	d.consents.EXPECT().FindByID(gomock.Any(), testInstance, d.consent.ID).Return(nil, sentinel.ErrNotFound)

	ok, err := d.service.Revoke(d.ctx, testInstance, d.consent.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunInTx_AuditFailureDoesNotFailTheCommit(t *testing.T) {
	d := newMockDeps(t)
	d.consents.EXPECT().FindByID(gomock.Any(), testInstance, d.consent.ID).DoAndReturn(d.fresh)
	d.consents.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	d.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	ok, err := d.service.Reject(d.ctx, testInstance, d.consent.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunInTx_CancelledContext(t *testing.T) {
	d := newMockDeps(t)
	ctx, cancel := context.WithCancel(d.ctx)
	cancel()

	_, err := d.service.Reject(ctx, testInstance, d.consent.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}
