package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"xs2acms/internal/audit"
	"xs2acms/internal/consent/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/testutil"
)

func (s *ServiceSuite) TestCreate() {
	s.Run("stores a RECEIVED consent with a checksum", func() {
		c := s.createConsent(false, psu("alice"))

		s.Equal(models.StatusReceived, c.Status)
		s.Equal(int64(1), c.Version)
		s.True(strings.HasPrefix(c.Checksum, "002_"))
		s.Nil(c.ActivatedAt)
		s.Equal([]audit.Action{audit.ActionConsentCreated}, s.actions(c.ID.String()))
	})

	s.Run("consent type is matched case-insensitively", func() {
		req := s.newRequest()
		req.ConsentType = "piis"
		c, err := s.service.Create(s.ctx(), req)
		s.Require().NoError(err)
		s.Equal(models.ConsentTypePIIS, c.ConsentType)
	})

	s.Run("unknown consent type", func() {
		req := s.newRequest()
		req.ConsentType = "LOYALTY"
		_, err := s.service.Create(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing TPP", func() {
		req := s.newRequest()
		req.TppID = "  "
		_, err := s.service.Create(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("validity is capped by the ASPSP maximum", func() {
		stores := Stores{Consents: s.consents, Authorisations: s.auths}
		capped := NewService(stores, NewInMemoryTx(stores),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithMaxValidityDays(30))

		c, err := capped.Create(s.ctx(), s.newRequest())
		s.Require().NoError(err)
		s.Equal(time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC), c.ValidUntil)
	})
}

func (s *ServiceSuite) TestReject_Idempotent() {
	c := s.createConsent(false)

	ok, err := s.service.Reject(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(models.StatusRejected, s.status(c))

	ok, err = s.service.Reject(s.at(time.Minute), testInstance, c.ID)
	s.Require().NoError(err)
	s.True(ok)

	s.Equal([]audit.Action{audit.ActionConsentCreated, audit.ActionConsentStatusChanged}, s.actions(c.ID.String()))
}

func (s *ServiceSuite) TestReject_Concurrent() {
	c := s.createConsent(false)

	result := testutil.RunConcurrent(8, func(int) error {
		_, err := s.service.Reject(s.ctx(), testInstance, c.ID)
		return err
	})

	s.Equal(int32(8), result.Successes)
	s.Equal([]audit.Action{audit.ActionConsentCreated, audit.ActionConsentStatusChanged}, s.actions(c.ID.String()))
}

func (s *ServiceSuite) TestConfirm() {
	s.Run("activates the consent", func() {
		c := s.createConsent(false)
		ok, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)
		s.True(ok)

		stored, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusValid, stored.Status)
		s.Require().NotNil(stored.ActivatedAt)
		s.Equal(s.now, *stored.ActivatedAt)
	})

	s.Run("confirming twice is a no-op", func() {
		c := s.createConsent(false)
		_, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		ok, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)
		s.True(ok)
		s.Len(s.actions(c.ID.String()), 2)
	})

	s.Run("closed consent is refused", func() {
		c := s.createConsent(false)
		_, err := s.service.Revoke(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		ok, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(models.StatusRevokedByPsu, s.status(c))
	})

	s.Run("unknown consent is false without error", func() {
		ok, err := s.service.Confirm(s.ctx(), testInstance, id.NewConsentID())
		s.NoError(err)
		s.False(ok)
	})

	s.Run("consent of another instance is unknown", func() {
		c := s.createConsent(false)
		ok, err := s.service.Confirm(s.ctx(), "bank-b", c.ID)
		s.NoError(err)
		s.False(ok)
	})

	s.Run("changed immutable fields block activation", func() {
		c := s.createConsent(false)
		_, err := s.service.AuthorisePartially(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		tampered, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
		s.Require().NoError(err)
		tampered.FrequencyPerDay = 100
		s.Require().NoError(s.consents.Save(context.Background(), tampered))

		ok, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeWrongChecksum))
		s.Equal(models.StatusPartiallyAuthorised, s.status(c))
	})
}

func (s *ServiceSuite) TestAuthorisePartially_FromValid() {
	c := s.createConsent(false)
	_, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)

	ok, err := s.service.AuthorisePartially(s.ctx(), testInstance, c.ID)
	s.False(ok)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestTerminate() {
	c := s.createConsent(false)
	_, err := s.service.Confirm(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)

	ok, err := s.service.TerminateByAspsp(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(models.StatusTerminatedByAspsp, s.status(c))

	_, err = s.service.TerminateByTpp(s.ctx(), testInstance, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestGet_ExpiresOnRead() {
	s.Run("validity date passed", func() {
		req := s.newRequest()
		req.ValidUntil = s.now.AddDate(0, 0, 1)
		c, err := s.service.Create(s.ctx(), req)
		s.Require().NoError(err)
		_, err = s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		same, err := s.service.Get(s.at(30*time.Hour), testInstance, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusValid, same.Status)

		got, err := s.service.Get(s.at(72*time.Hour), testInstance, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, got.Status)
		s.Equal(models.StatusExpired, s.status(c))
	})

	s.Run("never confirmed", func() {
		c := s.createConsent(false)

		got, err := s.service.Get(s.at(25*time.Hour), testInstance, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, got.Status)
	})

	s.Run("unknown consent", func() {
		got, err := s.service.Get(s.ctx(), testInstance, id.NewConsentID())
		s.NoError(err)
		s.Nil(got)
	})

	s.Run("expired consent cannot be confirmed", func() {
		c := s.createConsent(false)
		ok, err := s.service.Confirm(s.at(25*time.Hour), testInstance, c.ID)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(models.StatusRejected, s.status(c))
	})
}

func (s *ServiceSuite) TestUpdateAccountAccess() {
	access := models.AccountAccess{
		Accounts: []models.AccountReference{{IBAN: "DE89370400440532013000", Currency: "EUR"}},
		Balances: []models.AccountReference{{IBAN: "DE89370400440532013000", Currency: "EUR"}},
	}

	s.Run("free before activation", func() {
		c := s.createConsent(false)
		ok, err := s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, access)
		s.Require().NoError(err)
		s.True(ok)

		stored, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
		s.Require().NoError(err)
		s.NotEqual(c.Checksum, stored.Checksum)
		s.Equal(access, *stored.AspspAccess)
	})

	s.Run("immutable after activation", func() {
		c := s.createConsent(false)
		_, err := s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, access)
		s.Require().NoError(err)
		_, err = s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)
		before, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
		s.Require().NoError(err)

		ok, err := s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, access)
		s.Require().NoError(err)
		s.True(ok)

		changed := access.Clone()
		changed.Transactions = []models.AccountReference{{IBAN: "DE02120300000000202051"}}
		ok, err = s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, changed)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeWrongChecksum))

		after, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
		s.Require().NoError(err)
		s.Equal(before.Version, after.Version)
		s.Equal(access, *after.AspspAccess)
	})

	s.Run("reordered accounts keep the checksum", func() {
		c := s.createConsent(false)
		two := models.AccountAccess{Accounts: []models.AccountReference{{IBAN: "A"}, {IBAN: "B"}}}
		_, err := s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, two)
		s.Require().NoError(err)
		_, err = s.service.Confirm(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		reordered := models.AccountAccess{Accounts: []models.AccountReference{{IBAN: "B"}, {IBAN: "A"}}}
		ok, err := s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, reordered)
		s.NoError(err)
		s.True(ok)
	})

	s.Run("closed consent", func() {
		c := s.createConsent(false)
		_, err := s.service.Reject(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		ok, err := s.service.UpdateAccountAccess(s.ctx(), testInstance, c.ID, access)
		s.NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestUpdateMultilevelScaRequired() {
	c := s.createConsent(false)

	ok, err := s.service.UpdateMultilevelScaRequired(s.ctx(), testInstance, c.ID, true)
	s.Require().NoError(err)
	s.True(ok)
	stored, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
	s.Require().NoError(err)
	s.True(stored.MultilevelScaRequired)

	ok, err = s.service.UpdateMultilevelScaRequired(s.ctx(), testInstance, id.NewConsentID(), true)
	s.NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestValidConsentTerminatesOlderOnes() {
	alice := psu("alice")
	create := func(at time.Duration) *models.Consent {
		req := s.newRequest(alice)
		req.RecurringIndicator = true
		c, err := s.service.Create(s.at(at), req)
		s.Require().NoError(err)
		return c
	}

	oldValid := create(0)
	_, err := s.service.Confirm(s.ctx(), testInstance, oldValid.ID)
	s.Require().NoError(err)
	oldPending := create(time.Minute)

	otherReq := s.newRequest(psu("bob"))
	otherReq.RecurringIndicator = true
	otherPsu, err := s.service.Create(s.ctx(), otherReq)
	s.Require().NoError(err)

	latest := create(2 * time.Minute)
	ok, err := s.service.Confirm(s.at(2*time.Minute), testInstance, latest.ID)
	s.Require().NoError(err)
	s.True(ok)

	s.Equal(models.StatusTerminatedByTpp, s.status(oldValid))
	s.Equal(models.StatusRejected, s.status(oldPending))
	s.Equal(models.StatusReceived, s.status(otherPsu))
	s.Equal(models.StatusValid, s.status(latest))
}

func (s *ServiceSuite) TestPsuQueries() {
	alice, bob := psu("alice"), psu("bob")
	c := s.createConsent(true, alice, bob)
	s.createConsent(false, bob)

	list, err := s.service.GetPsuDataList(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)
	s.Equal([]string{"alice", "bob"}, []string{list[0].PsuID, list[1].PsuID})

	forAlice, err := s.service.ConsentsForPsu(s.ctx(), testInstance, alice)
	s.Require().NoError(err)
	s.Len(forAlice, 1)

	forBob, err := s.service.ConsentsForPsu(s.ctx(), testInstance, bob)
	s.Require().NoError(err)
	s.Len(forBob, 2)

	_, err = s.service.ConsentsForPsu(s.ctx(), testInstance, psu(""))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestExpireConsents() {
	shortReq := s.newRequest()
	shortReq.ValidUntil = s.now.AddDate(0, 0, 1)
	short, err := s.service.Create(s.ctx(), shortReq)
	s.Require().NoError(err)
	_, err = s.service.Confirm(s.ctx(), testInstance, short.ID)
	s.Require().NoError(err)

	unconfirmed := s.createConsent(false)
	fresh, err := s.service.Create(s.at(71*time.Hour), s.newRequest())
	s.Require().NoError(err)

	closed, err := s.service.ExpireConsents(context.Background(), s.now.Add(72*time.Hour))
	s.Require().NoError(err)
	s.Equal(2, closed)

	s.Equal(models.StatusExpired, s.status(short))
	s.Equal(models.StatusRejected, s.status(unconfirmed))
	s.Equal(models.StatusReceived, s.status(fresh))

	again, err := s.service.ExpireConsents(context.Background(), s.now.Add(72*time.Hour))
	s.Require().NoError(err)
	s.Zero(again)
}
