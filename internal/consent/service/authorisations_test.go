package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"xs2acms/internal/audit"
	"xs2acms/internal/consent/models"
	scamodels "xs2acms/internal/sca/models"
	"xs2acms/internal/sca/redirect"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

func (s *ServiceSuite) TestSingleLevelAuthorisation() {
	alice := psu("alice")
	c := s.createConsent(false, alice)
	auth := s.startAuthorisation(c, alice)
	s.Equal(scamodels.ScaStatusReceived, auth.ScaStatus)

	for _, step := range []scamodels.ScaStatus{
		scamodels.ScaStatusPsuIdentified,
		scamodels.ScaStatusPsuAuthenticated,
		scamodels.ScaStatusScaMethodSelected,
		scamodels.ScaStatusStarted,
	} {
		s.moveTo(c, auth, step)
		s.Equal(models.StatusReceived, s.status(c), "consent stays RECEIVED at %s", step)
	}

	s.moveTo(c, auth, scamodels.ScaStatusFinalised)
	s.Equal(models.StatusValid, s.status(c))

	stored, err := s.consents.FindByID(context.Background(), testInstance, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.ActivatedAt)

	actions := s.actions(c.ID.String())
	s.Equal(audit.ActionConsentCreated, actions[0])
	s.Equal(audit.ActionAuthorisationCreated, actions[1])
	s.Equal(audit.ActionConsentStatusChanged, actions[len(actions)-1])
}

func (s *ServiceSuite) TestSingleLevelOutcomes() {
	s.Run("failure rejects the consent", func() {
		alice := psu("alice")
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)

		s.moveTo(c, auth, scamodels.ScaStatusFailed)
		s.Equal(models.StatusRejected, s.status(c))
	})

	s.Run("exemption activates the consent", func() {
		alice := psu("alice")
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)

		s.moveTo(c, auth, scamodels.ScaStatusExempted)
		s.Equal(models.StatusValid, s.status(c))
	})
}

func (s *ServiceSuite) TestMultilevelAuthorisation() {
	alice, bob := psu("alice"), psu("bob")

	s.Run("second PSU completes the consent", func() {
		c := s.createConsent(true, alice, bob)
		a1 := s.startAuthorisation(c, alice)
		a2 := s.startAuthorisation(c, bob)

		s.moveTo(c, a1, scamodels.ScaStatusFinalised)
		s.moveTo(c, a2, scamodels.ScaStatusStarted)
		s.Equal(models.StatusPartiallyAuthorised, s.status(c))

		s.moveTo(c, a2, scamodels.ScaStatusFinalised)
		s.Equal(models.StatusValid, s.status(c))
	})

	s.Run("one failure rejects the consent", func() {
		c := s.createConsent(true, alice, bob)
		a1 := s.startAuthorisation(c, alice)
		a2 := s.startAuthorisation(c, bob)

		s.moveTo(c, a1, scamodels.ScaStatusFinalised)
		s.moveTo(c, a2, scamodels.ScaStatusFailed)
		s.Equal(models.StatusRejected, s.status(c))
	})
}

func (s *ServiceSuite) TestUpdateAuthorisationStatus_Refusals() {
	alice := psu("alice")

	s.Run("expiry wins over any target", func() {
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)

		for _, target := range []scamodels.ScaStatus{
			scamodels.ScaStatusPsuIdentified,
			scamodels.ScaStatusFinalised,
			scamodels.ScaStatusFailed,
			scamodels.ScaStatusReceived,
		} {
			ok, err := s.service.UpdateAuthorisationStatus(s.at(2*time.Hour), testInstance, c.ID, auth.ID, target, nil)
			s.False(ok)
			s.True(dErrors.HasCode(err, dErrors.CodeAuthorisationExpired), "target %s", target)
			uri, found := dErrors.RedirectURI(err)
			s.True(found)
			s.Equal("https://tpp.example/nok", uri)
		}

		stored, err := s.auths.FindByID(context.Background(), testInstance, auth.ID)
		s.Require().NoError(err)
		s.Equal(scamodels.ScaStatusReceived, stored.ScaStatus)
	})

	s.Run("final status is kept", func() {
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)
		s.moveTo(c, auth, scamodels.ScaStatusFinalised)

		s.moveTo(c, auth, scamodels.ScaStatusFinalised)

		ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, c.ID, auth.ID, scamodels.ScaStatusFailed, nil)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal(models.StatusValid, s.status(c))
	})

	s.Run("backwards move", func() {
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)
		s.moveTo(c, auth, scamodels.ScaStatusStarted)

		_, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, c.ID, auth.ID, scamodels.ScaStatusPsuIdentified, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("closed consent", func() {
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)
		_, err := s.service.Reject(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, c.ID, auth.ID, scamodels.ScaStatusPsuIdentified, nil)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown authorisation", func() {
		c := s.createConsent(false, alice)
		ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, c.ID, id.NewAuthorisationID(), scamodels.ScaStatusFinalised, nil)
		s.NoError(err)
		s.False(ok)
	})

	s.Run("authorisation of another consent", func() {
		c := s.createConsent(false, alice)
		other := s.createConsent(false, alice)
		auth := s.startAuthorisation(other, alice)

		ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, c.ID, auth.ID, scamodels.ScaStatusFinalised, nil)
		s.NoError(err)
		s.False(ok)
		s.Equal(models.StatusReceived, s.status(other))
	})
}

func (s *ServiceSuite) TestCreateAuthorisation() {
	alice := psu("alice")

	s.Run("closes the PSU's open authorisation", func() {
		c := s.createConsent(false, alice)
		first := s.startAuthorisation(c, alice)
		second := s.startAuthorisation(c, alice)

		stored, err := s.auths.FindByID(context.Background(), testInstance, first.ID)
		s.Require().NoError(err)
		s.Equal(scamodels.ScaStatusFailed, stored.ScaStatus)
		s.Require().NotNil(stored.RedirectURLExpiresAt)
		s.Equal(s.now, *stored.RedirectURLExpiresAt)

		s.Equal(scamodels.ScaStatusReceived, second.ScaStatus)
		s.Equal(models.StatusReceived, s.status(c))
	})

	s.Run("restart at the same instant is the effective authorisation", func() {
		c := s.createConsent(false, alice)
		s.startAuthorisation(c, alice)
		restarted := s.startAuthorisation(c, alice)

		s.moveTo(c, restarted, scamodels.ScaStatusFinalised)
		s.Equal(models.StatusValid, s.status(c))
	})

	s.Run("final initial status is aggregated at once", func() {
		for status, want := range map[scamodels.ScaStatus]models.Status{
			scamodels.ScaStatusExempted:  models.StatusValid,
			scamodels.ScaStatusFinalised: models.StatusValid,
			scamodels.ScaStatusFailed:    models.StatusRejected,
		} {
			c := s.createConsent(false, alice)
			created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{
				InstanceID: testInstance,
				ConsentID:  c.ID,
				PsuData:    &alice,
				ScaStatus:  status,
			})
			s.Require().NoError(err)
			s.Equal(status, created.Authorisation.ScaStatus)
			s.Equal(want, s.status(c), "initial status %s", status)
		}
	})

	s.Run("final initial status of a new PSU counts towards multilevel SCA", func() {
		bob := psu("bob")
		c := s.createConsent(true, alice, bob)
		s.moveTo(c, s.startAuthorisation(c, alice), scamodels.ScaStatusFinalised)
		s.Equal(models.StatusPartiallyAuthorised, s.status(c))

		_, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{
			InstanceID: testInstance, ConsentID: c.ID, PsuData: &bob, ScaStatus: scamodels.ScaStatusExempted,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusValid, s.status(c))
	})

	s.Run("adds a new PSU to the consent", func() {
		c := s.createConsent(true, alice)
		s.startAuthorisation(c, psu("bob"))

		list, err := s.service.GetPsuDataList(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("sets expirations from the profile", func() {
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)

		s.Require().NotNil(auth.RedirectURLExpiresAt)
		s.Require().NotNil(auth.ExpiresAt)
		s.Equal(s.now.Add(10*time.Minute), *auth.RedirectURLExpiresAt)
		s.Equal(s.now.Add(time.Hour), *auth.ExpiresAt)
		s.Equal("https://tpp.example/ok", auth.TppOKRedirectURI)
	})

	s.Run("closed consent", func() {
		c := s.createConsent(false, alice)
		_, err := s.service.Reject(s.ctx(), testInstance, c.ID)
		s.Require().NoError(err)

		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: c.ID, PsuData: &alice})
		s.Nil(created)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown consent", func() {
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: id.NewConsentID()})
		s.NoError(err)
		s.Nil(created)
	})
}

func (s *ServiceSuite) TestCheckRedirectAndGetConsent() {
	alice := psu("alice")

	s.Run("open redirect", func() {
		c := s.createConsent(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: c.ID, PsuData: &alice})
		s.Require().NoError(err)

		result, err := s.service.CheckRedirectAndGetConsent(s.at(time.Minute), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Require().NotNil(result)
		s.Equal(c.ID, result.Consent.ID)
		s.Equal(created.Authorisation.ID, result.Authorisation.ID)
		s.Equal("https://tpp.example/ok", result.TppOKRedirectURI)
	})

	s.Run("redirect URL expired", func() {
		c := s.createConsent(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: c.ID, PsuData: &alice})
		s.Require().NoError(err)

		result, err := s.service.CheckRedirectAndGetConsent(s.at(10*time.Minute+time.Second), testInstance, created.RedirectID)
		s.Nil(result)
		s.True(dErrors.HasCode(err, dErrors.CodeRedirectExpired))
		uri, _ := dErrors.RedirectURI(err)
		s.Equal("https://tpp.example/nok", uri)

		stored, err := s.auths.FindByID(context.Background(), testInstance, created.Authorisation.ID)
		s.Require().NoError(err)
		s.Equal(scamodels.ScaStatusFailed, stored.ScaStatus)
		s.Equal(models.StatusRejected, s.status(c))

		result, err = s.service.CheckRedirectAndGetConsent(s.at(11*time.Minute), testInstance, created.RedirectID)
		s.NoError(err, "a failed authorisation is no longer resolvable")
		s.Nil(result)
	})

	s.Run("authorisation expired", func() {
		c := s.createConsent(false, alice)
		auth := s.startAuthorisation(c, alice)
		stored, err := s.auths.FindByID(context.Background(), testInstance, auth.ID)
		s.Require().NoError(err)
		stored.RedirectURLExpiresAt = nil
		s.Require().NoError(s.auths.Save(context.Background(), stored))

		_, err = s.service.CheckRedirectAndGetConsent(s.at(2*time.Hour), testInstance, auth.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorisationExpired))

		stored, err = s.auths.FindByID(context.Background(), testInstance, auth.ID)
		s.Require().NoError(err)
		s.Equal(scamodels.ScaStatusFailed, stored.ScaStatus)
	})

	s.Run("final authorisation", func() {
		c := s.createConsent(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: c.ID, PsuData: &alice})
		s.Require().NoError(err)
		s.moveTo(c, created.Authorisation, scamodels.ScaStatusFinalised)

		result, err := s.service.CheckRedirectAndGetConsent(s.at(time.Minute), testInstance, created.RedirectID)
		s.NoError(err)
		s.Nil(result)
	})

	s.Run("unknown redirect", func() {
		result, err := s.service.CheckRedirectAndGetConsent(s.ctx(), testInstance, "not-a-redirect")
		s.NoError(err)
		s.Nil(result)
	})

	s.Run("signed redirect IDs", func() {
		stores := Stores{Consents: s.consents, Authorisations: s.auths}
		signed := NewService(stores, NewInMemoryTx(stores),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithRedirectSigner(redirect.NewSigner("redirect-test-key", "xs2acms")))

		c := s.createConsent(false, alice)
		created, err := signed.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: c.ID, PsuData: &alice})
		s.Require().NoError(err)
		s.NotEqual(created.Authorisation.ID.String(), created.RedirectID)

		result, err := signed.CheckRedirectAndGetConsent(s.ctx(), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Require().NotNil(result)
		s.Equal(created.Authorisation.ID, result.Authorisation.ID)

		forged, err := signed.CheckRedirectAndGetConsent(s.ctx(), testInstance, created.Authorisation.ID.String())
		s.NoError(err)
		s.Nil(forged)
	})
}

func (s *ServiceSuite) TestConfirmAuthorisationCode() {
	alice := psu("alice")
	c := s.createConsent(false, alice)
	auth := s.startAuthorisation(c, alice)

	ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, c.ID, auth.ID, scamodels.ScaStatusScaMethodSelected,
		&scamodels.AuthenticationInput{MethodID: "push", Code: "4711"})
	s.Require().NoError(err)
	s.Require().True(ok)
	s.moveTo(c, auth, scamodels.ScaStatusStarted)

	result, err := s.service.ConfirmAuthorisationCode(s.ctx(), testInstance, c.ID, auth.ID, "0000")
	s.Require().NoError(err)
	s.False(result.Matched)
	s.Equal(scamodels.ScaStatusUnconfirmed, result.ScaStatus)
	s.Equal(models.StatusReceived, s.status(c))

	result, err = s.service.ConfirmAuthorisationCode(s.ctx(), testInstance, c.ID, auth.ID, "4711")
	s.Require().NoError(err)
	s.True(result.Matched)
	s.Equal(scamodels.ScaStatusFinalised, result.ScaStatus)
	s.Equal(models.StatusValid, s.status(c))

	stored, err := s.auths.FindByID(context.Background(), testInstance, auth.ID)
	s.Require().NoError(err)
	s.Equal("push", stored.AuthenticationData.MethodID)
	s.NotEqual([]byte("4711"), stored.AuthenticationData.CodeHash)
}

func (s *ServiceSuite) TestUpdatePsuDataInConsent() {
	c := s.createConsent(false)
	created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, ConsentID: c.ID})
	s.Require().NoError(err)
	auth := created.Authorisation
	s.Nil(auth.PsuData)

	ok, err := s.service.UpdatePsuDataInConsent(s.ctx(), testInstance, auth.ID, psu("alice"))
	s.Require().NoError(err)
	s.True(ok)

	list, err := s.service.GetPsuDataList(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("alice", list[0].PsuID)
	s.Contains(s.actions(c.ID.String()), audit.ActionAuthorisationPsuAssigned)

	ok, err = s.service.UpdatePsuDataInConsent(s.ctx(), testInstance, auth.ID, psu("bob"))
	s.NoError(err)
	s.False(ok)

	_, err = s.service.UpdatePsuDataInConsent(s.ctx(), testInstance, auth.ID, psu(""))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestGetAuthorisationScaStatus() {
	alice := psu("alice")
	c := s.createConsent(false, alice)
	auth := s.startAuthorisation(c, alice)
	s.moveTo(c, auth, scamodels.ScaStatusPsuIdentified)

	status, found, err := s.service.GetAuthorisationScaStatus(s.ctx(), testInstance, c.ID, auth.ID)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(scamodels.ScaStatusPsuIdentified, status)

	status, found, err = s.service.GetAuthorisationScaStatus(s.at(25*time.Hour), testInstance, c.ID, auth.ID)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(scamodels.ScaStatusFailed, status)
	s.Equal(models.StatusRejected, s.status(c))

	_, found, err = s.service.GetAuthorisationScaStatus(s.ctx(), testInstance, c.ID, id.NewAuthorisationID())
	s.NoError(err)
	s.False(found)
}

func (s *ServiceSuite) TestExpireAuthorisation() {
	alice := psu("alice")
	c := s.createConsent(false, alice)
	auth := s.startAuthorisation(c, alice)

	_, err := s.service.ExpireAuthorisation(s.at(time.Minute), testInstance, auth.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	changed, err := s.service.ExpireAuthorisation(s.at(2*time.Hour), testInstance, auth.ID)
	s.Require().NoError(err)
	s.True(changed)

	stored, err := s.auths.FindByID(context.Background(), testInstance, auth.ID)
	s.Require().NoError(err)
	s.Equal(scamodels.ScaStatusFailed, stored.ScaStatus)
	s.Equal(models.StatusRejected, s.status(c))

	changed, err = s.service.ExpireAuthorisation(s.at(3*time.Hour), testInstance, auth.ID)
	s.NoError(err)
	s.False(changed)
}

func (s *ServiceSuite) TestAuthorisationQueries() {
	alice, bob := psu("alice"), psu("bob")
	c := s.createConsent(true, alice, bob)
	a1 := s.startAuthorisation(c, alice)
	a2 := s.startAuthorisation(c, bob)

	ids, err := s.service.ListAuthorisationIDs(s.ctx(), testInstance, c.ID, scamodels.AuthorisationTypeCreation)
	s.Require().NoError(err)
	s.ElementsMatch([]id.AuthorisationID{a1.ID, a2.ID}, ids)

	none, err := s.service.ListAuthorisationIDs(s.ctx(), testInstance, c.ID, scamodels.AuthorisationTypeCancellation)
	s.Require().NoError(err)
	s.Empty(none)

	pairs, err := s.service.ListPsuDataAuthorisations(s.ctx(), testInstance, c.ID)
	s.Require().NoError(err)
	s.Len(pairs, 2)

	unknown, err := s.service.ListAuthorisationIDs(s.ctx(), testInstance, id.NewConsentID(), "")
	s.NoError(err)
	s.Nil(unknown)
}

func (s *ServiceSuite) TestAuthenticationMethods() {
	alice := psu("alice")
	c := s.createConsent(false, alice)
	auth := s.startAuthorisation(c, alice)

	ok, err := s.service.SaveAuthenticationMethods(s.ctx(), testInstance, auth.ID, []scamodels.ScaMethod{
		{AuthenticationMethodID: "sms", AuthenticationType: "SMS_OTP"},
		{AuthenticationMethodID: "app", AuthenticationType: "PUSH_OTP", Decoupled: true},
	})
	s.Require().NoError(err)
	s.True(ok)

	decoupled, err := s.service.IsAuthenticationMethodDecoupled(s.ctx(), testInstance, auth.ID, "app")
	s.Require().NoError(err)
	s.True(decoupled)

	decoupled, err = s.service.IsAuthenticationMethodDecoupled(s.ctx(), testInstance, auth.ID, "sms")
	s.Require().NoError(err)
	s.False(decoupled)

	decoupled, err = s.service.IsAuthenticationMethodDecoupled(s.ctx(), testInstance, auth.ID, "letter")
	s.Require().NoError(err)
	s.False(decoupled)

	ok, err = s.service.UpdateScaApproach(s.ctx(), testInstance, auth.ID, scamodels.ScaApproachDecoupled)
	s.Require().NoError(err)
	s.True(ok)
	stored, err := s.service.GetAuthorisation(s.ctx(), testInstance, auth.ID)
	s.Require().NoError(err)
	s.True(stored.IsDecoupled())

	s.moveTo(c, auth, scamodels.ScaStatusFailed)
	ok, err = s.service.UpdateScaApproach(s.ctx(), testInstance, auth.ID, scamodels.ScaApproachRedirect)
	s.NoError(err)
	s.False(ok)
}

// lockRecordingTx records the lock key of every unit of work.
type lockRecordingTx struct {
	ConsentStoreTx
	keys []string
}

func (t *lockRecordingTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	t.keys = append(t.keys, txKey(ctx))
	return t.ConsentStoreTx.RunInTx(ctx, fn)
}

func (s *ServiceSuite) TestAuthorisationEditsLockTheConsent() {
	stores := Stores{Consents: s.consents, Authorisations: s.auths}
	tx := &lockRecordingTx{ConsentStoreTx: NewInMemoryTx(stores)}
	svc := NewService(stores, tx, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	alice := psu("alice")
	c := s.createConsent(false, alice)
	auth := s.startAuthorisation(c, alice)

	ok, err := svc.SaveAuthenticationMethods(s.ctx(), testInstance, auth.ID, []scamodels.ScaMethod{{AuthenticationMethodID: "sms"}})
	s.Require().NoError(err)
	s.True(ok)
	ok, err = svc.UpdateScaApproach(s.ctx(), testInstance, auth.ID, scamodels.ScaApproachEmbedded)
	s.Require().NoError(err)
	s.True(ok)

	s.Equal([]string{c.ID.String(), c.ID.String()}, tx.keys)
}
