package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"xs2acms/internal/audit"
	"xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
	"xs2acms/internal/sca/redirect"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

func (s *ServiceSuite) TestSingleLevelInitiation() {
	alice := psu("alice")
	p := s.createPayment(false, alice)
	auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)

	s.moveTo(p, auth, scamodels.ScaStatusPsuAuthenticated)
	s.Equal(models.StatusReceived, s.status(p))

	s.moveTo(p, auth, scamodels.ScaStatusFinalised)
	s.Equal(models.StatusAcceptedTechnical, s.status(p))

	actions := s.actions(p.ID.String())
	s.Equal(audit.ActionPaymentCreated, actions[0])
	s.Equal(audit.ActionAuthorisationCreated, actions[1])
	s.Equal(audit.ActionPaymentStatusChanged, actions[len(actions)-1])
}

func (s *ServiceSuite) TestInitiationOutcomes() {
	alice, bob := psu("alice"), psu("bob")

	s.Run("failure rejects the payment", func() {
		p := s.createPayment(false, alice)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
		s.moveTo(p, auth, scamodels.ScaStatusFailed)
		s.Equal(models.StatusRejected, s.status(p))
	})

	s.Run("multilevel goes through PATC", func() {
		p := s.createPayment(true, alice, bob)
		a1 := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
		a2 := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, bob)

		s.moveTo(p, a1, scamodels.ScaStatusFinalised)
		s.Equal(models.StatusPartiallyAccepted, s.status(p))

		s.moveTo(p, a2, scamodels.ScaStatusFinalised)
		s.Equal(models.StatusAcceptedTechnical, s.status(p))
	})

	s.Run("ASPSP status is not overwritten by late SCA", func() {
		p := s.createPayment(false, alice)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "ACSP")
		s.Require().NoError(err)

		s.moveTo(p, auth, scamodels.ScaStatusFailed)
		s.Equal(models.StatusAcceptedSettlementInPrc, s.status(p))
	})
}

func (s *ServiceSuite) TestCancellation() {
	alice := psu("alice")

	s.Run("finalised cancellation cancels the payment", func() {
		p := s.createPayment(false, alice)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "ACTC")
		s.Require().NoError(err)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCancellation, alice)
		s.Equal(scamodels.AuthorisationTypeCancellation, auth.Type)

		s.moveTo(p, auth, scamodels.ScaStatusFinalised)
		s.Equal(models.StatusCancelled, s.status(p))
	})

	s.Run("failed cancellation leaves the payment alone", func() {
		p := s.createPayment(false, alice)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "ACTC")
		s.Require().NoError(err)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCancellation, alice)

		s.moveTo(p, auth, scamodels.ScaStatusFailed)
		s.Equal(models.StatusAcceptedTechnical, s.status(p))
	})

	s.Run("cancellation does not close the initiation", func() {
		p := s.createPayment(false, alice)
		initiation := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
		s.startAuthorisation(p, scamodels.AuthorisationTypeCancellation, alice)

		stored, err := s.auths.FindByID(context.Background(), testInstance, initiation.ID)
		s.Require().NoError(err)
		s.Equal(scamodels.ScaStatusReceived, stored.ScaStatus)
	})

	s.Run("cancellation redirect uses its own window", func() {
		p := s.createPayment(false, alice)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCancellation, alice)
		s.Require().NotNil(auth.RedirectURLExpiresAt)
		s.Equal(s.now.Add(5*time.Minute), *auth.RedirectURLExpiresAt)
	})
}

func (s *ServiceSuite) TestCreateAuthorisation_FinalInitialStatus() {
	alice := psu("alice")

	cases := map[scamodels.ScaStatus]models.TransactionStatus{
		scamodels.ScaStatusExempted:  models.StatusAcceptedTechnical,
		scamodels.ScaStatusFinalised: models.StatusAcceptedTechnical,
		scamodels.ScaStatusFailed:    models.StatusRejected,
	}
	for initial, want := range cases {
		s.Run(initial.String(), func() {
			p := s.createPayment(false, alice)
			created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{
				InstanceID: testInstance, PaymentID: p.ID, PsuData: &alice, ScaStatus: initial,
			})
			s.Require().NoError(err)
			s.Require().NotNil(created)
			s.Equal(initial, created.Authorisation.ScaStatus)
			s.Equal(want, s.status(p))
			s.Contains(s.actions(p.ID.String()), audit.ActionPaymentStatusChanged)
		})
	}

	s.Run("finalised cancellation cancels at once", func() {
		p := s.createPayment(false, alice)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "ACTC")
		s.Require().NoError(err)

		_, err = s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{
			InstanceID: testInstance, PaymentID: p.ID, Type: scamodels.AuthorisationTypeCancellation,
			PsuData: &alice, ScaStatus: scamodels.ScaStatusFinalised,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, s.status(p))
	})

	s.Run("second PSU with a final status completes multilevel SCA", func() {
		bob := psu("bob")
		p := s.createPayment(true, alice, bob)
		a1 := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
		s.moveTo(p, a1, scamodels.ScaStatusFinalised)
		s.Equal(models.StatusPartiallyAccepted, s.status(p))

		_, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{
			InstanceID: testInstance, PaymentID: p.ID, PsuData: &bob, ScaStatus: scamodels.ScaStatusExempted,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusAcceptedTechnical, s.status(p))
	})
}

func (s *ServiceSuite) TestCreateAuthorisation_Refusals() {
	s.Run("terminal payment", func() {
		p := s.createPayment(false)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "RJCT")
		s.Require().NoError(err)

		_, err = s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown type", func() {
		p := s.createPayment(false)
		_, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID, Type: "REFUND"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown payment", func() {
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: id.NewPaymentID()})
		s.Require().NoError(err)
		s.Nil(created)
	})

	s.Run("new PSU joins the payment", func() {
		p := s.createPayment(false)
		s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, psu("carol"))
		list, err := s.service.GetPsuDataList(s.ctx(), testInstance, p.ID)
		s.Require().NoError(err)
		s.Equal([]scamodels.PsuIdData{psu("carol")}, list)
	})
}

func (s *ServiceSuite) TestUpdateAuthorisationStatus_Refusals() {
	alice := psu("alice")

	s.Run("expired authorisation", func() {
		p := s.createPayment(false, alice)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)

		ok, err := s.service.UpdateAuthorisationStatus(s.at(2*time.Hour), testInstance, p.ID, auth.ID, scamodels.ScaStatusFinalised, nil)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorisationExpired))
		uri, found := dErrors.RedirectURI(err)
		s.True(found)
		s.Equal("https://tpp.example/nok", uri)
	})

	s.Run("terminal payment", func() {
		p := s.createPayment(false, alice)
		auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "CANC")
		s.Require().NoError(err)

		ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, p.ID, auth.ID, scamodels.ScaStatusFinalised, nil)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("authorisation of another payment", func() {
		p1 := s.createPayment(false, alice)
		p2 := s.createPayment(false, alice)
		auth := s.startAuthorisation(p1, scamodels.AuthorisationTypeCreation, alice)

		ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, p2.ID, auth.ID, scamodels.ScaStatusFinalised, nil)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestCheckRedirectAndGetPayment() {
	alice := psu("alice")

	s.Run("open redirect resolves", func() {
		p := s.createPayment(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID, PsuData: &alice})
		s.Require().NoError(err)

		res, err := s.service.CheckRedirectAndGetPayment(s.at(time.Minute), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Require().NotNil(res)
		s.Equal(p.ID, res.Payment.ID)
		s.Equal("https://tpp.example/ok", res.TppOKRedirectURI)

		other, err := s.service.CheckRedirectAndGetPaymentForCancellation(s.at(time.Minute), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Nil(other)
	})

	s.Run("lapsed redirect", func() {
		p := s.createPayment(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID, PsuData: &alice})
		s.Require().NoError(err)

		_, err = s.service.CheckRedirectAndGetPayment(s.at(11*time.Minute), testInstance, created.RedirectID)
		s.True(dErrors.HasCode(err, dErrors.CodeRedirectExpired))
		uri, _ := dErrors.RedirectURI(err)
		s.Equal("https://tpp.example/nok", uri)

		stored, err := s.auths.FindByID(context.Background(), testInstance, created.Authorisation.ID)
		s.Require().NoError(err)
		s.Equal(scamodels.ScaStatusFailed, stored.ScaStatus)
		s.Equal(models.StatusRejected, s.status(p))

		again, err := s.service.CheckRedirectAndGetPayment(s.at(11*time.Minute), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Nil(again)
	})

	s.Run("final authorisation", func() {
		p := s.createPayment(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID, PsuData: &alice})
		s.Require().NoError(err)
		s.moveTo(p, created.Authorisation, scamodels.ScaStatusFinalised)

		res, err := s.service.CheckRedirectAndGetPayment(s.at(time.Minute), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Nil(res)
	})

	s.Run("cancellation redirect", func() {
		p := s.createPayment(false, alice)
		created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{
			InstanceID: testInstance, PaymentID: p.ID, Type: scamodels.AuthorisationTypeCancellation, PsuData: &alice,
		})
		s.Require().NoError(err)

		res, err := s.service.CheckRedirectAndGetPaymentForCancellation(s.at(time.Minute), testInstance, created.RedirectID)
		s.Require().NoError(err)
		s.Require().NotNil(res)
		s.Equal(scamodels.AuthorisationTypeCancellation, res.Authorisation.Type)

		_, err = s.service.CheckRedirectAndGetPaymentForCancellation(s.at(6*time.Minute), testInstance, created.RedirectID)
		s.True(dErrors.HasCode(err, dErrors.CodeRedirectExpired))
	})

	s.Run("signed redirect IDs", func() {
		stores := Stores{Payments: s.payments, Authorisations: s.auths}
		signed := NewService(stores, NewInMemoryTx(stores),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithRedirectSigner(redirect.NewSigner("redirect-test-key", "xs2acms")))
		p := s.createPayment(false, alice)
		created, err := signed.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID, PsuData: &alice})
		s.Require().NoError(err)
		s.NotEqual(created.Authorisation.ID.String(), created.RedirectID)

		res, err := signed.CheckRedirectAndGetPayment(s.ctx(), "ignored", created.RedirectID)
		s.Require().NoError(err)
		s.Require().NotNil(res)
		s.Equal(p.ID, res.Payment.ID)

		raw, err := signed.CheckRedirectAndGetPayment(s.ctx(), testInstance, created.Authorisation.ID.String())
		s.Require().NoError(err)
		s.Nil(raw)
	})
}

func (s *ServiceSuite) TestConfirmAuthorisationCode() {
	alice := psu("alice")
	p := s.createPayment(false, alice)
	auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)

	ok, err := s.service.UpdateAuthorisationStatus(s.ctx(), testInstance, p.ID, auth.ID, scamodels.ScaStatusScaMethodSelected,
		&scamodels.AuthenticationInput{MethodID: "push", Code: "4711"})
	s.Require().NoError(err)
	s.Require().True(ok)
	s.moveTo(p, auth, scamodels.ScaStatusStarted)

	res, err := s.service.ConfirmAuthorisationCode(s.ctx(), testInstance, p.ID, auth.ID, "0000")
	s.Require().NoError(err)
	s.False(res.Matched)
	s.Equal(scamodels.ScaStatusUnconfirmed, res.ScaStatus)
	s.Equal(models.StatusReceived, s.status(p))

	res, err = s.service.ConfirmAuthorisationCode(s.ctx(), testInstance, p.ID, auth.ID, "4711")
	s.Require().NoError(err)
	s.True(res.Matched)
	s.Equal(scamodels.ScaStatusFinalised, res.ScaStatus)
	s.Equal(models.StatusAcceptedTechnical, s.status(p))
}

func (s *ServiceSuite) TestUpdatePsuDataInPayment() {
	p := s.createPayment(false)
	created, err := s.service.CreateAuthorisation(s.ctx(), AuthorisationRequest{InstanceID: testInstance, PaymentID: p.ID})
	s.Require().NoError(err)

	ok, err := s.service.UpdatePsuDataInPayment(s.ctx(), testInstance, created.Authorisation.ID, psu("dave"))
	s.Require().NoError(err)
	s.True(ok)

	list, err := s.service.GetPsuDataList(s.ctx(), testInstance, p.ID)
	s.Require().NoError(err)
	s.Equal([]scamodels.PsuIdData{psu("dave")}, list)

	ok, err = s.service.UpdatePsuDataInPayment(s.ctx(), testInstance, created.Authorisation.ID, psu("erin"))
	s.Require().NoError(err)
	s.False(ok)
	s.Contains(s.actions(p.ID.String()), audit.ActionAuthorisationPsuAssigned)
}

func (s *ServiceSuite) TestGetAuthorisationScaStatus() {
	alice := psu("alice")
	p := s.createPayment(false, alice)
	auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)

	status, found, err := s.service.GetAuthorisationScaStatus(s.ctx(), testInstance, p.ID, auth.ID)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(scamodels.ScaStatusReceived, status)

	status, found, err = s.service.GetAuthorisationScaStatus(s.at(25*time.Hour), testInstance, p.ID, auth.ID)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(scamodels.ScaStatusFailed, status)
	s.Equal(models.StatusRejected, s.status(p))

	_, found, err = s.service.GetAuthorisationScaStatus(s.ctx(), testInstance, p.ID, id.NewAuthorisationID())
	s.Require().NoError(err)
	s.False(found)
}

func (s *ServiceSuite) TestExpireAuthorisation() {
	alice := psu("alice")
	p := s.createPayment(false, alice)
	auth := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)

	_, err := s.service.ExpireAuthorisation(s.at(30*time.Minute), testInstance, auth.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	changed, err := s.service.ExpireAuthorisation(s.at(2*time.Hour), testInstance, auth.ID)
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(models.StatusRejected, s.status(p))

	changed, err = s.service.ExpireAuthorisation(s.at(3*time.Hour), testInstance, auth.ID)
	s.Require().NoError(err)
	s.False(changed)
}

func (s *ServiceSuite) TestListAuthorisationIDs() {
	alice := psu("alice")
	p := s.createPayment(false, alice)
	initiation := s.startAuthorisation(p, scamodels.AuthorisationTypeCreation, alice)
	cancellation := s.startAuthorisation(p, scamodels.AuthorisationTypeCancellation, alice)

	ids, err := s.service.ListAuthorisationIDs(s.ctx(), testInstance, p.ID, scamodels.AuthorisationTypeCreation)
	s.Require().NoError(err)
	s.Equal([]id.AuthorisationID{initiation.ID}, ids)

	ids, err = s.service.ListAuthorisationIDs(s.ctx(), testInstance, p.ID, scamodels.AuthorisationTypeCancellation)
	s.Require().NoError(err)
	s.Equal([]id.AuthorisationID{cancellation.ID}, ids)

	all, err := s.service.ListAuthorisationIDs(s.ctx(), testInstance, p.ID, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	missing, err := s.service.ListAuthorisationIDs(s.ctx(), testInstance, id.NewPaymentID(), "")
	s.Require().NoError(err)
	s.Nil(missing)
}
