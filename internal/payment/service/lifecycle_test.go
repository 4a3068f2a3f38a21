package service

import (
	"context"
	"time"

	"xs2acms/internal/audit"
	"xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/testutil"
)

func (s *ServiceSuite) TestCreate() {
	s.Run("stores a received payment", func() {
		p := s.createPayment(false, psu("alice"))
		s.Equal(models.StatusReceived, p.Status)
		s.Equal(int64(1), p.Version)
		s.Equal([]audit.Action{audit.ActionPaymentCreated}, s.actions(p.ID.String()))
	})

	s.Run("payment type is case-insensitive", func() {
		req := s.newRequest()
		req.PaymentType = "periodic"
		p, err := s.service.Create(s.ctx(), req)
		s.Require().NoError(err)
		s.Equal(models.PaymentTypePeriodic, p.PaymentType)
	})

	s.Run("unknown payment type", func() {
		req := s.newRequest()
		req.PaymentType = "instant"
		_, err := s.service.Create(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("blank product", func() {
		req := s.newRequest()
		req.PaymentProduct = "  "
		_, err := s.service.Create(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestUpdatePaymentStatus() {
	s.Run("ASPSP moves the payment on", func() {
		p := s.createPayment(false)
		ok, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "acsp")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(models.StatusAcceptedSettlementInPrc, s.status(p))

		ok, err = s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "ACSC")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(models.StatusAcceptedSettlementDone, s.status(p))
	})

	s.Run("terminal status is kept", func() {
		p := s.createPayment(false)
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "CANC")
		s.Require().NoError(err)

		ok, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "CANC")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "ACSC")
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(models.StatusCancelled, s.status(p))
	})

	s.Run("unknown status code", func() {
		p := s.createPayment(false)
		ok, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "DONE")
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown payment", func() {
		ok, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, id.NewPaymentID(), "ACTC")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("payment of another instance", func() {
		p := s.createPayment(false)
		ok, err := s.service.UpdatePaymentStatus(s.ctx(), "bank-b", p.ID, "ACTC")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestUpdatePaymentStatus_Concurrent() {
	p := s.createPayment(false)

	result := testutil.RunConcurrent(8, func(int) error {
		_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "RJCT")
		return err
	})
	s.Equal(int32(8), result.Successes)
	s.Equal(models.StatusRejected, s.status(p))

	changes := 0
	for _, a := range s.actions(p.ID.String()) {
		if a == audit.ActionPaymentStatusChanged {
			changes++
		}
	}
	s.Equal(1, changes)
}

func (s *ServiceSuite) TestGet_RejectsUnconfirmed() {
	p := s.createPayment(false)

	got, err := s.service.Get(s.at(23*time.Hour), testInstance, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, got.Status)

	got, err = s.service.Get(s.at(25*time.Hour), testInstance, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, got.Status)
	s.Equal(models.StatusRejected, s.status(p))

	missing, err := s.service.Get(s.ctx(), testInstance, id.NewPaymentID())
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *ServiceSuite) TestUpdateMultilevelScaRequired() {
	p := s.createPayment(false)
	ok, err := s.service.UpdateMultilevelScaRequired(s.ctx(), testInstance, p.ID, true)
	s.Require().NoError(err)
	s.True(ok)

	stored, err := s.payments.FindByID(context.Background(), testInstance, p.ID)
	s.Require().NoError(err)
	s.True(stored.MultilevelScaRequired)

	_, err = s.service.UpdatePaymentStatus(s.ctx(), testInstance, p.ID, "RJCT")
	s.Require().NoError(err)
	ok, err = s.service.UpdateMultilevelScaRequired(s.ctx(), testInstance, p.ID, false)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestPsuQueries() {
	alice, bob := psu("alice"), psu("bob")
	p := s.createPayment(true, alice, bob)
	s.createPayment(false, bob)

	list, err := s.service.GetPsuDataList(s.ctx(), testInstance, p.ID)
	s.Require().NoError(err)
	s.Equal([]scamodels.PsuIdData{alice, bob}, list)

	forBob, err := s.service.PaymentsForPsu(s.ctx(), testInstance, bob)
	s.Require().NoError(err)
	s.Len(forBob, 2)

	_, err = s.service.PaymentsForPsu(s.ctx(), testInstance, scamodels.PsuIdData{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestExpirePayments() {
	waiting := s.createPayment(false)
	partial := s.createPayment(false)
	_, err := s.service.UpdatePaymentStatus(s.ctx(), testInstance, partial.ID, "PATC")
	s.Require().NoError(err)
	accepted := s.createPayment(false)
	_, err = s.service.UpdatePaymentStatus(s.ctx(), testInstance, accepted.ID, "ACTC")
	s.Require().NoError(err)

	rejected, err := s.service.ExpirePayments(context.Background(), s.now.Add(25*time.Hour))
	s.Require().NoError(err)
	s.Equal(2, rejected)
	s.Equal(models.StatusRejected, s.status(waiting))
	s.Equal(models.StatusRejected, s.status(partial))
	s.Equal(models.StatusAcceptedTechnical, s.status(accepted))

	rejected, err = s.service.ExpirePayments(context.Background(), s.now.Add(26*time.Hour))
	s.Require().NoError(err)
	s.Zero(rejected)
}
