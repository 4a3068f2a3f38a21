package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
)

var (
	p1   = scamodels.PsuIdData{PsuID: "p1"}
	p2   = scamodels.PsuIdData{PsuID: "p2"}
	base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func creation(psu scamodels.PsuIdData, status scamodels.ScaStatus) *scamodels.Authorisation {
	return &scamodels.Authorisation{
		Type:      scamodels.AuthorisationTypeCreation,
		PsuData:   &psu,
		ScaStatus: status,
		CreatedAt: base,
	}
}

func cancellation(psu scamodels.PsuIdData, status scamodels.ScaStatus) *scamodels.Authorisation {
	a := creation(psu, status)
	a.Type = scamodels.AuthorisationTypeCancellation
	a.CreatedAt = base.Add(time.Hour)
	return a
}

func TestRecompute(t *testing.T) {
	joint := []scamodels.PsuIdData{p1, p2}

	tests := []struct {
		name     string
		payment  models.Payment
		auths    []*scamodels.Authorisation
		expected models.TransactionStatus
	}{
		{
			name:     "single level finalised is accepted",
			payment:  models.Payment{Status: models.StatusReceived},
			auths:    []*scamodels.Authorisation{creation(p1, scamodels.ScaStatusFinalised)},
			expected: models.StatusAcceptedTechnical,
		},
		{
			name:     "single level failure rejects",
			payment:  models.Payment{Status: models.StatusReceived},
			auths:    []*scamodels.Authorisation{creation(p1, scamodels.ScaStatusFailed)},
			expected: models.StatusRejected,
		},
		{
			name:     "multilevel first PSU is partial",
			payment:  models.Payment{Status: models.StatusReceived, PsuDataList: joint, MultilevelScaRequired: true},
			auths:    []*scamodels.Authorisation{creation(p1, scamodels.ScaStatusFinalised), creation(p2, scamodels.ScaStatusStarted)},
			expected: models.StatusPartiallyAccepted,
		},
		{
			name:    "multilevel all PSUs is accepted",
			payment: models.Payment{Status: models.StatusPartiallyAccepted, PsuDataList: joint, MultilevelScaRequired: true},
			auths: []*scamodels.Authorisation{
				creation(p1, scamodels.ScaStatusFinalised),
				creation(p2, scamodels.ScaStatusFinalised),
			},
			expected: models.StatusAcceptedTechnical,
		},
		{
			name:     "creation SCA does not override an ASPSP status",
			payment:  models.Payment{Status: models.StatusAcceptedSettlementInPrc},
			auths:    []*scamodels.Authorisation{creation(p1, scamodels.ScaStatusFailed)},
			expected: models.StatusAcceptedSettlementInPrc,
		},
		{
			name:    "finalised cancellation cancels",
			payment: models.Payment{Status: models.StatusAcceptedTechnical},
			auths: []*scamodels.Authorisation{
				creation(p1, scamodels.ScaStatusFinalised),
				cancellation(p1, scamodels.ScaStatusFinalised),
			},
			expected: models.StatusCancelled,
		},
		{
			name:    "failed cancellation leaves the payment",
			payment: models.Payment{Status: models.StatusAcceptedTechnical},
			auths: []*scamodels.Authorisation{
				creation(p1, scamodels.ScaStatusFinalised),
				cancellation(p1, scamodels.ScaStatusFailed),
			},
			expected: models.StatusAcceptedTechnical,
		},
		{
			name:     "terminal payment is never changed",
			payment:  models.Payment{Status: models.StatusAcceptedSettlementDone},
			auths:    []*scamodels.Authorisation{cancellation(p1, scamodels.ScaStatusFinalised)},
			expected: models.StatusAcceptedSettlementDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recompute(&tt.payment, tt.auths))
		})
	}
}
