package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "xs2acms/pkg/domain-errors"
)

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(" actc ")
	require.NoError(t, err)
	assert.Equal(t, StatusAcceptedTechnical, got)

	_, err = ParseStatus("DONE")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestTransactionStatus_IsFinalised(t *testing.T) {
	for _, s := range []TransactionStatus{StatusRejected, StatusCancelled, StatusAcceptedSettlementDone, StatusAcceptedCreditSettled} {
		assert.True(t, s.IsFinalised(), s)
	}
	for _, s := range []TransactionStatus{StatusReceived, StatusPartiallyAccepted, StatusAcceptedTechnical, StatusAcceptedSettlementInPrc, StatusPending} {
		assert.False(t, s.IsFinalised(), s)
	}
}

func TestParsePaymentType(t *testing.T) {
	got, err := ParsePaymentType("periodic")
	require.NoError(t, err)
	assert.Equal(t, PaymentTypePeriodic, got)

	_, err = ParsePaymentType("instant")
	assert.Error(t, err)
}
