package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "xs2acms/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseConsentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePaymentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseAuthorisationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseConsentID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ConsentID(validUUID), id)
	})
}

func TestParseInstanceID(t *testing.T) {
	assert.Equal(t, DefaultInstanceID, ParseInstanceID(""))
	assert.Equal(t, DefaultInstanceID, ParseInstanceID("   "))
	assert.Equal(t, InstanceID("bank-a"), ParseInstanceID(" bank-a "))
}

// TestTypeDistinction verifies the compiler enforces type safety.
func TestTypeDistinction(t *testing.T) {
	consentID := NewConsentID()
	paymentID := NewPaymentID()

	// var _ ConsentID = paymentID // compile error

	assert.NotEqual(t, uuid.UUID(consentID), uuid.UUID(paymentID))
	assert.False(t, consentID.IsNil())
}
