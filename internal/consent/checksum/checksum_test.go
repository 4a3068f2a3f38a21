package checksum

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xs2acms/internal/consent/models"
	dErrors "xs2acms/pkg/domain-errors"
)

func newConsent() *models.Consent {
	return &models.Consent{
		ConsentType: models.ConsentTypeAIS,
		TppAccess: models.AccountAccess{
			Accounts: []models.AccountReference{
				{IBAN: "DE89370400440532013000", Currency: "EUR"},
				{IBAN: "DE02120300000000202051", Currency: "EUR"},
			},
		},
		ValidUntil:         time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		FrequencyPerDay:    4,
		RecurringIndicator: true,
	}
}

func TestCompute(t *testing.T) {
	t.Run("has version prefix and a single part without aspsp access", func(t *testing.T) {
		sum, err := Compute(newConsent())
		require.NoError(t, err)
		parts := strings.Split(sum, "_")
		require.Len(t, parts, 2)
		assert.Equal(t, "002", parts[0])
	})

	t.Run("appends aspsp part when accesses were resolved", func(t *testing.T) {
		c := newConsent()
		c.AspspAccess = &models.AccountAccess{Accounts: []models.AccountReference{{IBAN: "DE89370400440532013000"}}}
		sum, err := Compute(c)
		require.NoError(t, err)
		assert.Len(t, strings.Split(sum, "_"), 3)
	})

	t.Run("is independent of account order", func(t *testing.T) {
		a := newConsent()
		b := newConsent()
		b.TppAccess.Accounts[0], b.TppAccess.Accounts[1] = b.TppAccess.Accounts[1], b.TppAccess.Accounts[0]

		sumA, err := Compute(a)
		require.NoError(t, err)
		sumB, err := Compute(b)
		require.NoError(t, err)
		assert.Equal(t, sumA, sumB)
	})

	t.Run("ignores mutable fields", func(t *testing.T) {
		a := newConsent()
		b := newConsent()
		b.Status = models.StatusValid
		b.MultilevelScaRequired = true
		b.Version = 7

		sumA, _ := Compute(a)
		sumB, _ := Compute(b)
		assert.Equal(t, sumA, sumB)
	})

	t.Run("changes when validity changes", func(t *testing.T) {
		a := newConsent()
		b := newConsent()
		b.ValidUntil = b.ValidUntil.AddDate(0, 0, 1)

		sumA, _ := Compute(a)
		sumB, _ := Compute(b)
		assert.NotEqual(t, sumA, sumB)
	})
}

func TestVerify(t *testing.T) {
	c := newConsent()
	sum, err := Compute(c)
	require.NoError(t, err)

	require.NoError(t, Verify(c, sum))

	c.FrequencyPerDay = 100
	err = Verify(c, sum)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeWrongChecksum))

	err = Verify(newConsent(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeWrongChecksum))
}

func TestEnforced(t *testing.T) {
	c := newConsent()
	assert.False(t, Enforced(c))
	now := time.Now()
	c.ActivatedAt = &now
	assert.True(t, Enforced(c))
}
