package machine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

type MachineSuite struct {
	suite.Suite
	machine *Machine
	now     time.Time
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineSuite))
}

func (s *MachineSuite) SetupTest() {
	s.machine = New(WithBcryptCost(bcrypt.MinCost))
	s.now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
}

func (s *MachineSuite) newAuth(status models.ScaStatus) *models.Authorisation {
	expires := s.now.Add(time.Hour)
	return &models.Authorisation{
		ID:                id.NewAuthorisationID(),
		ScaStatus:         status,
		ExpiresAt:         &expires,
		TppNOKRedirectURI: "https://tpp.example/nok",
	}
}

// =============================================================================
// Transition rules
// =============================================================================

// TestForwardOnly verifies movement is monotonic along the SCA path.
// Invariant: no backward movement.
func (s *MachineSuite) TestForwardOnly() {
	cases := []struct {
		from, to models.ScaStatus
		ok       bool
	}{
		{models.ScaStatusReceived, models.ScaStatusPsuIdentified, true},
		{models.ScaStatusReceived, models.ScaStatusStarted, true},
		{models.ScaStatusPsuAuthenticated, models.ScaStatusScaMethodSelected, true},
		{models.ScaStatusStarted, models.ScaStatusFinalised, true},
		{models.ScaStatusStarted, models.ScaStatusUnconfirmed, true},
		{models.ScaStatusUnconfirmed, models.ScaStatusFinalised, true},
		{models.ScaStatusUnconfirmed, models.ScaStatusFailed, true},
		{models.ScaStatusReceived, models.ScaStatusExempted, true},
		{models.ScaStatusPsuIdentified, models.ScaStatusFailed, true},
		{models.ScaStatusStarted, models.ScaStatusPsuIdentified, false},
		{models.ScaStatusScaMethodSelected, models.ScaStatusReceived, false},
		{models.ScaStatusUnconfirmed, models.ScaStatusStarted, false},
		{models.ScaStatusFinalised, models.ScaStatusFailed, false},
		{models.ScaStatusFailed, models.ScaStatusFinalised, false},
		{models.ScaStatusExempted, models.ScaStatusStarted, false},
	}
	for _, tc := range cases {
		s.Run(string(tc.from)+"->"+string(tc.to), func() {
			out, err := s.machine.Transition(s.newAuth(tc.from), tc.to, nil, s.now)
			if tc.ok {
				s.Require().NoError(err)
				s.Equal(tc.to, out.Authorisation.ScaStatus)
				s.True(out.Changed)
				s.Equal(tc.from, out.Previous)
			} else {
				s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
			}
		})
	}
}

// TestIdempotentReapply verifies re-applying the current status is a no-op success.
func (s *MachineSuite) TestIdempotentReapply() {
	s.Run("same final status", func() {
		auth := s.newAuth(models.ScaStatusFinalised)
		out, err := s.machine.Transition(auth, models.ScaStatusFinalised, nil, s.now)
		s.Require().NoError(err)
		s.False(out.Changed)
		s.Equal(models.ScaStatusFinalised, out.Authorisation.ScaStatus)
	})

	s.Run("same final status ignores expiry", func() {
		auth := s.newAuth(models.ScaStatusFailed)
		out, err := s.machine.Transition(auth, models.ScaStatusFailed, nil, s.now.Add(48*time.Hour))
		s.Require().NoError(err)
		s.False(out.Changed)
	})

	s.Run("same non-final status", func() {
		out, err := s.machine.Transition(s.newAuth(models.ScaStatusStarted), models.ScaStatusStarted, nil, s.now)
		s.Require().NoError(err)
		s.False(out.Changed)
	})
}

// TestExpiryPrecedence verifies a lapsed authorisation refuses every target.
func (s *MachineSuite) TestExpiryPrecedence() {
	auth := s.newAuth(models.ScaStatusStarted)
	later := s.now.Add(2 * time.Hour)

	for _, target := range []models.ScaStatus{models.ScaStatusFinalised, models.ScaStatusFailed, models.ScaStatusPsuIdentified} {
		_, err := s.machine.Transition(auth, target, nil, later)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorisationExpired), target)
		uri, ok := dErrors.RedirectURI(err)
		s.True(ok)
		s.Equal("https://tpp.example/nok", uri)
	}
	s.Equal(models.ScaStatusStarted, auth.ScaStatus, "input must not be mutated")
}

func (s *MachineSuite) TestExpiryBoundary() {
	auth := s.newAuth(models.ScaStatusStarted)
	out, err := s.machine.Transition(auth, models.ScaStatusFinalised, nil, *auth.ExpiresAt)
	s.Require().NoError(err)
	s.Equal(models.ScaStatusFinalised, out.Authorisation.ScaStatus)
}

// =============================================================================
// Authentication data
// =============================================================================

func (s *MachineSuite) TestAuthenticationDataWriteOnce() {
	input := &models.AuthenticationInput{MethodID: "sms", Code: "123456"}

	out, err := s.machine.Transition(s.newAuth(models.ScaStatusPsuAuthenticated), models.ScaStatusScaMethodSelected, input, s.now)
	s.Require().NoError(err)
	selected := out.Authorisation
	s.Equal("sms", selected.ChosenMethodID)
	s.Require().NotNil(selected.AuthenticationData)
	s.NotEqual([]byte("123456"), selected.AuthenticationData.CodeHash)

	s.Run("identical data is accepted at STARTED", func() {
		out, err := s.machine.Transition(selected, models.ScaStatusStarted, input, s.now)
		s.Require().NoError(err)
		s.Equal(models.ScaStatusStarted, out.Authorisation.ScaStatus)
	})

	s.Run("different data is refused", func() {
		_, err := s.machine.Transition(selected, models.ScaStatusStarted,
			&models.AuthenticationInput{MethodID: "push", Code: "999"}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("data outside method selection is refused", func() {
		_, err := s.machine.Transition(s.newAuth(models.ScaStatusStarted), models.ScaStatusFinalised, input, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *MachineSuite) TestVerifyCode() {
	started := func() *models.Authorisation {
		out, err := s.machine.Transition(s.newAuth(models.ScaStatusScaMethodSelected), models.ScaStatusStarted,
			&models.AuthenticationInput{MethodID: "push", Code: "4711"}, s.now)
		s.Require().NoError(err)
		return out.Authorisation
	}

	s.Run("matching code finalises", func() {
		out, matched, err := s.machine.VerifyCode(started(), "4711", s.now)
		s.Require().NoError(err)
		s.True(matched)
		s.Equal(models.ScaStatusFinalised, out.Authorisation.ScaStatus)
	})

	s.Run("first mismatch parks in UNCONFIRMED, second fails", func() {
		out, matched, err := s.machine.VerifyCode(started(), "0000", s.now)
		s.Require().NoError(err)
		s.False(matched)
		s.Equal(models.ScaStatusUnconfirmed, out.Authorisation.ScaStatus)

		out, matched, err = s.machine.VerifyCode(out.Authorisation, "0001", s.now)
		s.Require().NoError(err)
		s.False(matched)
		s.Equal(models.ScaStatusFailed, out.Authorisation.ScaStatus)
	})

	s.Run("retry from UNCONFIRMED can still finalise", func() {
		out, _, err := s.machine.VerifyCode(started(), "0000", s.now)
		s.Require().NoError(err)
		out, matched, err := s.machine.VerifyCode(out.Authorisation, "4711", s.now)
		s.Require().NoError(err)
		s.True(matched)
		s.Equal(models.ScaStatusFinalised, out.Authorisation.ScaStatus)
	})

	s.Run("no stored code is invalid state", func() {
		_, _, err := s.machine.VerifyCode(s.newAuth(models.ScaStatusStarted), "4711", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestUnknownTarget(t *testing.T) {
	_, err := New().Transition(&models.Authorisation{ScaStatus: models.ScaStatusReceived}, "DONE", nil, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *MachineSuite) TestExpire() {
	s.Run("open authorisation past its expiration fails", func() {
		auth := s.newAuth(models.ScaStatusStarted)
		out, err := s.machine.Expire(auth, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.True(out.Changed)
		s.Equal(models.ScaStatusFailed, out.Authorisation.ScaStatus)
		s.Equal(models.ScaStatusStarted, out.Previous)
		s.Equal(models.ScaStatusStarted, auth.ScaStatus, "input is not mutated")
	})

	s.Run("unexpired authorisation is refused", func() {
		_, err := s.machine.Expire(s.newAuth(models.ScaStatusReceived), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("final authorisation is left alone", func() {
		out, err := s.machine.Expire(s.newAuth(models.ScaStatusFinalised), s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.False(out.Changed)
		s.Equal(models.ScaStatusFinalised, out.Authorisation.ScaStatus)
	})
}

func (s *MachineSuite) TestExpireRedirect() {
	s.Run("lapsed redirect URL fails an open authorisation", func() {
		auth := s.newAuth(models.ScaStatusPsuIdentified)
		redirectUntil := s.now.Add(10 * time.Minute)
		auth.RedirectURLExpiresAt = &redirectUntil

		out, err := s.machine.ExpireRedirect(auth, s.now.Add(11*time.Minute))
		s.Require().NoError(err)
		s.True(out.Changed)
		s.Equal(models.ScaStatusFailed, out.Authorisation.ScaStatus)
		s.Equal(models.ScaStatusPsuIdentified, out.Previous)
	})

	s.Run("lapsed authorisation expiration fails it too", func() {
		out, err := s.machine.ExpireRedirect(s.newAuth(models.ScaStatusReceived), s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Equal(models.ScaStatusFailed, out.Authorisation.ScaStatus)
	})

	s.Run("open redirect is refused", func() {
		_, err := s.machine.ExpireRedirect(s.newAuth(models.ScaStatusReceived), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("final authorisation is left alone", func() {
		out, err := s.machine.ExpireRedirect(s.newAuth(models.ScaStatusExempted), s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.False(out.Changed)
	})
}
