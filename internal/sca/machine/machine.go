// Package machine enforces the SCA status lifecycle of a single authorisation.
//
// Movement is monotonic along RECEIVED → PSUIDENTIFIED → PSUAUTHENTICATED →
// SCAMETHODSELECTED → STARTED → FINALISED, with FAILED and EXEMPTED reachable
// from any non-final status and UNCONFIRMED parked between STARTED and FINALISED.
// The machine is pure: it returns an updated copy and never persists anything.
package machine

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"xs2acms/internal/sca/expiry"
	"xs2acms/internal/sca/models"
	dErrors "xs2acms/pkg/domain-errors"
)

// Machine applies transitions. The zero value is not usable; call New.
type Machine struct {
	bcryptCost int
}

// Option configures the Machine.
type Option func(*Machine)

// WithBcryptCost sets the cost used to hash one-time SCA codes.
func WithBcryptCost(cost int) Option {
	return func(m *Machine) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			m.bcryptCost = cost
		}
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Outcome is the result of an accepted transition.
type Outcome struct {
	Authorisation *models.Authorisation
	Previous      models.ScaStatus
	// Changed is false when the request re-applied the current status without new data.
	Changed bool
}

// Transition moves auth to target, optionally attaching authentication data.
//
// Re-applying the status an authorisation already holds is a no-op success,
// including for final statuses. Any other move out of a final status, or a
// backwards move, is CodeInvalidTransition. A lapsed authorisation expiration
// yields CodeAuthorisationExpired carrying the TPP NOK redirect URI.
func (m *Machine) Transition(auth *models.Authorisation, target models.ScaStatus, input *models.AuthenticationInput, now time.Time) (*Outcome, error) {
	if !target.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "unknown SCA status "+string(target))
	}
	current := auth.ScaStatus

	if current.IsFinalised() {
		if target == current && input == nil {
			return &Outcome{Authorisation: auth.Clone(), Previous: current}, nil
		}
		return nil, invalidTransition(current, target)
	}

	if expiry.IsExpired(auth.ExpiresAt, now) {
		return nil, dErrors.WithRedirect(dErrors.CodeAuthorisationExpired,
			"authorisation expired", auth.TppNOKRedirectURI)
	}

	if !allowed(current, target) {
		return nil, invalidTransition(current, target)
	}

	next := auth.Clone()
	changed := target != current
	if input != nil {
		attached, err := m.attach(next, target, input)
		if err != nil {
			return nil, err
		}
		changed = changed || attached
	}
	if !changed {
		return &Outcome{Authorisation: next, Previous: current}, nil
	}

	next.ScaStatus = target
	next.UpdatedAt = now
	return &Outcome{Authorisation: next, Previous: current, Changed: true}, nil
}

// VerifyCode checks a decoupled confirmation code against the stored hash.
// A match finalises the authorisation. The first mismatch parks it in
// UNCONFIRMED; a second mismatch fails it.
func (m *Machine) VerifyCode(auth *models.Authorisation, code string, now time.Time) (*Outcome, bool, error) {
	if auth.ScaStatus.IsFinalised() {
		return nil, false, invalidTransition(auth.ScaStatus, models.ScaStatusFinalised)
	}
	if auth.AuthenticationData == nil || len(auth.AuthenticationData.CodeHash) == 0 {
		return nil, false, dErrors.New(dErrors.CodeInvalidState, "no confirmation code stored for authorisation")
	}

	matched := bcrypt.CompareHashAndPassword(auth.AuthenticationData.CodeHash, []byte(code)) == nil
	target := models.ScaStatusFinalised
	if !matched {
		target = models.ScaStatusUnconfirmed
		if auth.ScaStatus == models.ScaStatusUnconfirmed {
			target = models.ScaStatusFailed
		}
	}

	out, err := m.Transition(auth, target, nil, now)
	if err != nil {
		return nil, false, err
	}
	return out, matched, nil
}

// Expire fails an open authorisation whose expiration has passed. It is the
// only way an expired authorisation still moves; Transition refuses it.
func (m *Machine) Expire(auth *models.Authorisation, now time.Time) (*Outcome, error) {
	if auth.ScaStatus.IsFinalised() {
		return &Outcome{Authorisation: auth.Clone(), Previous: auth.ScaStatus}, nil
	}
	if !expiry.IsExpired(auth.ExpiresAt, now) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "authorisation has not expired")
	}
	return fail(auth, now), nil
}

// ExpireRedirect fails an open authorisation a PSU reached after its
// redirect URL or its authorisation expiration lapsed.
func (m *Machine) ExpireRedirect(auth *models.Authorisation, now time.Time) (*Outcome, error) {
	if auth.ScaStatus.IsFinalised() {
		return &Outcome{Authorisation: auth.Clone(), Previous: auth.ScaStatus}, nil
	}
	if !expiry.IsExpired(auth.RedirectURLExpiresAt, now) && !expiry.IsExpired(auth.ExpiresAt, now) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "authorisation redirect has not expired")
	}
	return fail(auth, now), nil
}

func fail(auth *models.Authorisation, now time.Time) *Outcome {
	next := auth.Clone()
	next.ScaStatus = models.ScaStatusFailed
	next.UpdatedAt = now
	return &Outcome{Authorisation: next, Previous: auth.ScaStatus, Changed: true}
}

// attach stores authentication data once. Re-sending identical data is accepted.
func (m *Machine) attach(auth *models.Authorisation, target models.ScaStatus, input *models.AuthenticationInput) (bool, error) {
	if target != models.ScaStatusScaMethodSelected && target != models.ScaStatusStarted {
		return false, dErrors.New(dErrors.CodeInvalidTransition,
			"authentication data can only be attached at SCAMETHODSELECTED or STARTED")
	}

	if existing := auth.AuthenticationData; existing != nil {
		if existing.MethodID == input.MethodID && sameCode(existing.CodeHash, input.Code) {
			return false, nil
		}
		return false, dErrors.New(dErrors.CodeInvalidTransition, "authentication data already set")
	}

	data := &models.AuthenticationData{MethodID: input.MethodID}
	if input.Code != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Code), m.bcryptCost)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to hash authentication code")
		}
		data.CodeHash = hash
	}
	auth.AuthenticationData = data
	auth.ChosenMethodID = input.MethodID
	return true, nil
}

func sameCode(hash []byte, code string) bool {
	if len(hash) == 0 {
		return code == ""
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil
}

func allowed(current, target models.ScaStatus) bool {
	switch {
	case target == current:
		return true
	case target == models.ScaStatusFailed, target == models.ScaStatusExempted:
		return true
	case current == models.ScaStatusUnconfirmed:
		return target == models.ScaStatusFinalised
	default:
		return target.Rank() > current.Rank()
	}
}

func invalidTransition(from, to models.ScaStatus) error {
	return dErrors.New(dErrors.CodeInvalidTransition,
		"transition from "+string(from)+" to "+string(to)+" is not allowed")
}
