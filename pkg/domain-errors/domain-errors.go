package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Lifecycle codes for consents, payments and their authorisations.
	CodeInvalidTransition      Code = "invalid_transition"      // SCA status change not allowed from the current status
	CodeInvalidState           Code = "invalid_state"           // parent already in a different terminal status
	CodeWrongChecksum          Code = "wrong_checksum"          // immutable consent fields changed after activation
	CodeAuthorisationExpired   Code = "authorisation_expired"   // authorisation expiration timestamp passed
	CodeRedirectExpired        Code = "redirect_expired"        // redirect URL expiration timestamp passed
	CodeConcurrentModification Code = "concurrent_modification" // version changed twice between load and persist
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// RedirectURI is the TPP NOK redirect URI attached to expiry failures so the
	// PSU can be sent back to the TPP.
	RedirectURI string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// WithRedirect creates a domain error that carries the TPP NOK redirect URI.
func WithRedirect(code Code, msg, redirectURI string) error {
	return &Error{Code: code, Message: msg, RedirectURI: redirectURI}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, RedirectURI: existing.RedirectURI}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the domain code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// RedirectURI extracts the TPP redirect URI carried by an expiry error.
func RedirectURI(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.RedirectURI != "" {
		return e.RedirectURI, true
	}
	return "", false
}
