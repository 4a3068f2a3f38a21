// Package redirect issues and resolves the opaque redirect identifiers that
// the TPP hands to the PSU's browser. A redirect ID is an HS256 JWT naming
// the authorisation, its instance and its parent type.
package redirect

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

// Claims are carried inside a redirect ID.
type Claims struct {
	InstanceID string `json:"iid"`
	ParentType string `json:"ptyp"`
	jwt.RegisteredClaims
}

// Target is the resolved content of a redirect ID.
type Target struct {
	AuthorisationID id.AuthorisationID
	InstanceID      id.InstanceID
	ParentType      models.ParentType
}

// Signer issues and parses redirect IDs.
type Signer struct {
	signingKey []byte
	issuer     string
}

func NewSigner(signingKey, issuer string) *Signer {
	return &Signer{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue encodes the authorisation. The token expiry mirrors the redirect URL
// expiry for the PSU's benefit; enforcement stays with the lifecycle services.
func (s *Signer) Issue(auth *models.Authorisation) (string, error) {
	claims := Claims{
		InstanceID: auth.InstanceID.String(),
		ParentType: string(auth.ParentType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  auth.ID.String(),
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(auth.CreatedAt),
		},
	}
	if auth.RedirectURLExpiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*auth.RedirectURLExpiresAt)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign redirect id")
	}
	return signed, nil
}

// Parse verifies the signature and returns the target authorisation.
// Time-based claims are not validated here so an expired redirect still
// resolves and the caller can answer with the TPP NOK redirect URI.
func (s *Signer) Parse(redirectID string) (*Target, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(redirectID, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid redirect id signature")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed redirect id")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid redirect id signature")
	}

	authID, err := id.ParseAuthorisationID(claims.Subject)
	if err != nil {
		return nil, err
	}
	return &Target{
		AuthorisationID: authID,
		InstanceID:      id.ParseInstanceID(claims.InstanceID),
		ParentType:      models.ParentType(claims.ParentType),
	}, nil
}
