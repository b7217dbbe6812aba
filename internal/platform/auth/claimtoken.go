package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidClaimToken indicates the claim token is malformed, expired, or
// was not signed by this server.
var ErrInvalidClaimToken = errors.New("invalid claim token")

const claimTokenIssuer = "carebrief"

// claimTokenClaims binds a claim token to one summary.
type claimTokenClaims struct {
	jwt.RegisteredClaims
	SummaryID string `json:"summary_id"`
}

// ClaimTokenIssuer mints and verifies signed claim tokens. A claim token lets
// a patient link their account to one summary; it expires after TTL (90 days
// by default) and is useless for anything else.
type ClaimTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewClaimTokenIssuer creates an issuer signing with secret; tokens expire
// after ttl.
func NewClaimTokenIssuer(secret []byte, ttl time.Duration) *ClaimTokenIssuer {
	return &ClaimTokenIssuer{secret: secret, ttl: ttl}
}

// ErrNoClaimSecret indicates the issuer was constructed without a signing
// secret. An empty HMAC key would make every token forgeable, so both Issue
// and Verify refuse to operate in that state.
var ErrNoClaimSecret = errors.New("claim token secret is not configured")

// Issue returns a signed claim token for the given summary.
func (i *ClaimTokenIssuer) Issue(summaryID string) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoClaimSecret
	}
	now := time.Now()
	claims := claimTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    claimTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		SummaryID: summaryID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign claim token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a claim token and returns the
// summary id it was issued for.
func (i *ClaimTokenIssuer) Verify(tokenStr string) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoClaimSecret
	}
	claims := &claimTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(claimTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.SummaryID == "" {
		return "", ErrInvalidClaimToken
	}
	return claims.SummaryID, nil
}
