package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by patient-portal tokens. PatientID is empty
// for staff tokens, which cannot book.
type Claims struct {
	Sub       string
	PatientID string
	Role      string
	Exp       int64
	Iat       int64
}

// tokenClaims is the wire form of Claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	PatientID string `json:"patient_id,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (c Claims) token() tokenClaims {
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: c.Sub},
		PatientID:        c.PatientID,
		Role:             c.Role,
	}
	if c.Exp > 0 {
		tc.ExpiresAt = jwt.NewNumericDate(time.Unix(c.Exp, 0))
	}
	if c.Iat > 0 {
		tc.IssuedAt = jwt.NewNumericDate(time.Unix(c.Iat, 0))
	}
	return tc
}

func (tc *tokenClaims) claims() *Claims {
	c := &Claims{Sub: tc.Subject, PatientID: tc.PatientID, Role: tc.Role}
	if tc.ExpiresAt != nil {
		c.Exp = tc.ExpiresAt.Unix()
	}
	if tc.IssuedAt != nil {
		c.Iat = tc.IssuedAt.Unix()
	}
	return c
}

// SignHS256 mints a token with the shared secret. Used by tests and local tools.
func SignHS256(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty signing secret", ErrInvalidToken)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims.token()).SignedString([]byte(secret))
}
