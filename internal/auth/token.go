// Package auth issues and validates the bearer tokens accepted by the
// administrative command interface (§6's admin command collaborator).
// A single operator role exists; there are no per-user accounts, so the
// token carries only an operator name and an expiry.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued to an authenticated operator.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates operator bearer tokens with a single
// fixed secret handed in by the caller (cmd/brokerd passes the config
// package's Admin.JWTSecret). TokenIssuer reads no environment variable
// itself; config.Validate refuses to start without ADMIN_JWT_SECRET only
// in production and substitutes a development default otherwise.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds a TokenIssuer. ttl is the lifetime of minted
// tokens; callers typically pass 8*time.Hour.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue mints a signed token for operator.
func (i *TokenIssuer) Issue(operator string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "fixcore-adminapi",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses and verifies tokenString, returning its claims.
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: token invalid")
	}
	return claims, nil
}
