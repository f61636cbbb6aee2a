package authcore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of an issued identity token.
const DefaultTokenTTL = 24 * time.Hour

// Claims carried by an identity token. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed, time-limited identity tokens.
type TokenService struct {
	// Secret key for HS256 signing. Must be set.
	Secret []byte

	// Issuer claim stamped on issued tokens
	Issuer string

	// Token lifetime. Defaults to DefaultTokenTTL.
	TTL time.Duration
}

func (s *TokenService) ttl() time.Duration {
	if s.TTL != 0 {
		return s.TTL
	}
	return DefaultTokenTTL
}

// Issue creates a signed token embedding the user id and email.
func (s *TokenService) Issue(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the claims.
// A failed verification always short-circuits with ErrTokenInvalid; there
// is no fall-through to an unverified decode.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Decode extracts claims without checking the signature. Callers on a
// security-critical path must call Verify first; Decode alone proves
// nothing about who minted the token.
func (s *TokenService) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
