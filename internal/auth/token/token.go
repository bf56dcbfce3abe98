// Package token issues and verifies the HS256 bearer tokens handed out at
// login. A token asserts the user's email as subject and an expiry; the
// principal itself is looked up on every request.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "orgstructure/pkg/domain-errors"
)

const issuer = "orgstructure"

type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and validates access tokens with a shared secret.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{signingKey: []byte(signingKey), ttl: ttl}
}

// TTL is the lifetime of issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for email valid from now for the configured TTL.
func (s *Service) Issue(email string, now time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// Subject validates raw and returns the email it was issued for.
func (s *Service) Subject(raw string) (string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials")
	}
	return claims.Subject, nil
}
