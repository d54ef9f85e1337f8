package sec

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the authenticated principal attached to a request after its
// bearer token validates. It lives for the duration of the request only.
type Identity struct {
	Subject string
	Roles   []string
}

// HasAnyRole reports whether the identity holds at least one of the given
// roles.
func (id Identity) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range id.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// tokenClaims is the only claims shape issued or accepted by the codec.
type tokenClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates signed, expiring bearer tokens. The secret
// key and TTL are fixed at construction; a codec is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec signing with the given symmetric secret.
// Tokens expire ttl after issue.
func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, ttl: ttl}
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue creates a signed token for the subject with expiry now + TTL. The
// signature covers the subject, both timestamps and the roles claim, so
// tampering with any of them is detectable.
func (c *TokenCodec) Issue(subject string, roles []string, now time.Time) (string, error) {
	claims := tokenClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Validate parses and verifies a token string at the given instant. Expiry is
// strict: a token is rejected from its exact expiry instant onward, with no
// clock-skew leeway. Failures are reported as [ErrTokenMalformed],
// [ErrBadSignature] or [ErrTokenExpired]; the raw parser error never leaves
// this method.
func (c *TokenCodec) Validate(raw string, now time.Time) (Identity, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return Identity{Subject: claims.Subject, Roles: claims.Roles}, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Identity{}, ErrBadSignature
	default:
		return Identity{}, ErrTokenMalformed
	}
}
