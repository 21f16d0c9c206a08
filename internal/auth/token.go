// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSecretLength is the minimum signing secret length in bytes.
const MinSecretLength = 32

// TokenManager issues and validates signed access tokens.
type TokenManager interface {
	// Issue returns a signed token for subject that expires ttl from now.
	Issue(subject string, ttl time.Duration) (string, error)

	// Validate checks the signature, then the expiry, and returns the subject.
	Validate(token string) (string, error)
}

// TokenIssuer implements TokenManager with HS256 JWTs.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock replaces the wall clock used for iat, exp and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIssuer sets the iss claim. Tokens from another issuer are rejected.
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		t.issuer = issuer
	}
}

// NewTokenIssuer creates a TokenIssuer signing with secret.
// A missing or short secret is a CONFIG_INVALID error.
func NewTokenIssuer(secret []byte, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code(CodeConfigInvalid).Errorf("token signing secret is required")
	}
	if len(secret) < MinSecretLength {
		return nil, oops.Code(CodeConfigInvalid).
			With("min_length", MinSecretLength).
			Errorf("token signing secret must be at least %d bytes", MinSecretLength)
	}

	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}
	t.parser = jwt.NewParser(parserOpts...)

	return t, nil
}

// Issue returns a signed token with sub=subject and exp=now+ttl.
func (t *TokenIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", oops.Code("TOKEN_ISSUE_FAILED").Errorf("token subject cannot be empty")
	}

	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        ulid.Make().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("subject", subject).Wrap(err)
	}
	return signed, nil
}

// Validate verifies the token and returns its subject.
// Errors carry TOKEN_MALFORMED, TOKEN_INVALID or TOKEN_EXPIRED.
func (t *TokenIssuer) Validate(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := t.parser.ParseWithClaims(token, claims, t.key); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && t.onlySignatureUndecodable(token) {
			return "", oops.Code(CodeTokenInvalid).Wrapf(err, "invalid token signature")
		}
		return "", classifyTokenError(err)
	}
	if claims.Subject == "" {
		return "", oops.Code(CodeTokenInvalid).Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// onlySignatureUndecodable reports whether the header and claims segments
// decode and the malformed part is the signature. A signature that fails
// strict base64 (padding bits set by an edited last character) is a bad
// signature, not a malformed token.
func (t *TokenIssuer) onlySignatureUndecodable(token string) bool {
	_, _, err := t.parser.ParseUnverified(token, &jwt.RegisteredClaims{})
	return err == nil
}

func (t *TokenIssuer) key(*jwt.Token) (any, error) {
	return t.secret, nil
}

// classifyTokenError maps jwt parse errors onto the token error codes.
// The parser verifies the signature before any claim, so a tampered
// expired token reports TOKEN_INVALID.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return oops.Code(CodeTokenMalformed).Wrapf(err, "malformed token")
	case errors.Is(err, jwt.ErrTokenExpired):
		return oops.Code(CodeTokenExpired).Wrapf(err, "token has expired")
	default:
		return oops.Code(CodeTokenInvalid).Wrapf(err, "invalid token")
	}
}

// Compile-time interface check.
var _ TokenManager = (*TokenIssuer)(nil)
