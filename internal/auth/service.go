// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// Attempt outcomes reported to an AttemptRecorder.
const (
	OutcomeSuccess            = "success"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInactive           = "inactive"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeError              = "error"
)

var tracer = otel.Tracer("github.com/cityplanner/cityplanner/internal/auth")

// dummyPasswordHash is verified when a user doesn't exist so that unknown
// emails take as long as wrong passwords. It never matches any password.
//
//nolint:gosec // G101: intentionally fake digest, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AttemptRecorder counts authentication attempts by operation and outcome.
type AttemptRecorder interface {
	RecordAuthAttempt(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthAttempt(string, string) {}

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// Service provides registration, login and token authentication.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   TokenManager
	tokenTTL time.Duration
	logger   *slog.Logger
	recorder AttemptRecorder
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAttemptRecorder sets the metrics sink for login and registration attempts.
func WithAttemptRecorder(r AttemptRecorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService creates a new Service. All positional dependencies are required.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenManager, tokenTTL time.Duration, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("token manager is required")
	}
	if tokenTTL <= 0 {
		return nil, oops.Code(CodeConfigInvalid).With("token_ttl", tokenTTL.String()).Errorf("token ttl must be positive")
	}

	s := &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("logger cannot be nil")
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	return s, nil
}

// Register creates a new active user.
// A duplicate email is reported by the repository's unique constraint as
// AUTH_DUPLICATE_EMAIL; there is no lookup beforehand.
func (s *Service) Register(ctx context.Context, email, password string, fullName *string) (*User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.fail(span, "register", OutcomeInvalidInput, err)
		return nil, err
	}

	user, err := NewUser(email, hash, fullName)
	if err != nil {
		s.fail(span, "register", OutcomeInvalidInput, err)
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if isCode(err, CodeDuplicateEmail) {
			s.fail(span, "register", OutcomeDuplicate, err)
			return nil, err
		}
		s.fail(span, "register", OutcomeError, err)
		return nil, oops.With("operation", "insert user").Wrap(err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	s.recorder.RecordAuthAttempt("register", OutcomeSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login verifies credentials and issues an access token.
//
// Unknown email and wrong password both return AUTH_INVALID_CREDENTIALS
// with the same message. The active flag is checked only after the password
// verified, so an inactive account with the right password gets
// AUTH_ACCOUNT_INACTIVE.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(email))

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			s.fail(span, "login", OutcomeError, lookupErr)
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify so unknown emails cost the same as wrong passwords.
	valid := s.hasher.Verify(password, targetHash)
	if !userExists || !valid {
		err := oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
		s.fail(span, "login", OutcomeInvalidCredentials, err)
		return nil, err
	}

	if !user.IsActive {
		err := oops.Code(CodeAccountInactive).With("user_id", user.ID.String()).Errorf("user account is inactive")
		s.fail(span, "login", OutcomeInactive, err)
		return nil, err
	}

	accessToken, err := s.tokens.Issue(user.ID.String(), s.tokenTTL)
	if err != nil {
		s.fail(span, "login", OutcomeError, err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	s.recorder.RecordAuthAttempt("login", OutcomeSuccess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return &Token{
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.tokenTTL,
	}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer span.End()

	subject, err := s.tokens.Validate(token)
	if err != nil {
		s.fail(span, "authenticate", OutcomeInvalidToken, err)
		return nil, err
	}

	id, err := ulid.Parse(subject)
	if err != nil {
		err = oops.Code(CodeTokenInvalid).With("subject", subject).Wrapf(err, "invalid token subject")
		s.fail(span, "authenticate", OutcomeInvalidToken, err)
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = oops.Code(CodeTokenInvalid).With("subject", subject).Errorf("token subject no longer exists")
			s.fail(span, "authenticate", OutcomeInvalidToken, err)
			return nil, err
		}
		s.fail(span, "authenticate", OutcomeError, err)
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !user.IsActive {
		err := oops.Code(CodeAccountInactive).With("user_id", user.ID.String()).Errorf("user account is inactive")
		s.fail(span, "authenticate", OutcomeInactive, err)
		return nil, err
	}

	return user, nil
}

// SetActive toggles the active flag of the user with the given email.
func (s *Service) SetActive(ctx context.Context, email string, active bool) error {
	ctx, span := tracer.Start(ctx, "auth.SetActive")
	defer span.End()

	email = NormalizeEmail(email)
	if err := s.users.SetActive(ctx, email, active); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "set active failed")
		return oops.With("operation", "set active").With("email", email).Wrap(err)
	}
	s.logger.InfoContext(ctx, "user active flag changed", "email", email, "active", active)
	return nil
}

// fail records a failed attempt on the span and the recorder.
// Expected rejections are not span errors.
func (s *Service) fail(span trace.Span, operation, outcome string, err error) {
	s.recorder.RecordAuthAttempt(operation, outcome)
	if outcome == OutcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
	}
}

// isCode reports whether err is an oops error carrying code.
func isCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
