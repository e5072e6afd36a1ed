package service

import (
	"context"
	"errors"
	"log/slog"

	"go-bookshelf/internal/model"
	"go-bookshelf/internal/ratelimit"
	"go-bookshelf/pkg/apierror"
)

// Outcomes reported to an AuthObserver.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeConflict     = "conflict"
	OutcomeRateLimited  = "rate_limited"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

type AuthObserver interface {
	ObserveAuthAttempt(route string, outcome string)
}

type attemptLimiter interface {
	Check(clientKey string, route string) (ratelimit.Decision, error)
}

// AuthService orchestrates registration and login: input validation, the
// attempt limiter, the credential store and the token issuer, in that order.
type AuthService struct {
	credentials *CredentialStore
	tokens      *TokenIssuer
	limiter     attemptLimiter
	observer    AuthObserver
}

func NewAuthService(credentials *CredentialStore, tokens *TokenIssuer, limiter attemptLimiter, observer AuthObserver) *AuthService {
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		limiter:     limiter,
		observer:    observer,
	}
}

// Register and Login also return the attempt window state of the client. It
// is the zero Decision when the request never reached the limiter or limiting
// is disabled.
func (s *AuthService) Register(ctx context.Context, clientKey string, req model.CredentialsRequest) (model.AuthUser, ratelimit.Decision, error) {
	req.Normalize()
	if !req.Complete() {
		s.observe(ratelimit.RouteRegister, OutcomeInvalid)
		return model.AuthUser{}, ratelimit.Decision{}, apierror.BadRequest("username and password are required", "")
	}

	decision, err := s.checkLimit(clientKey, ratelimit.RouteRegister)
	if err != nil {
		return model.AuthUser{}, decision, err
	}

	_, err = s.credentials.FindUser(ctx, req.Username)
	switch {
	case err == nil:
		s.observe(ratelimit.RouteRegister, OutcomeConflict)
		return model.AuthUser{}, decision, apierror.Conflict("username already exists", req.Username)
	case !errors.Is(err, model.ErrUserNotFound):
		s.observe(ratelimit.RouteRegister, OutcomeError)
		return model.AuthUser{}, decision, err
	}

	user, err := s.credentials.CreateUser(ctx, req.Username, req.Password)
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) && apiErr.Code == apierror.CodeConflict {
			s.observe(ratelimit.RouteRegister, OutcomeConflict)
		} else {
			s.observe(ratelimit.RouteRegister, OutcomeError)
		}
		return model.AuthUser{}, decision, err
	}

	s.observe(ratelimit.RouteRegister, OutcomeSuccess)
	slog.Info("user registered", "username", user.Username, "client", clientKey)

	return user.Public(), decision, nil
}

// Login reports missing fields as Unauthorized rather than BadRequest; the
// HTTP contract clients depend on keeps that asymmetry with Register.
func (s *AuthService) Login(ctx context.Context, clientKey string, req model.CredentialsRequest) (model.LoginResponse, ratelimit.Decision, error) {
	req.Normalize()
	if !req.Complete() {
		s.observe(ratelimit.RouteLogin, OutcomeInvalid)
		return model.LoginResponse{}, ratelimit.Decision{}, apierror.Unauthorized("username and password are required")
	}

	decision, err := s.checkLimit(clientKey, ratelimit.RouteLogin)
	if err != nil {
		return model.LoginResponse{}, decision, err
	}

	user, err := s.credentials.FindUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.rejectLogin(clientKey, req.Username, "unknown user")
			return model.LoginResponse{}, decision, apierror.Unauthorized("invalid credentials")
		}
		s.observe(ratelimit.RouteLogin, OutcomeError)
		return model.LoginResponse{}, decision, err
	}

	if err := s.credentials.VerifyPassword(user, req.Password); err != nil {
		s.rejectLogin(clientKey, req.Username, "password mismatch")
		return model.LoginResponse{}, decision, apierror.Unauthorized("invalid credentials")
	}

	issued, err := s.tokens.Issue(user)
	if err != nil {
		s.observe(ratelimit.RouteLogin, OutcomeError)
		return model.LoginResponse{}, decision, err
	}

	s.observe(ratelimit.RouteLogin, OutcomeSuccess)

	return model.LoginResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		Username:  user.Username,
	}, decision, nil
}

func (s *AuthService) ValidateToken(token string) (*model.AuthClaims, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) checkLimit(clientKey string, route string) (ratelimit.Decision, error) {
	if s.limiter == nil {
		return ratelimit.Decision{}, nil
	}

	decision, err := s.limiter.Check(clientKey, route)
	if err != nil {
		s.observe(route, OutcomeRateLimited)
		slog.Warn("auth attempt rate limited", "route", route, "client", clientKey, "reset_at", decision.ResetAt)
		return decision, err
	}

	return decision, nil
}

func (s *AuthService) rejectLogin(clientKey string, username string, reason string) {
	s.observe(ratelimit.RouteLogin, OutcomeUnauthorized)
	slog.Warn("login rejected", "username", username, "client", clientKey, "reason", reason)
}

func (s *AuthService) observe(route string, outcome string) {
	if s.observer != nil {
		s.observer.ObserveAuthAttempt(route, outcome)
	}
}
