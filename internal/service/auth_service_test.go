package service

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bookshelf/internal/model"
	"go-bookshelf/internal/ratelimit"
	"go-bookshelf/pkg/apierror"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func (o *recordingObserver) ObserveAuthAttempt(route string, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string][]string{}
	}
	o.outcomes[route] = append(o.outcomes[route], outcome)
}

func (o *recordingObserver) get(route string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes[route]...)
}

func newTestAuthService(t *testing.T, opts ratelimit.Options) (*AuthService, *recordingObserver) {
	t.Helper()

	store, _ := newTestCredentialStore()
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	observer := &recordingObserver{}
	return NewAuthService(store, issuer, ratelimit.New(opts), observer), observer
}

func requireAPIStatus(t *testing.T, err error, status int) *apierror.APIError {
	t.Helper()

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr), "expected *apierror.APIError, got %v", err)
	require.Equal(t, status, apiErr.HTTPStatus)
	return apiErr
}

func creds(username, password string) model.CredentialsRequest {
	return model.CredentialsRequest{Username: username, Password: password}
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	t.Parallel()

	svc, observer := newTestAuthService(t, ratelimit.Options{Disabled: true})

	user, _, err := svc.Register(t.Context(), "127.0.0.1", creds("testuser", "testpass"))
	require.NoError(t, err)
	assert.Equal(t, "testuser", user.Username)

	for i := 0; i < 3; i++ {
		_, _, err = svc.Register(t.Context(), "127.0.0.1", creds("testuser", "testpass"))
		requireAPIStatus(t, err, http.StatusConflict)
	}

	assert.Equal(t, []string{OutcomeSuccess, OutcomeConflict, OutcomeConflict, OutcomeConflict}, observer.get(ratelimit.RouteRegister))
}

func TestRegister_MissingFieldsIsBadRequest(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, ratelimit.Options{Disabled: true})

	_, _, err := svc.Register(t.Context(), "c", creds("", "pw"))
	requireAPIStatus(t, err, http.StatusBadRequest)

	_, _, err = svc.Register(t.Context(), "c", creds("   ", "pw"))
	requireAPIStatus(t, err, http.StatusBadRequest)

	_, _, err = svc.Register(t.Context(), "c", creds("user", ""))
	requireAPIStatus(t, err, http.StatusBadRequest)
}

func TestLogin_Flow(t *testing.T) {
	t.Parallel()

	svc, observer := newTestAuthService(t, ratelimit.Options{Disabled: true})

	_, _, err := svc.Login(t.Context(), "c", creds("testuser", "testpass"))
	requireAPIStatus(t, err, http.StatusUnauthorized)

	_, _, err = svc.Register(t.Context(), "c", creds("testuser", "testpass"))
	require.NoError(t, err)

	resp, _, err := svc.Login(t.Context(), "c", creds("testuser", "testpass"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "testuser", resp.Username)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims.Username)

	bad, _, err := svc.Login(t.Context(), "c", creds("testuser", "wrongpass"))
	requireAPIStatus(t, err, http.StatusUnauthorized)
	assert.Empty(t, bad.Token)

	assert.Equal(t, []string{OutcomeUnauthorized, OutcomeSuccess, OutcomeUnauthorized}, observer.get(ratelimit.RouteLogin))
}

func TestLogin_MissingFieldsIsUnauthorized(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, ratelimit.Options{MaxAttempts: 1, Window: time.Hour})

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(t.Context(), "c", creds("", ""))
		requireAPIStatus(t, err, http.StatusUnauthorized)
	}

	// incomplete bodies are rejected before the limiter counts them
	_, _, err := svc.Login(t.Context(), "c", creds("ghost", "pw"))
	requireAPIStatus(t, err, http.StatusUnauthorized)
	_, _, err = svc.Login(t.Context(), "c", creds("ghost", "pw"))
	requireAPIStatus(t, err, http.StatusTooManyRequests)
}

func TestLogin_SixthAttemptRateLimitedEvenWithValidCredentials(t *testing.T) {
	t.Parallel()

	svc, observer := newTestAuthService(t, ratelimit.Options{MaxAttempts: 5, Window: 15 * time.Minute})

	_, _, err := svc.Register(t.Context(), "setup", creds("testuser", "testpass"))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, _, err := svc.Login(t.Context(), "10.0.0.9", creds("testuser", "wrong"))
		requireAPIStatus(t, err, http.StatusUnauthorized)
	}
	resp, _, err := svc.Login(t.Context(), "10.0.0.9", creds("testuser", "testpass"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	resp, _, err = svc.Login(t.Context(), "10.0.0.9", creds("testuser", "testpass"))
	apiErr := requireAPIStatus(t, err, http.StatusTooManyRequests)
	assert.Contains(t, apiErr.Message, "Too many")
	assert.Empty(t, resp.Token)

	outcomes := observer.get(ratelimit.RouteLogin)
	assert.Equal(t, OutcomeRateLimited, outcomes[len(outcomes)-1])

	// other clients are unaffected
	_, _, err = svc.Login(t.Context(), "10.0.0.10", creds("testuser", "testpass"))
	require.NoError(t, err)
}

func TestRegister_RateLimited(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, ratelimit.Options{MaxAttempts: 5, Window: time.Minute})

	for i := 0; i < 5; i++ {
		_, _, err := svc.Register(t.Context(), "c", creds("testuser", "testpass"))
		if i == 0 {
			require.NoError(t, err)
		} else {
			requireAPIStatus(t, err, http.StatusConflict)
		}
	}

	_, _, err := svc.Register(t.Context(), "c", creds("another", "testpass"))
	requireAPIStatus(t, err, http.StatusTooManyRequests)
}

func TestLogin_SkipRateLimitAllowsUnlimitedAttempts(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, ratelimit.Options{MaxAttempts: 5, Window: time.Hour, Disabled: true})

	_, _, err := svc.Register(t.Context(), "c", creds("testuser", "testpass"))
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		_, _, err := svc.Login(t.Context(), "c", creds("testuser", "wrong"))
		requireAPIStatus(t, err, http.StatusUnauthorized)
	}
}

func TestLogin_ReturnsAttemptWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestAuthService(t, ratelimit.Options{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Now:         func() time.Time { return start },
	})

	_, decision, err := svc.Login(t.Context(), "c", creds("", ""))
	requireAPIStatus(t, err, http.StatusUnauthorized)
	assert.Zero(t, decision, "rejected before the limiter")

	_, decision, err = svc.Login(t.Context(), "c", creds("ghost", "pw"))
	requireAPIStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, ratelimit.Decision{Limit: 5, Remaining: 4, ResetAt: start.Add(15 * time.Minute)}, decision)

	_, decision, err = svc.Register(t.Context(), "c", creds("testuser", "testpass"))
	require.NoError(t, err)
	assert.Equal(t, 4, decision.Remaining, "routes are counted separately")
}
