package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bookshelf/internal/model"
)

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer("super-secret", time.Hour)
	require.NoError(t, err)

	issued, err := issuer.Issue(model.User{Username: "testuser"})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	claims, err := issuer.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims.Username)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, issued.ExpiresAt.Equal(claims.ExpiresAt))
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt))
}

func TestTokenIssuer_VerifyIsIdempotent(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer("super-secret", time.Hour)
	require.NoError(t, err)

	issued, err := issuer.Issue(model.User{Username: "reader"})
	require.NoError(t, err)

	first, err := issuer.Verify(issued.Token)
	require.NoError(t, err)
	second, err := issuer.Verify(issued.Token)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)

	issued, err := issuer.WithClock(func() time.Time { return now }).Issue(model.User{Username: "u1"})
	require.NoError(t, err)

	_, err = issuer.WithClock(func() time.Time { return now.Add(59 * time.Second) }).Verify(issued.Token)
	require.NoError(t, err)

	_, err = issuer.WithClock(func() time.Time { return now.Add(2 * time.Minute) }).Verify(issued.Token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidToken))
	assert.True(t, errors.Is(err, model.ErrTokenExpired))
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	right, err := NewTokenIssuer("right-secret", time.Hour)
	require.NoError(t, err)
	wrong, err := NewTokenIssuer("wrong-secret", time.Hour)
	require.NoError(t, err)

	issued, err := right.Issue(model.User{Username: "u2"})
	require.NoError(t, err)

	_, err = wrong.Verify(issued.Token)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestTokenIssuer_RejectsMalformedAndForeignTokens(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer("k", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify("not.a.jwt")
	require.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = issuer.Verify("")
	require.ErrorIs(t, err, model.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "mallory",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(unsigned)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(noExpiry)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(noSubject)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("  ", time.Hour)
	require.Error(t, err)

	_, err = NewTokenIssuer("secret", 0)
	require.Error(t, err)

	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	_, err = issuer.Issue(model.User{})
	require.Error(t, err)
}
