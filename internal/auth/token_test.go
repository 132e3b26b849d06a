package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", "phoebe", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue("01HUSER", "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "01HUSER", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "phoebe", claims.Issuer)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", "phoebe", time.Minute)
	require.NoError(t, err)

	start := time.Now()
	issuer.now = func() time.Time { return start }
	token, _, err := issuer.Issue("u1", "alice")
	require.NoError(t, err)

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	a, err := NewTokenIssuer("secret-a", "phoebe", time.Hour)
	require.NoError(t, err)
	b, err := NewTokenIssuer("secret-b", "phoebe", time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue("u1", "alice")
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_WrongIssuer(t *testing.T) {
	a, err := NewTokenIssuer("shared", "other", time.Hour)
	require.NoError(t, err)
	b, err := NewTokenIssuer("shared", "phoebe", time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue("u1", "alice")
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", "", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	_, err := NewTokenIssuer("", "phoebe", time.Hour)
	assert.Error(t, err)
}
