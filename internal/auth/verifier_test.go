package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/config"
)

func TestDevMode(t *testing.T) {
	v := NewVerifier(config.Auth{Mode: "dev"})
	p, err := v.Verify("")
	require.NoError(t, err)
	assert.True(t, p.CanWrite())

	p, err = v.Verify("ann:viewer")
	require.NoError(t, err)
	assert.Equal(t, "ann", p.Subject)
	assert.False(t, p.CanWrite())
}

func TestTokenMode(t *testing.T) {
	v := NewVerifier(config.Auth{Mode: "token", Tokens: []string{"alpha", "beta"}})
	_, err := v.Verify("beta")
	require.NoError(t, err)
	_, err = v.Verify("gamma")
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestHMACMode(t *testing.T) {
	secret := []byte("s3cret")
	v := NewVerifier(config.Auth{Mode: "hmac", HMACSecret: string(secret), RoleClaim: "role"})
	v.now = func() time.Time { return time.Unix(1000, 0) }

	tok, err := SignHS256(secret, map[string]any{"sub": "ops", "role": "Planner", "exp": 2000})
	require.NoError(t, err)
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "planner", p.Role)
	assert.True(t, p.CanWrite())

	expired, _ := SignHS256(secret, map[string]any{"sub": "ops", "exp": 999})
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrExpired)

	forged, _ := SignHS256([]byte("other"), map[string]any{"sub": "ops"})
	_, err = v.Verify(forged)
	assert.Error(t, err)

	_, err = v.Verify("not.a.jwt.at.all")
	assert.ErrorIs(t, err, ErrBadToken)
}
