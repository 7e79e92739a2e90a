package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(secret, "HS256")
	require.NoError(t, err)
	return v
}

func TestSignAndVerify(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Sign("42", "customer")
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", id.UserID)
	assert.True(t, id.HasRole("customer"))
	assert.False(t, id.HasRole("admin"))
}

func TestVerifyNumericSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 17}).SignedString([]byte(secret))
	require.NoError(t, err)

	id, err := newVerifier(t).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "17", id.UserID)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier(t)

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"roles": []string{"x"}}).SignedString([]byte(secret))
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "1"}).SignedString([]byte(secret))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"wrong key": wrongKey,
		"no sub":    noSubject,
		"expired":   expired,
		"other alg": otherAlg,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestNewVerifierValidates(t *testing.T) {
	_, err := NewVerifier("", "HS256")
	assert.Error(t, err)
	_, err = NewVerifier(secret, "RS256")
	assert.Error(t, err)
}
