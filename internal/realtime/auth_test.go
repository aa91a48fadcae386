package realtime

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
)

func signToken(t *testing.T, secret []byte, sub string, expiry time.Duration) string {
	t.Helper()

	claims := middleware.AccessClaims{
		Sub:  sub,
		Name: "Alice",
		Role: "student",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestJWTAuthenticator(t *testing.T) {
	secret := []byte("test-secret")
	mr, rdb := newTestRedis(t)
	auth := JWTAuthenticator(secret, rdb)

	token := signToken(t, secret, "u1", time.Hour)
	require.NoError(t, mr.Set(middleware.SessionKey("u1"), "1"))

	t.Run("authorization header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/ws", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		userID, err := auth(r)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("token query param for browser handshakes", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/ws?token="+token, nil)

		userID, err := auth(r)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/ws", nil)

		_, err := auth(r)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := signToken(t, secret, "u1", -time.Minute)
		r := httptest.NewRequest("GET", "/api/v1/ws?token="+expired, nil)

		_, err := auth(r)
		require.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		forged := signToken(t, []byte("other-secret"), "u1", time.Hour)
		r := httptest.NewRequest("GET", "/api/v1/ws?token="+forged, nil)

		_, err := auth(r)
		require.Error(t, err)
	})

	t.Run("revoked session", func(t *testing.T) {
		revoked := signToken(t, secret, "u2", time.Hour)
		r := httptest.NewRequest("GET", "/api/v1/ws?token="+revoked, nil)

		_, err := auth(r)
		require.Error(t, err, "valid token without a live session is rejected")
	})
}
