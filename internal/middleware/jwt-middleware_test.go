package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func issueToken(t *testing.T, secret []byte, method jwt.SigningMethod, sub string, expiry time.Duration) string {
	t.Helper()

	claims := AccessClaims{
		Sub:  sub,
		Name: "Alice",
		Role: "student",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestParseAccessToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		token := issueToken(t, testSecret, jwt.SigningMethodHS256, "2023CS101", time.Hour)

		claims, err := ParseAccessToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "2023CS101", claims.Sub)
		assert.Equal(t, "Alice", claims.Name)
	})

	t.Run("expired token", func(t *testing.T) {
		token := issueToken(t, testSecret, jwt.SigningMethodHS256, "2023CS101", -time.Minute)

		_, err := ParseAccessToken(token, testSecret)
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := issueToken(t, []byte("other"), jwt.SigningMethodHS256, "2023CS101", time.Hour)

		_, err := ParseAccessToken(token, testSecret)
		require.Error(t, err)
	})

	t.Run("empty sub rejected", func(t *testing.T) {
		token := issueToken(t, testSecret, jwt.SigningMethodHS256, "", time.Hour)

		_, err := ParseAccessToken(token, testSecret)
		require.Error(t, err)
	})
}

func TestBearerToken(t *testing.T) {
	t.Run("authorization header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer abc123")
		assert.Equal(t, "abc123", BearerToken(r))
	})

	t.Run("case-insensitive scheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "bearer abc123")
		assert.Equal(t, "abc123", BearerToken(r))
	})

	t.Run("query fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/?token=xyz789", nil)
		assert.Equal(t, "xyz789", BearerToken(r))
	})

	t.Run("header wins over query", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/?token=fromquery", nil)
		r.Header.Set("Authorization", "Bearer fromheader")
		assert.Equal(t, "fromheader", BearerToken(r))
	})

	t.Run("neither present", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		assert.Empty(t, BearerToken(r))
	})
}

func TestJWTAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var gotClaims *AccessClaims
	handler := JWTAuth(testSecret, rdb)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("live session passes with claims on context", func(t *testing.T) {
		require.NoError(t, mr.Set(SessionKey("2023CS101"), "1"))
		token := issueToken(t, testSecret, jwt.SigningMethodHS256, "2023CS101", time.Hour)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, gotClaims)
		assert.Equal(t, "2023CS101", gotClaims.Sub)
	})

	t.Run("missing session is unauthorized", func(t *testing.T) {
		token := issueToken(t, testSecret, jwt.SigningMethodHS256, "2023CS999", time.Hour)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
