package realtime

import (
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
)

// AuthenticatorFunc resolves an upgrade request to a user id, or fails.
type AuthenticatorFunc func(r *http.Request) (userID string, err error)

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// JWTAuthenticator verifies the handshake token the same way the HTTP
// middleware does: HMAC signature plus a live session key in Redis. Browsers
// cannot set headers on websocket handshakes, so the token query parameter
// is accepted too.
func JWTAuthenticator(secret []byte, rdb *redis.Client) AuthenticatorFunc {
	return func(r *http.Request) (string, error) {
		token := middleware.BearerToken(r)
		if token == "" {
			return "", &AuthError{Message: "missing access token"}
		}

		claims, err := middleware.ParseAccessToken(token, secret)
		if err != nil {
			return "", &AuthError{Message: "invalid or expired token"}
		}

		exists, err := rdb.Exists(r.Context(), middleware.SessionKey(claims.Sub)).Result()
		if err != nil || exists == 0 {
			return "", &AuthError{Message: "session not found or revoked"}
		}

		return claims.Sub, nil
	}
}
