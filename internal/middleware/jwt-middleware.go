package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

type claimsKey string

const UserClaimsKey claimsKey = "userClaims"

// AccessClaims is the payload of the access token issued by the identity
// service. Sub carries the enrollment number used as the user id everywhere.
type AccessClaims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies an HMAC-signed access token and returns its claims.
func ParseAccessToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Sub == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// SessionKey is the Redis key the identity service writes on login and
// deletes on logout. A missing key means the session was revoked.
func SessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// JWTAuth verifies the bearer token and checks the session is still live in
// Redis before letting the request through. The verified claims are placed
// on the request context under UserClaimsKey.
func JWTAuth(secret []byte, rdb *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r)
			if tokenStr == "" {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Missing Authorization header", "auth"))
				return
			}

			claims, err := ParseAccessToken(tokenStr, secret)
			if err != nil {
				log.Debug().Err(err).Msg("jwt verify failed")
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Invalid or expired token", "auth"))
				return
			}

			exists, err := rdb.Exists(r.Context(), SessionKey(claims.Sub)).Result()
			if err != nil || exists == 0 {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Session not found or revoked", "auth"))
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken pulls the access token from the Authorization header, falling
// back to the token query parameter for websocket handshakes where custom
// headers are not always available.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

// ClaimsFromContext returns the verified claims set by JWTAuth.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims, ok
}

func writeAppError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}
