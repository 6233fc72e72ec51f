package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/promptlift/prompt-enhancer/internal/config"
)

type contextKey string

const userIDKey contextKey = "userID"

// Headers consulted, in priority order, when no authenticated user is
// available. If none is set every anonymous client collapses onto the
// loopback bucket, which matters for deployments without a proxy in
// front.
var forwardingHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
}

const anonymousIdentity = "127.0.0.1"

type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Identity resolves who the caller is. A valid bearer token yields the
// user id; invalid or missing tokens are treated as anonymous rather
// than rejected, since enhancement is open to unauthenticated users.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := userFromToken(r); userID != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next.ServeHTTP(w, r)
	})
}

func userFromToken(r *http.Request) string {
	if config.Cfg.JWTSecret == "" {
		return ""
	}

	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" || token == auth {
		return ""
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(config.Cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return ""
	}

	if claims, ok := parsed.Claims.(*tokenClaims); ok {
		return claims.UserID
	}
	return ""
}

// UserID returns the authenticated user id, or "" for anonymous callers.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// ClientIdentity picks the rate-limit bucket key for a request: the
// authenticated user id when present, else the first non-empty
// forwarding header, else the shared loopback placeholder.
func ClientIdentity(r *http.Request) string {
	if userID := UserID(r.Context()); userID != "" {
		return "user:" + userID
	}

	for _, header := range forwardingHeaders {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			// X-Forwarded-For may carry the whole hop chain.
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = strings.TrimSpace(v[:i])
			}
			return "ip:" + v
		}
	}
	return "ip:" + anonymousIdentity
}
