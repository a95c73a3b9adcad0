package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

// APIKeyContextKey stores the presented API key in the request context.
const APIKeyContextKey contextKey = "api_key"

// AuthMiddleware optionally gates the Read API behind a single static
// key (§4.5 has no user/tenant model — this is a dashboard secret,
// not an identity). A blank configured key disables the gate entirely.
type AuthMiddleware struct {
	logger zerolog.Logger
	key    string
}

// NewAuthMiddleware creates a new authentication middleware. key is the
// expected bearer token; an empty key disables auth.
func NewAuthMiddleware(logger zerolog.Logger, key string) *AuthMiddleware {
	return &AuthMiddleware{logger: logger, key: key}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if am.key == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		presented := strings.TrimPrefix(authHeader, "Bearer ")
		if presented == "" || presented != am.key {
			http.Error(w, `{"error":"unauthorized","message":"valid bearer token required"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyContextKey, presented)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAPIKey extracts the presented API key from the request context.
func GetAPIKey(ctx context.Context) string {
	if v, ok := ctx.Value(APIKeyContextKey).(string); ok {
		return v
	}
	return ""
}
