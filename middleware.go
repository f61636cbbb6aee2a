package authcore

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	claimsContextKey contextKey = "authClaims"
	tokenContextKey  contextKey = "authToken"
)

// ClaimsFromContext returns the verified claims attached by RequireToken.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// TokenFromContext returns the raw bearer token attached by RequireToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// RequireToken is middleware that verifies the Authorization bearer token
// and attaches the claims and raw token to the request context. Requests
// without a valid token get a 401 and never reach the handler.
func (s *Server) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Token is required")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token is required")
			return
		}

		claims, err := s.Tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrTokenInvalid.Message)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
