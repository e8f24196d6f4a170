package auth

import (
	"context"
	"net/http"
)

// contextKey is unexported so only this package can read or write the
// values it stores in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// TokenCookieName is the HttpOnly cookie carrying the JWT access token.
const TokenCookieName = "token"

// RequireAuth enforces authentication on protected routes.
//
// It reads the JWT from the token cookie, validates it, and stores the
// userID in the request context. A missing or invalid token ends the
// request with 401 before the handler runs.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth extracts the user identity if a valid token is present but
// never blocks the request. Handlers on such routes treat a missing
// UserIDFromContext as an anonymous caller.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithUserID returns a context carrying the authenticated user's ID.
// The write half of UserIDFromContext: middleware calls it after token
// validation, tests call it to simulate an authenticated request.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the JWT cookie and validates it. Shared by
// RequireAuth and OptionalAuth.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(TokenCookieName)
	if err != nil {
		return "", err
	}

	return tokens.Validate(cookie.Value)
}
