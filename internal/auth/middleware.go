package auth

import (
	"context"
	"net/http"
)

// SessionCookie is the HttpOnly cookie holding our session JWT.
const SessionCookie = "session"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "accountID", id), ANY package that knows the string
// can read or shadow your value. Using a package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const accountIDKey contextKey = "accountID"

// RequireSession enforces a valid session on protected routes.
//
// It reads the JWT from the "session" HttpOnly cookie, validates it, and
// stores the account ID in the request context. If the token is missing or
// invalid, it returns 401 Unauthorized and stops the request chain.
//
// NOTE this is about OUR session, not the GitHub credential — a request can
// carry a perfectly good github_token and still have no session (e.g. an API
// client using only the Authorization header). Routes that act on GitHub
// data use the credential resolver instead; this guards routes that act on
// the local ACCOUNT, like /api/me.
func RequireSession(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := extractAccountID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid session required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession extracts the account ID if a valid session cookie is
// present, but does NOT block the request if it's missing or invalid.
//
// The sync endpoint uses this: its body may carry an explicit ownerKey, but
// a logged-in browser can omit it and let the session supply the account.
func OptionalSession(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if accountID, err := extractAccountID(r, tokens); err == nil && accountID != "" {
				ctx := context.WithValue(r.Context(), accountIDKey, accountID)
				r = r.WithContext(ctx)
			}
			// Always continue — no 401 even if no session
			next.ServeHTTP(w, r)
		})
	}
}

// AccountIDFromContext retrieves the session's account ID from the request
// context.
//
// Returns ("", false) if the request carries no valid session.
//
// Usage in handlers:
//
//	accountID, ok := auth.AccountIDFromContext(r.Context())
//	if !ok {
//	    // no session
//	}
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// extractAccountID reads the session cookie and validates the JWT inside.
// Shared by RequireSession and OptionalSession.
func extractAccountID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie means the cookie isn't present — not an error,
		// just an anonymous request
		return "", err
	}

	return tokens.Validate(cookie.Value)
}
