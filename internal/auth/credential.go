package auth

import (
	"net/http"
	"strings"

	"github.com/sakif/project-tracker/internal/apperror"
)

// GitHubTokenCookie is the HttpOnly cookie the OAuth callback stores the raw
// GitHub access token in. It's the first place the resolver looks.
const GitHubTokenCookie = "github_token"

// CredentialSource says WHERE a resolved token came from. Purely for
// observability — logging the source makes "why is this request
// authenticated as X?" answerable without dumping tokens.
type CredentialSource string

const (
	SourceCookie       CredentialSource = "cookie"        // github_token cookie
	SourceBearerHeader CredentialSource = "bearer_header" // Authorization: Bearer <token>
	SourceTokenHeader  CredentialSource = "token_header"  // Authorization: token <token> (legacy scheme)
)

// ResolveCredential extracts a GitHub access token from an inbound request.
//
// ORDERED FALLBACK CHAIN, no merging — the first source that yields a
// non-empty token wins:
//
//  1. the "github_token" session cookie (browser clients after OAuth login)
//  2. "Authorization: Bearer <token>"   (API clients, the frontend's fetch)
//  3. "Authorization: token <token>"    (GitHub's legacy scheme, still common
//     in scripts that copy-paste curl examples)
//
// If none yields a token the caller gets apperror.ErrNoCredential, which the
// handler layer turns into a 401 with action "authenticate". There is no
// silent anonymous mode — every operation here acts on SOMEONE's GitHub
// account.
func ResolveCredential(r *http.Request) (token string, source CredentialSource, err error) {
	// Source 1: session cookie.
	// r.Cookie returns http.ErrNoCookie when absent — that's not an error
	// for us, just "try the next source".
	if c, err := r.Cookie(GitHubTokenCookie); err == nil && c.Value != "" {
		return c.Value, SourceCookie, nil
	}

	// Sources 2 and 3: Authorization header schemes.
	// Scheme names are case-insensitive per RFC 7235, so compare folded.
	if header := r.Header.Get("Authorization"); header != "" {
		if t := cutScheme(header, "Bearer "); t != "" {
			return t, SourceBearerHeader, nil
		}
		if t := cutScheme(header, "token "); t != "" {
			return t, SourceTokenHeader, nil
		}
	}

	return "", "", apperror.NoCredential()
}

// cutScheme returns the credential after the given scheme prefix, or "" if
// the header doesn't use that scheme (or carries an empty credential).
func cutScheme(header, scheme string) string {
	if len(header) < len(scheme) {
		return ""
	}
	if !strings.EqualFold(header[:len(scheme)], scheme) {
		return ""
	}
	return strings.TrimSpace(header[len(scheme):])
}
