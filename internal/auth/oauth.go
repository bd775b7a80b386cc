package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Your server redirects the user to GitHub's authorization endpoint,
//     with your ClientID and the requested scopes.
//  2. The user approves (or denies) the authorization request on GitHub.
//  3. GitHub redirects back to your CallbackURL with a short-lived "code".
//  4. Your server exchanges the code for an access token (server-to-server call).
//
// WHY SERVER-SIDE EXCHANGE?
// The code-for-token exchange happens server-to-server, using your ClientSecret.
// The access token never touches the client's browser as JavaScript-readable
// data — the callback handler puts it straight into an HttpOnly cookie.
//
// Unlike a plain "log in with GitHub" app, we keep the ACCESS TOKEN itself
// (not just the profile): every sync and create-repo call replays it against
// the GitHub API on the user's behalf.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// You get ClientID and ClientSecret by registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// callbackURL must match the "Authorization callback URL" you configured exactly.
// Example: "http://localhost:8080/auth/github/callback"
//
// Scopes we request:
//   - "repo"      — read/create repositories (the whole point of this app)
//   - "read:user" — the user's public profile (ID, login, avatar)
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"repo", "read:user"},
			Endpoint:     github.Endpoint, // pre-defined GitHub OAuth endpoints
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When GitHub calls back, we verify the returned state matches
// our cookie. This prevents CSRF (Cross-Site Request Forgery) attacks where
// an attacker tricks your browser into completing an OAuth flow for their account.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades the authorization code for a GitHub access token.
//
// This makes a POST to GitHub's token endpoint using our ClientSecret.
// The returned token is what the rest of the app calls "the credential" —
// the callback handler stores it in the github_token cookie and the
// credential resolver digs it back out on every API request.
//
// We deliberately return just the token string: fetching the user profile is
// the github.Client's job (it's the same GET /user call the sync path makes).
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	if oauthToken.AccessToken == "" {
		return "", fmt.Errorf("auth: GitHub returned an empty access token")
	}

	return oauthToken.AccessToken, nil
}
