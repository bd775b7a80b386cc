// Package github is a thin, typed client for the four GitHub REST operations
// this app needs: who am I, list my repositories, get one repository, create
// one repository.
//
// WHY NOT A FULL GITHUB SDK?
// We call exactly four endpoints and we care about wire-level details the
// reconciliation engine depends on (page-size-based pagination termination,
// 404 meaning "doesn't exist" rather than "failure", keeping the raw error
// body for logs). Calling the REST API directly with net/http — the same way
// the OAuth exchange in internal/auth does — keeps those details visible.
//
// Every request carries the fixed v3 Accept header and a descriptive
// User-Agent (GitHub rejects requests without one).
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/project-tracker/internal/apperror"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	userAgent      = "project-tracker/1.0.0"

	// defaultPageSize is GitHub's maximum per_page. Fewer pages = fewer
	// round trips, and rate limit budget is per-request, not per-item.
	defaultPageSize = 100
)

// Identity is the portion of the GitHub /user response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
type Identity struct {
	ID        int64  `json:"id"`    // GitHub's numeric user ID — stable, never changes
	Login     string `json:"login"` // GitHub username, e.g. "sakif"
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Repo is one repository as returned by the GitHub API.
//
// Description and Language can be JSON null; encoding/json leaves the string
// zero value in place for null, so plain strings are fine here.
type Repo struct {
	ID              int64     `json:"id"` // immutable — survives renames, the reconciliation key
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Owner           RepoOwner `json:"owner"`
	HTMLURL         string    `json:"html_url"`
	Description     string    `json:"description"`
	Private         bool      `json:"private"`
	Fork            bool      `json:"fork"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	DefaultBranch   string    `json:"default_branch"`
	Topics          []string  `json:"topics"`
	Size            int       `json:"size"` // kilobytes
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RepoOwner is the nested owner object inside a Repo.
type RepoOwner struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// CreateOptions is the payload for creating a repository.
type CreateOptions struct {
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Private           bool   `json:"private"`
	AutoInit          bool   `json:"auto_init"`
	GitignoreTemplate string `json:"gitignore_template,omitempty"` // e.g. "Go", "Node"
	LicenseTemplate   string `json:"license_template,omitempty"`   // e.g. "mit"
}

// API is the interface the service layer consumes. The concrete Client below
// implements it; tests substitute an in-memory fake.
type API interface {
	AuthenticatedUser(ctx context.Context, token string) (*Identity, error)
	ListRepositories(ctx context.Context, token string) ([]Repo, error)
	GetRepository(ctx context.Context, token, owner, name string) (*Repo, error)
	CreateRepository(ctx context.Context, token string, opts CreateOptions) (*Repo, error)
}

// compile-time check that *Client implements API
var _ API = (*Client)(nil)

// Client calls the GitHub REST API. Zero-value is not usable; use NewClient.
//
// The fields are unexported — tests (in this package) point baseURL at an
// httptest.Server and shrink pageSize to exercise pagination cheaply.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
}

// NewClient creates a Client with production defaults.
func NewClient() *Client {
	return &Client{
		// A timeout on the http.Client bounds EVERY request this client
		// makes, including body reads. 30s is generous for api.github.com.
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		pageSize:   defaultPageSize,
	}
}

// AuthenticatedUser returns the identity of the token's owner.
//
// This doubles as our token validity check: a 401 here means the token is
// expired or revoked and the only fix is re-authentication, so it maps to
// apperror.ErrAuth rather than a generic provider error.
func (c *Client) AuthenticatedUser(ctx context.Context, token string) (*Identity, error) {
	resp, err := c.get(ctx, token, "/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("github: decoding /user response: %w", err)
	}
	if id.ID == 0 {
		return nil, fmt.Errorf("github: /user returned an invalid identity (ID = 0)")
	}

	return &id, nil
}

// ListRepositories returns ALL repositories visible to the token's owner,
// walking GitHub's page-number pagination until exhausted.
//
// TERMINATION:
// GitHub has no "total pages" field on this endpoint. The loop stops when a
// page comes back with fewer items than we asked for — which includes the
// zero-item page a user with no repositories gets on page 1, and the empty
// trailing page when the count is an exact multiple of the page size. The
// same condition guards against a provider that echoes an empty page forever.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]Repo, error) {
	var all []Repo

	for page := 1; ; page++ {
		path := fmt.Sprintf("/user/repos?page=%d&per_page=%d&sort=updated&direction=desc",
			page, c.pageSize)

		resp, err := c.get(ctx, token, path)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			err := c.apiError(resp)
			resp.Body.Close()
			return nil, err
		}

		var repos []Repo
		err = json.NewDecoder(resp.Body).Decode(&repos)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("github: decoding repository page %d: %w", page, err)
		}

		all = append(all, repos...)

		// A short (or empty) page is the last page.
		if len(repos) < c.pageSize {
			return all, nil
		}
	}
}

// GetRepository fetches a single repository by owner and name.
//
// A 404 is NOT a failure here — "does this repository exist?" is exactly the
// question the create-or-link flow asks, and apperror.ErrNotFound is the
// negative answer. Any other non-2xx status is a real provider error.
func (c *Client) GetRepository(ctx context.Context, token, owner, name string) (*Repo, error) {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))

	resp, err := c.get(ctx, token, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound("repository", owner+"/"+name)
	case resp.StatusCode != http.StatusOK:
		return nil, c.apiError(resp)
	}

	var repo Repo
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("github: decoding repository %s/%s: %w", owner, name, err)
	}

	return &repo, nil
}

// CreateRepository creates a repository for the authenticated user.
//
// Callers are expected to have checked for existence first (see the
// create-or-link flow) — a 422 from here means someone else created the name
// between the check and this call, and it surfaces as a ProviderError with
// GitHub's own message ("name already exists on this account").
func (c *Client) CreateRepository(ctx context.Context, token string, opts CreateOptions) (*Repo, error) {
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("github: encoding create payload: %w", err)
	}

	req, err := c.newRequest(ctx, token, http.MethodPost, "/user/repos", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: creating repository: %w", err)
	}
	defer resp.Body.Close()

	// GitHub answers 201 on creation; accept any 2xx to be safe.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(resp)
	}

	var repo Repo
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("github: decoding created repository: %w", err)
	}

	return &repo, nil
}

// get issues an authenticated GET. The caller owns the response body.
func (c *Client) get(ctx context.Context, token, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, token, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: GET %s: %w", path, err)
	}
	return resp, nil
}

// newRequest builds a request with the headers every GitHub call needs.
func (c *Client) newRequest(ctx context.Context, token, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("github: building request for %s: %w", path, err)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	// "token" is GitHub's classic scheme; it accepts OAuth tokens too.
	req.Header.Set("Authorization", "token "+token)

	return req, nil
}

// apiError turns a non-2xx response into a domain error.
//
// 401 → apperror.ErrAuth (the token itself is bad).
// Everything else → *apperror.ProviderError carrying the original status,
// with the JSON "message" field parsed out when GitHub sent one and the raw
// body retained either way.
func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusUnauthorized {
		return apperror.AuthFailed("GitHub authentication failed - please re-authenticate")
	}

	message := strings.TrimSpace(string(body))
	var ghErr struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &ghErr); err == nil && ghErr.Message != "" {
		message = ghErr.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &apperror.ProviderError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Body:       string(body),
	}
}
