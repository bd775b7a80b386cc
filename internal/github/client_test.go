package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sakif/project-tracker/internal/apperror"
)

// newTestClient points a Client at an httptest.Server.
// pageSize is shrunk so pagination tests don't need 100+ fixtures.
func newTestClient(t *testing.T, srv *httptest.Server, pageSize int) *Client {
	t.Helper()
	t.Cleanup(srv.Close)
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    srv.URL,
		pageSize:   pageSize,
	}
}

// makeRepos builds n fake repositories with sequential IDs.
func makeRepos(n, startID int) []Repo {
	repos := make([]Repo, 0, n)
	for i := 0; i < n; i++ {
		id := startID + i
		repos = append(repos, Repo{
			ID:       int64(id),
			Name:     fmt.Sprintf("repo-%d", id),
			FullName: fmt.Sprintf("sakif/repo-%d", id),
			Owner:    RepoOwner{ID: 1, Login: "sakif"},
		})
	}
	return repos
}

// pagedRepoServer serves /user/repos from an in-memory slice, honouring
// page and per_page, and counts requests so tests can assert exact page math.
func pagedRepoServer(t *testing.T, repos []Repo, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/repos" {
			http.NotFound(w, r)
			return
		}
		*requests++

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(repos) {
			start = len(repos)
		}
		if end > len(repos) {
			end = len(repos)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(repos[start:end])
	}))
}

func TestListRepositories_Pagination(t *testing.T) {
	// 5 repos, page size 2 → pages of 2, 2, 1 → exactly ceil(5/2) = 3 requests.
	var requests int
	srv := pagedRepoServer(t, makeRepos(5, 1), &requests)
	c := newTestClient(t, srv, 2)

	repos, err := c.ListRepositories(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}

	if len(repos) != 5 {
		t.Errorf("got %d repos, want 5", len(repos))
	}
	if requests != 3 {
		t.Errorf("made %d requests, want 3", requests)
	}
	if repos[0].ID != 1 || repos[4].ID != 5 {
		t.Errorf("repos out of order: first ID %d, last ID %d", repos[0].ID, repos[4].ID)
	}
}

func TestListRepositories_ExactPageMultiple(t *testing.T) {
	// 4 repos, page size 2: pages of 2, 2, then 0. The final empty page is
	// what terminates the loop — ceil-plus-one is unavoidable when N divides
	// evenly, because a full page can't prove it was the last.
	var requests int
	srv := pagedRepoServer(t, makeRepos(4, 1), &requests)
	c := newTestClient(t, srv, 2)

	repos, err := c.ListRepositories(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}

	if len(repos) != 4 {
		t.Errorf("got %d repos, want 4", len(repos))
	}
	if requests != 3 {
		t.Errorf("made %d requests, want 3", requests)
	}
}

func TestListRepositories_Empty(t *testing.T) {
	// N = 0 must terminate after exactly one request — the zero-length page.
	var requests int
	srv := pagedRepoServer(t, nil, &requests)
	c := newTestClient(t, srv, 2)

	repos, err := c.ListRepositories(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}

	if len(repos) != 0 {
		t.Errorf("got %d repos, want 0", len(repos))
	}
	if requests != 1 {
		t.Errorf("made %d requests, want 1", requests)
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAccept, gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Identity{ID: 42, Login: "sakif"})
	}))
	c := newTestClient(t, srv, 2)

	if _, err := c.AuthenticatedUser(context.Background(), "secret-token"); err != nil {
		t.Fatalf("AuthenticatedUser() error = %v", err)
	}

	if gotAccept != acceptHeader {
		t.Errorf("Accept = %q, want %q", gotAccept, acceptHeader)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
	if gotAuth != "token secret-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "token secret-token")
	}
}

func TestAuthenticatedUser_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	}))
	c := newTestClient(t, srv, 2)

	_, err := c.AuthenticatedUser(context.Background(), "expired")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	// 401 means the TOKEN is bad — must map to ErrAuth, not ProviderError,
	// so handlers know to ask the user to re-authenticate.
	if !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth", err)
	}
}

func TestGetRepository_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/sakif/demo" {
			t.Errorf("path = %q, want /repos/sakif/demo", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Repo{ID: 7, Name: "demo", FullName: "sakif/demo"})
	}))
	c := newTestClient(t, srv, 2)

	repo, err := c.GetRepository(context.Background(), "tok", "sakif", "demo")
	if err != nil {
		t.Fatalf("GetRepository() error = %v", err)
	}
	if repo.ID != 7 || repo.Name != "demo" {
		t.Errorf("repo = %+v", repo)
	}
}

func TestGetRepository_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))
	c := newTestClient(t, srv, 2)

	_, err := c.GetRepository(context.Background(), "tok", "sakif", "ghost")
	// 404 is the SEMANTIC answer "doesn't exist" — ErrNotFound, not a
	// provider failure. The create-or-link flow branches on exactly this.
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetRepository_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream broke")
	}))
	c := newTestClient(t, srv, 2)

	_, err := c.GetRepository(context.Background(), "tok", "sakif", "demo")
	var provErr *apperror.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", provErr.StatusCode)
	}
	// Non-JSON bodies are kept verbatim as the message.
	if provErr.Message != "upstream broke" {
		t.Errorf("Message = %q", provErr.Message)
	}
}

func TestCreateRepository(t *testing.T) {
	var gotPayload CreateOptions
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/repos" {
			t.Errorf("%s %s, want POST /user/repos", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Repo{ID: 99, Name: gotPayload.Name, Private: gotPayload.Private})
	}))
	c := newTestClient(t, srv, 2)

	repo, err := c.CreateRepository(context.Background(), "tok", CreateOptions{
		Name:        "My_Cool_Idea",
		Description: "Repository for project: My Cool Idea",
		Private:     true,
		AutoInit:    true,
	})
	if err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}

	if repo.ID != 99 {
		t.Errorf("ID = %d, want 99", repo.ID)
	}
	if gotPayload.Name != "My_Cool_Idea" || !gotPayload.Private || !gotPayload.AutoInit {
		t.Errorf("payload = %+v", gotPayload)
	}
}

func TestCreateRepository_NameTaken(t *testing.T) {
	body := `{"message":"Repository creation failed.","errors":[{"message":"name already exists on this account","code":"custom"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, body)
	}))
	c := newTestClient(t, srv, 2)

	_, err := c.CreateRepository(context.Background(), "tok", CreateOptions{Name: "taken"})
	var provErr *apperror.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", provErr.StatusCode)
	}
	if provErr.Message != "Repository creation failed." {
		t.Errorf("Message = %q, want parsed JSON message", provErr.Message)
	}
	// The raw body must be retained for logging/debugging.
	if provErr.Body != body {
		t.Errorf("Body = %q, want raw body", provErr.Body)
	}
}
