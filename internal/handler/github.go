package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/project-tracker/internal/auth"
	"github.com/sakif/project-tracker/internal/github"
	"github.com/sakif/project-tracker/internal/service"
)

// GitHubHandler exposes the sync, create-or-link and listing endpoints.
//
// Every endpoint resolves the GitHub credential per-request via
// auth.ResolveCredential — cookie first, then Authorization header. The
// handler never stores tokens; it just plumbs them to the service layer.
type GitHubHandler struct {
	sync   *service.SyncService
	repos  *service.RepoService
	logger *slog.Logger
}

// NewGitHubHandler creates a GitHubHandler.
func NewGitHubHandler(sync *service.SyncService, repos *service.RepoService, logger *slog.Logger) *GitHubHandler {
	return &GitHubHandler{
		sync:   sync,
		repos:  repos,
		logger: logger,
	}
}

// syncRequest is the body of POST /api/github/sync.
type syncRequest struct {
	OwnerKey string `json:"ownerKey"`
}

// syncResponse mirrors what the dashboard's sync button renders.
type syncResponse struct {
	Success bool                `json:"success"`
	Stats   service.SyncStats   `json:"stats"`
	User    syncUser            `json:"user"`
	Errors  []service.ItemError `json:"errors,omitempty"`
}

type syncUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// HandleSync runs one reconciliation pass.
//
// HTTP: POST /api/github/sync
// Body: {"ownerKey": "..."} — optional when a session cookie is present; the
// session's account ID is the fallback. No ownerKey from either source → 400.
func (h *GitHubHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	token, source, err := auth.ResolveCredential(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// An empty body is fine — the session may supply the owner. Only a body
	// that has content but isn't valid JSON is rejected.
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	ownerKey := req.OwnerKey
	if ownerKey == "" {
		ownerKey, _ = auth.AccountIDFromContext(r.Context())
	}
	if ownerKey == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "ownerKey required"})
		return
	}

	result, err := h.sync.Reconcile(r.Context(), ownerKey, token)
	if err != nil {
		h.logger.Error("sync failed",
			slog.String("ownerKey", ownerKey),
			slog.String("credentialSource", string(source)),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success: true,
		Stats:   result.Stats,
		User:    syncUser{Login: result.User.Login, Name: result.User.Name},
		Errors:  result.Errors,
	})
}

// createRepoRequest is the body of POST /api/github/repos.
// Private and AutoInit are pointers so "omitted" (→ default true) is
// distinguishable from an explicit false.
type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     *bool  `json:"private"`
	AutoInit    *bool  `json:"autoInit"`
}

type createRepoResponse struct {
	Success    bool         `json:"success"`
	Action     string       `json:"action"` // "created" | "existing"
	Repository *github.Repo `json:"repository"`
}

// HandleCreateRepo runs the idempotent create-or-link flow.
//
// HTTP: POST /api/github/repos
// 201 when the repository was created, 200 when it already existed.
func (h *GitHubHandler) HandleCreateRepo(w http.ResponseWriter, r *http.Request) {
	token, _, err := auth.ResolveCredential(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "repository name is required"})
		return
	}

	// The mirror record's owner: the session account when logged in. For
	// header-only API clients (no session) the service keys the record off
	// the token's own GitHub identity instead.
	ownerKey, _ := auth.AccountIDFromContext(r.Context())

	result, err := h.repos.CreateOrLink(r.Context(), ownerKey, token, req.Name, service.CreateRepoOptions{
		Description: req.Description,
		Private:     req.Private,
		AutoInit:    req.AutoInit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Action == service.ActionCreated {
		status = http.StatusCreated
	}

	writeJSON(w, status, createRepoResponse{
		Success:    true,
		Action:     result.Action,
		Repository: result.Repo,
	})
}

// listResponse is the body of GET /api/github/repos. The repository list
// rides under "files" — the dashboard treats repos as project files.
type listResponse struct {
	Files    []github.Repo    `json:"files"`
	User     *github.Identity `json:"user"`
	Metadata listMetadata     `json:"metadata"`
}

type listMetadata struct {
	TotalCount int    `json:"total_count"`
	FetchedAt  string `json:"fetched_at"` // RFC3339
}

// HandleListRepos returns the LIVE repository list straight from GitHub —
// not the mirror. The dashboard's list view wants current truth; the mirror
// exists for offline stats and provenance, not for serving this page.
//
// HTTP: GET /api/github/repos
func (h *GitHubHandler) HandleListRepos(w http.ResponseWriter, r *http.Request) {
	token, _, err := auth.ResolveCredential(r)
	if err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.repos.ListRemote(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Files: listing.Repos,
		User:  listing.User,
		Metadata: listMetadata{
			TotalCount: len(listing.Repos),
			FetchedAt:  listing.FetchedAt.UTC().Format(time.RFC3339),
		},
	})
}
