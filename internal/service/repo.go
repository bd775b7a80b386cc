package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/project-tracker/internal/apperror"
	"github.com/sakif/project-tracker/internal/github"
	"github.com/sakif/project-tracker/internal/model"
	"github.com/sakif/project-tracker/internal/repository"
)

// Actions reported by CreateOrLink.
const (
	ActionCreated  = "created"  // the repository did not exist; we created it
	ActionExisting = "existing" // the repository already existed; we linked it
)

// CreateRepoOptions carries the caller's wishes for a new repository.
// The pointer fields distinguish "not specified" from an explicit false —
// both Private and AutoInit default to TRUE when omitted.
type CreateRepoOptions struct {
	Description       string
	Private           *bool
	AutoInit          *bool
	GitignoreTemplate string
	LicenseTemplate   string
}

// CreateOrLinkResult is the outcome of one create-or-link call.
type CreateOrLinkResult struct {
	Action string       // ActionCreated or ActionExisting
	Repo   *github.Repo // the live repository, fetched or freshly created
}

// RemoteListing is what the dashboard's GET endpoint renders: the live
// repository list plus the identity it belongs to.
type RemoteListing struct {
	Repos     []github.Repo
	User      *github.Identity
	FetchedAt time.Time
}

// RepoService owns the idempotent create-or-link flow and the live listing.
type RepoService struct {
	mirror repository.RepoMirror
	remote github.API
	logger *slog.Logger
}

// NewRepoService creates a RepoService.
func NewRepoService(mirror repository.RepoMirror, remote github.API, logger *slog.Logger) *RepoService {
	return &RepoService{
		mirror: mirror,
		remote: remote,
		logger: logger,
	}
}

// CreateOrLink ensures a repository with the (normalized) desired name exists
// on the token's account, creating it only when it doesn't. Calling it twice
// with the same name converges on the same repository: the second call finds
// the repo and reports ActionExisting instead of failing.
//
// Either way the repository is upserted into the local mirror with provenance
// created/existing — which sticks across later syncs (see Reconcile). The
// mirror write is the one NON-fatal step: the remote mutation already
// happened, so a local write failure is logged and the caller still gets a
// success. The next reconciliation pass repairs the mirror.
//
// A 422 from creation means an external actor took the name between our
// existence check and the create. That surfaces as the ProviderError it is —
// retrying with the same name would 422 again, and inventing a different name
// isn't this flow's call to make.
func (s *RepoService) CreateOrLink(ctx context.Context, ownerKey, token, desiredName string, opts CreateRepoOptions) (*CreateOrLinkResult, error) {
	name := github.NormalizeName(desiredName)

	identity, err := s.remote.AuthenticatedUser(ctx, token)
	if err != nil {
		return nil, err
	}

	// Header-only API clients have no session account; key their mirror
	// records off the GitHub identity itself. Stable per account, and a
	// later login can't collide with it (xids don't start with "gh_").
	if ownerKey == "" {
		ownerKey = fmt.Sprintf("gh_%d", identity.ID)
	}

	repo, err := s.remote.GetRepository(ctx, token, identity.Login, name)
	switch {
	case err == nil:
		// Already there — link it, don't touch it.
		s.link(ctx, ownerKey, repo, model.ProvenanceExisting)
		return &CreateOrLinkResult{Action: ActionExisting, Repo: repo}, nil

	case errors.Is(err, apperror.ErrNotFound):
		// Fall through to creation.

	default:
		return nil, fmt.Errorf("checking for existing repository %s/%s: %w", identity.Login, name, err)
	}

	created, err := s.remote.CreateRepository(ctx, token, github.CreateOptions{
		Name:              name,
		Description:       opts.Description,
		Private:           boolOrDefault(opts.Private, true),
		AutoInit:          boolOrDefault(opts.AutoInit, true),
		GitignoreTemplate: opts.GitignoreTemplate,
		LicenseTemplate:   opts.LicenseTemplate,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("repository created",
		slog.String("ownerKey", ownerKey),
		slog.String("repo", created.FullName),
	)

	s.link(ctx, ownerKey, created, model.ProvenanceCreated)
	return &CreateOrLinkResult{Action: ActionCreated, Repo: created}, nil
}

// ListRemote fetches the live repository list for the token's account.
func (s *RepoService) ListRemote(ctx context.Context, token string) (*RemoteListing, error) {
	identity, err := s.remote.AuthenticatedUser(ctx, token)
	if err != nil {
		return nil, err
	}

	repos, err := s.remote.ListRepositories(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing remote repositories: %w", err)
	}

	return &RemoteListing{
		Repos:     repos,
		User:      identity,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// link writes the repository into the mirror with the given provenance.
// Best-effort on purpose: see the CreateOrLink doc comment.
func (s *RepoService) link(ctx context.Context, ownerKey string, repo *github.Repo, p model.Provenance) {
	rec := recordFromRepo(ownerKey, *repo, time.Now().UTC())
	rec.Provenance = p

	if err := s.mirror.Upsert(ctx, rec); err != nil {
		s.logger.Error("failed to mirror repository after remote success",
			slog.String("repo", repo.FullName),
			slog.String("provenance", string(p)),
			slog.String("error", err.Error()),
		)
	}
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
