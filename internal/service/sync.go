// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-layer shape:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the local mirror
//
// Services take interfaces (repository.RepoMirror, github.API), not concrete
// types — tests substitute in-memory fakes, and the handler layer stays
// ignorant of both SQL and the GitHub wire format.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/project-tracker/internal/apperror"
	"github.com/sakif/project-tracker/internal/github"
	"github.com/sakif/project-tracker/internal/model"
	"github.com/sakif/project-tracker/internal/repository"
)

// SyncStats summarizes one reconciliation pass.
type SyncStats struct {
	Total   int `json:"total"`   // repositories visible on GitHub
	Synced  int `json:"synced"`  // mirror records written
	Deleted int `json:"deleted"` // stale mirror records removed
	Errors  int `json:"errors"`  // per-item failures (len(SyncResult.Errors))
}

// ItemError records a single repository that failed to sync. The pass keeps
// going past these; they're reported, not fatal.
//
// The JSON keys are part of the dashboard contract: it renders
// `{repo, error}` pairs in the sync report.
type ItemError struct {
	Repo   string `json:"repo"` // full name when known, else the record ID
	Reason string `json:"error"`
}

// SyncResult is the outcome of a reconciliation pass.
type SyncResult struct {
	Stats  SyncStats
	Errors []ItemError
	User   *github.Identity
}

// SyncService reconciles the local mirror against the live GitHub listing.
type SyncService struct {
	mirror repository.RepoMirror
	remote github.API
	logger *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(mirror repository.RepoMirror, remote github.API, logger *slog.Logger) *SyncService {
	return &SyncService{
		mirror: mirror,
		remote: remote,
		logger: logger,
	}
}

// Reconcile makes the local mirror for ownerKey converge on the live GitHub
// state for the given token.
//
// The pass has two fatal preconditions and then a best-effort body:
//
//  1. Resolve the token's identity (fatal on failure — a bad token means
//     nothing below can be trusted).
//  2. List ALL remote repositories (fatal on failure — a partial listing
//     would make missing repos look deleted and wipe good mirror rows).
//  3. Delete local records whose remote ID no longer appears in the listing,
//     then upsert one record per remote repository. Failures inside this
//     step are collected per-item and never abort the pass.
//
// Running it twice in a row with an unchanged remote is a no-op the second
// time: same IDs, same field values, nothing to delete.
func (s *SyncService) Reconcile(ctx context.Context, ownerKey, token string) (*SyncResult, error) {
	if ownerKey == "" {
		return nil, apperror.ValidationFailed("ownerKey", "ownerKey is required")
	}

	identity, err := s.remote.AuthenticatedUser(ctx, token)
	if err != nil {
		return nil, err
	}

	remoteRepos, err := s.remote.ListRepositories(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing remote repositories: %w", err)
	}

	// The local read is fatal too: without the complete local set we can't
	// tell which records are stale, and we'd lose provenance on the rest.
	local, err := s.mirror.ListByOwner(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("listing local mirror: %w", err)
	}

	result := &SyncResult{User: identity}
	result.Stats.Total = len(remoteRepos)

	// Index what GitHub knows by the immutable remote ID. Names change on
	// rename; the numeric ID is the only stable reconciliation key.
	remoteIDs := make(map[int64]bool, len(remoteRepos))
	for _, r := range remoteRepos {
		remoteIDs[r.ID] = true
	}

	// Index local provenance so sync upserts don't downgrade records the
	// create-or-link flow marked as created/existing.
	provenance := make(map[string]model.Provenance, len(local))

	// === DELETE PHASE ===
	for _, rec := range local {
		provenance[rec.ID] = rec.Provenance

		if remoteIDs[rec.RemoteID] {
			continue
		}
		if err := s.mirror.Delete(ctx, rec.ID); err != nil {
			s.logger.Error("failed to delete stale mirror record",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
			)
			result.Errors = append(result.Errors, ItemError{
				Repo:   rec.FullName,
				Reason: fmt.Sprintf("deleting stale record: %v", err),
			})
			continue
		}
		result.Stats.Deleted++
	}

	// === UPSERT PHASE ===
	now := time.Now().UTC()
	for _, r := range remoteRepos {
		rec := recordFromRepo(ownerKey, r, now)
		if p, ok := provenance[rec.ID]; ok && p != model.ProvenanceSynced {
			rec.Provenance = p
		}

		if err := s.mirror.Upsert(ctx, rec); err != nil {
			s.logger.Error("failed to upsert mirror record",
				slog.String("repo", r.FullName),
				slog.String("error", err.Error()),
			)
			result.Errors = append(result.Errors, ItemError{
				Repo:   r.FullName,
				Reason: err.Error(),
			})
			continue
		}
		result.Stats.Synced++
	}

	result.Stats.Errors = len(result.Errors)

	s.logger.Info("reconciliation pass complete",
		slog.String("ownerKey", ownerKey),
		slog.String("login", identity.Login),
		slog.Int("total", result.Stats.Total),
		slog.Int("synced", result.Stats.Synced),
		slog.Int("deleted", result.Stats.Deleted),
		slog.Int("errors", result.Stats.Errors),
	)

	return result, nil
}

// recordFromRepo maps one GitHub repository onto a mirror record for
// ownerKey. Provenance defaults to synced; callers adjust it when the
// record's history says otherwise.
func recordFromRepo(ownerKey string, r github.Repo, syncedAt time.Time) *model.RepoRecord {
	return &model.RepoRecord{
		ID:              model.RecordID(ownerKey, r.ID),
		OwnerKey:        ownerKey,
		RemoteID:        r.ID,
		Name:            r.Name,
		FullName:        r.FullName,
		Owner:           r.Owner.Login,
		URL:             r.HTMLURL,
		Description:     r.Description,
		Private:         r.Private,
		Language:        r.Language,
		Stars:           r.StargazersCount,
		Forks:           r.ForksCount,
		DefaultBranch:   r.DefaultBranch,
		Topics:          r.Topics,
		Size:            r.Size,
		RemoteCreatedAt: r.CreatedAt,
		RemoteUpdatedAt: r.UpdatedAt,
		SyncedAt:        syncedAt,
		Provenance:      model.ProvenanceSynced,
	}
}
