// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the concrete
// implementation; tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/project-tracker/internal/model"
)

// RepoMirror is the local mirror store for GitHub repositories.
//
// WRITE DISCIPLINE:
// Only two components write here — the reconciliation engine and the
// create-or-link flow. Records are keyed by the deterministic composite ID
// (model.RecordID), so Upsert is the only write primitive needed: concurrent
// writers for the same repository collapse onto the same row, last write
// wins, and both writers derive their values from GitHub anyway.
type RepoMirror interface {
	// Upsert inserts or fully overwrites the record with record.ID.
	Upsert(ctx context.Context, record *model.RepoRecord) error
	// GetByID returns apperror.ErrNotFound when the row doesn't exist.
	GetByID(ctx context.Context, id string) (*model.RepoRecord, error)
	// ListByOwner returns every mirror record for one ownerKey.
	ListByOwner(ctx context.Context, ownerKey string) ([]model.RepoRecord, error)
	// Delete returns apperror.ErrNotFound when the row doesn't exist.
	Delete(ctx context.Context, id string) error
}

// UserRepository stores local accounts (one per GitHub identity).
type UserRepository interface {
	UpsertUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}
