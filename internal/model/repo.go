// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"fmt"
	"time"
)

// Provenance records WHY a mirror record was last written.
//
// The three values form a small hierarchy:
//   - "created":  this app created the repository on GitHub
//   - "existing": this app explicitly linked to a pre-existing repository
//   - "synced":   a background sync merely observed the repository
//
// A background sync must never downgrade "created"/"existing" to "synced" —
// the explicit user action is more meaningful metadata than an observation.
type Provenance string

const (
	ProvenanceCreated  Provenance = "created"
	ProvenanceExisting Provenance = "existing"
	ProvenanceSynced   Provenance = "synced"
)

// RepoRecord is one GitHub repository as last observed, mirrored locally.
//
// MIRROR, NOT INDEPENDENT STORE:
// Every denormalized field below (name, stars, language, ...) is overwritten
// wholesale on each sync. GitHub is always the source of truth; the mirror
// exists only so the dashboard can render without a round trip to GitHub.
// The only locally-owned fields are OwnerKey, SyncedAt and Provenance.
type RepoRecord struct {
	// ID is the deterministic composite "<ownerKey>_<remoteID>".
	// Because the key is derived (not generated), concurrent writers for the
	// same repository always hit the same row — upserts are commutative.
	ID       string `json:"id"`
	OwnerKey string `json:"ownerKey"` // internal account that owns this mirror row
	RemoteID int64  `json:"remoteId"` // GitHub's immutable repository ID — the reconciliation key

	// Denormalized display attributes, overwritten on every sync.
	Name          string   `json:"name"`
	FullName      string   `json:"fullName"` // "owner/name"
	Owner         string   `json:"owner"`    // owner login
	URL           string   `json:"url"`      // html_url
	Description   string   `json:"description"`
	Private       bool     `json:"private"`
	Language      string   `json:"language"` // empty if GitHub reports null
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	DefaultBranch string   `json:"defaultBranch"`
	Topics        []string `json:"topics"`
	Size          int      `json:"size"` // kilobytes, as reported by GitHub

	// Timestamps as reported by GitHub.
	RemoteCreatedAt time.Time `json:"createdAtRemote"`
	RemoteUpdatedAt time.Time `json:"updatedAtRemote"`

	// SyncedAt is OUR wall-clock time of the last successful write to this row.
	SyncedAt   time.Time  `json:"syncedAt"`
	Provenance Provenance `json:"provenance"`
}

// RecordID builds the deterministic composite document ID for a mirror row.
// Keeping this in one place means the reconcile pass and the create-or-link
// flow can never disagree about which row a repository maps to.
func RecordID(ownerKey string, remoteID int64) string {
	return fmt.Sprintf("%s_%d", ownerKey, remoteID)
}
