package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/project-tracker/internal/apperror"
	"github.com/sakif/project-tracker/internal/model"
	"github.com/sakif/project-tracker/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// This line verifies AT COMPILE TIME that *DB implements repository.RepoMirror.
//
// How it works:
//   - `var _ X = (*Y)(nil)` creates a nil pointer of type *Y
//   - It assigns it to a variable of type X (the interface)
//   - If *Y doesn't implement X, the compiler errors immediately
//   - The `_` means we don't actually use the variable — it's just a check
var _ repository.RepoMirror = (*DB)(nil)

// Upsert inserts or fully overwrites a mirror record.
//
// WHY INSERT OR REPLACE (and not INSERT ... ON CONFLICT UPDATE)?
// The mirror semantics ARE "overwrite everything": every denormalized field
// is rewritten from the fresh GitHub snapshot on each sync, and the caller
// (service layer) has already decided the provenance value. There is no
// field-level merge to express, so the simplest SQLite idiom fits exactly.
//
// The record's ID must already be the composite key (model.RecordID) —
// the service layer sets it, this layer just stores what it's given.
func (db *DB) Upsert(ctx context.Context, record *model.RepoRecord) error {
	topics, err := json.Marshal(record.Topics)
	if err != nil {
		return fmt.Errorf("sqlite: encoding topics for %s: %w", record.ID, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO repos
		 (id, owner_key, remote_id, name, full_name, owner, url, description,
		  private, language, stars, forks, default_branch, topics, size,
		  remote_created_at, remote_updated_at, synced_at, provenance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.OwnerKey,
		record.RemoteID,
		record.Name,
		record.FullName,
		record.Owner,
		record.URL,
		record.Description,
		record.Private,
		record.Language,
		record.Stars,
		record.Forks,
		record.DefaultBranch,
		string(topics),
		record.Size,
		record.RemoteCreatedAt,
		record.RemoteUpdatedAt,
		record.SyncedAt,
		string(record.Provenance),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting repo %s: %w", record.ID, err)
	}

	return nil
}

// GetByID retrieves a single mirror record by its composite ID.
// Returns apperror.ErrNotFound if the record doesn't exist.
func (db *DB) GetByID(ctx context.Context, id string) (*model.RepoRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, owner_key, remote_id, name, full_name, owner, url, description,
		        private, language, stars, forks, default_branch, topics, size,
		        remote_created_at, remote_updated_at, synced_at, provenance
		 FROM repos WHERE id = ?`,
		id,
	)

	record, err := scanRepoRecord(row.Scan)
	if err != nil {
		// sql.ErrNoRows is a sentinel error — we check with ==
		// (not errors.Is, because database/sql doesn't wrap it)
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("repo record", id)
		}
		return nil, fmt.Errorf("sqlite: getting repo %s: %w", id, err)
	}

	return record, nil
}

// ListByOwner retrieves every mirror record for one ownerKey.
//
// No pagination: a reconciliation pass needs the COMPLETE local set to diff
// against the complete remote set — a partial read would make absent rows
// look deleted. Personal GitHub accounts top out in the low thousands of
// repos, which is nothing for SQLite.
func (db *DB) ListByOwner(ctx context.Context, ownerKey string) ([]model.RepoRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, owner_key, remote_id, name, full_name, owner, url, description,
		        private, language, stars, forks, default_branch, topics, size,
		        remote_created_at, remote_updated_at, synced_at, provenance
		 FROM repos
		 WHERE owner_key = ?
		 ORDER BY remote_updated_at DESC`,
		ownerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing repos for %s: %w", ownerKey, err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	var records []model.RepoRecord
	for rows.Next() {
		record, err := scanRepoRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning repo row: %w", err)
		}
		records = append(records, *record)
	}

	// rows.Err() catches errors that happened DURING iteration
	// (e.g. the connection dropping mid-read).
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating repos: %w", err)
	}

	return records, nil
}

// Delete removes a mirror record by its composite ID.
// Returns apperror.ErrNotFound if the record doesn't exist.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM repos WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting repo %s: %w", id, err)
	}

	// RowsAffected() tells us how many rows the DELETE touched.
	// 0 rows = the WHERE clause matched nothing → not found.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("repo record", id)
	}

	return nil
}

// scanRepoRecord reads one row into a RepoRecord. Taking the Scan function
// (rather than *sql.Row / *sql.Rows) lets GetByID and ListByOwner share the
// column order in one place — a mismatch between SELECT order and Scan order
// is the classic database/sql bug.
func scanRepoRecord(scan func(dest ...any) error) (*model.RepoRecord, error) {
	var (
		r          model.RepoRecord
		topicsJSON string
		provenance string
	)

	err := scan(
		&r.ID,
		&r.OwnerKey,
		&r.RemoteID,
		&r.Name,
		&r.FullName,
		&r.Owner,
		&r.URL,
		&r.Description,
		&r.Private,
		&r.Language,
		&r.Stars,
		&r.Forks,
		&r.DefaultBranch,
		&topicsJSON,
		&r.Size,
		&r.RemoteCreatedAt,
		&r.RemoteUpdatedAt,
		&r.SyncedAt,
		&provenance,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(topicsJSON), &r.Topics); err != nil {
		return nil, fmt.Errorf("decoding topics for %s: %w", r.ID, err)
	}
	r.Provenance = model.Provenance(provenance)

	return &r, nil
}
