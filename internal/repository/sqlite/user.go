package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/project-tracker/internal/apperror"
	"github.com/sakif/project-tracker/internal/model"
	"github.com/sakif/project-tracker/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// UpsertUser inserts or updates a user keyed by their GitHub ID.
//
// LOOKUP-THEN-WRITE, not INSERT OR REPLACE:
// The repos table REPLACEs blindly because its key is deterministic. Here the
// internal ID is GENERATED (xid), and it doubles as the ownerKey every mirror
// record is stored under — replacing the row with a fresh ID on each login
// would orphan the user's entire mirror. So we look the account up by
// github_id first and keep its ID, writing only the profile fields GitHub
// may have changed (login, email, avatar).
//
// The racy read-then-write is fine at this scale: the only writer is the
// OAuth callback, and two simultaneous logins for the same GitHub account
// converge on the same row either way (github_id is UNIQUE).
//
// On return, user.ID / CreatedAt / UpdatedAt are filled in — the caller gets
// the canonical record whether the account was new or known.
func (db *DB) UpsertUser(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		// Known account — keep the internal ID, refresh the profile.
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET login = ?, email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login,
			user.Email,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
	} else {
		// First login — mint the internal ID (the mirror's ownerKey) and INSERT.
		now := time.Now()
		user.ID = xid.New().String()
		user.CreatedAt = now
		user.UpdatedAt = now

		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO users (id, github_id, login, email, avatar_url, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.GitHubID,
			user.Login,
			user.Email,
			user.AvatarURL,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
		}
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID (the same value sessions
// carry as the account ID). Returns apperror.ErrNotFound if no user exists
// with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, email, avatar_url, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Email,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}
