// Package storage defines the persistence contract of the vault: the user
// directory and the credential store, plus an all-or-nothing rotation commit
// that replaces a user's auth record together with every one of their entries.
//
// Backends live in subpackages: filestore (a single JSON document replaced
// atomically on every write) and sqlstore (SQLite or PostgreSQL).
package storage

import (
	"context"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/models"
)

// Store is implemented by every backend.
//
// Lookups of unknown users or entries return common.ErrNotFound, duplicate
// inserts return common.ErrConflict and persistence failures wrap
// common.ErrIO. Returned records are copies owned by the caller.
type Store interface {
	GetUser(ctx context.Context, username string) (*models.AuthRecord, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, rec *models.AuthRecord) error
	TouchLogin(ctx context.Context, username string, at time.Time) error

	// ListEntries returns the owner's entries sorted by domain.
	ListEntries(ctx context.Context, owner string) ([]*models.CredentialEntry, error)
	GetEntry(ctx context.Context, owner, domain string) (*models.CredentialEntry, error)
	InsertEntry(ctx context.Context, e *models.CredentialEntry) error
	UpdateEntry(ctx context.Context, e *models.CredentialEntry) error
	DeleteEntry(ctx context.Context, owner, domain string) error

	// Rotate replaces rec (matched by Username) and the complete entry set of
	// that user in one atomic step. Either everything is persisted or nothing
	// is; entries of other users are left alone.
	Rotate(ctx context.Context, rec *models.AuthRecord, entries []*models.CredentialEntry) error

	Close() error
}
