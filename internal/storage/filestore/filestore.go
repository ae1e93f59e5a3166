// Package filestore persists the vault as a single JSON document.
//
// Every mutation is a read-modify-write of the whole file. The new content is
// written to a temporary file in the same directory, synced, and renamed over
// the old one, so a crash leaves either the previous or the next version on
// disk and never a mix. Only one process may use a data directory at a time.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/filex"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/natefinch/atomic"
)

// FileName is the name of the vault document inside the data directory.
const FileName = "vault.json"

// writeFile is a test seam for atomic.WriteFile.
var writeFile = atomic.WriteFile

// Store is a storage.Store backed by a JSON document on disk.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open prepares dir (creating it if needed) and returns a Store for the
// document in it. A missing document is treated as an empty vault.
func Open(dir string) (*Store, error) {
	if _, err := filex.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return &Store{path: filepath.Join(dir, FileName)}, nil
}

// Path returns the location of the vault document.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newDocument(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrIO, s.path, err)
	}

	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", common.ErrIO, s.path, err)
	}
	if doc.Users == nil {
		doc.Users = map[string]*userRecord{}
	}
	if doc.Credentials == nil {
		doc.Credentials = map[string]map[string]*entryRecord{}
	}
	return doc, nil
}

func (s *Store) save(doc *document) error {
	doc.Version = documentVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode vault: %w", common.ErrIO, err)
	}
	if err := writeFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %w", common.ErrIO, s.path, err)
	}
	return nil
}

// view runs fn against the current document without writing it back.
func (s *Store) view(ctx context.Context, fn func(doc *document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn against the current document and commits the result if fn
// succeeds. A failing fn leaves the file untouched.
func (s *Store) update(ctx context.Context, fn func(doc *document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Store) GetUser(ctx context.Context, username string) (*models.AuthRecord, error) {
	var rec *models.AuthRecord
	err := s.view(ctx, func(doc *document) error {
		u, ok := doc.Users[username]
		if !ok {
			return fmt.Errorf("user %q: %w", username, common.ErrNotFound)
		}
		rec = u.toModel(username)
		return nil
	})
	return rec, err
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, func(doc *document) error {
		n = len(doc.Users)
		return nil
	})
	return n, err
}

func (s *Store) CreateUser(ctx context.Context, rec *models.AuthRecord) error {
	return s.update(ctx, func(doc *document) error {
		if _, ok := doc.Users[rec.Username]; ok {
			return fmt.Errorf("user %q: %w", rec.Username, common.ErrConflict)
		}
		doc.Users[rec.Username] = userFromModel(rec)
		return nil
	})
}

func (s *Store) TouchLogin(ctx context.Context, username string, at time.Time) error {
	return s.update(ctx, func(doc *document) error {
		u, ok := doc.Users[username]
		if !ok {
			return fmt.Errorf("user %q: %w", username, common.ErrNotFound)
		}
		u.LastLogin = &at
		return nil
	})
}

func (s *Store) ListEntries(ctx context.Context, owner string) ([]*models.CredentialEntry, error) {
	var result []*models.CredentialEntry
	err := s.view(ctx, func(doc *document) error {
		entries := doc.Credentials[owner]
		result = make([]*models.CredentialEntry, 0, len(entries))
		for _, domain := range sortedKeys(entries) {
			result = append(result, entries[domain].toModel(owner, domain))
		}
		return nil
	})
	return result, err
}

func (s *Store) GetEntry(ctx context.Context, owner, domain string) (*models.CredentialEntry, error) {
	var e *models.CredentialEntry
	err := s.view(ctx, func(doc *document) error {
		r, ok := doc.Credentials[owner][domain]
		if !ok {
			return fmt.Errorf("entry %q: %w", domain, common.ErrNotFound)
		}
		e = r.toModel(owner, domain)
		return nil
	})
	return e, err
}

func (s *Store) InsertEntry(ctx context.Context, e *models.CredentialEntry) error {
	return s.update(ctx, func(doc *document) error {
		entries, ok := doc.Credentials[e.Owner]
		if !ok {
			entries = map[string]*entryRecord{}
			doc.Credentials[e.Owner] = entries
		}
		if _, ok := entries[e.Domain]; ok {
			return fmt.Errorf("entry %q: %w", e.Domain, common.ErrConflict)
		}
		entries[e.Domain] = entryFromModel(e)
		return nil
	})
}

func (s *Store) UpdateEntry(ctx context.Context, e *models.CredentialEntry) error {
	return s.update(ctx, func(doc *document) error {
		if _, ok := doc.Credentials[e.Owner][e.Domain]; !ok {
			return fmt.Errorf("entry %q: %w", e.Domain, common.ErrNotFound)
		}
		doc.Credentials[e.Owner][e.Domain] = entryFromModel(e)
		return nil
	})
}

func (s *Store) DeleteEntry(ctx context.Context, owner, domain string) error {
	return s.update(ctx, func(doc *document) error {
		if _, ok := doc.Credentials[owner][domain]; !ok {
			return fmt.Errorf("entry %q: %w", domain, common.ErrNotFound)
		}
		delete(doc.Credentials[owner], domain)
		return nil
	})
}

// Rotate swaps in the new auth record and the full re-encrypted entry set of
// rec.Username with one file replacement.
func (s *Store) Rotate(ctx context.Context, rec *models.AuthRecord, entries []*models.CredentialEntry) error {
	return s.update(ctx, func(doc *document) error {
		if _, ok := doc.Users[rec.Username]; !ok {
			return fmt.Errorf("user %q: %w", rec.Username, common.ErrNotFound)
		}

		replaced := make(map[string]*entryRecord, len(entries))
		for _, e := range entries {
			if e.Owner != rec.Username {
				return fmt.Errorf("%w: entry %q belongs to %q, not %q", common.ErrValidation, e.Domain, e.Owner, rec.Username)
			}
			replaced[e.Domain] = entryFromModel(e)
		}

		doc.Users[rec.Username] = userFromModel(rec)
		doc.Credentials[rec.Username] = replaced
		return nil
	})
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}
