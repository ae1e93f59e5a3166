// Package storagetest is a conformance suite run against every storage.Store
// backend from that backend's tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

var baseTime = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

// NewUser builds an AuthRecord with deterministic content.
func NewUser(name string) *models.AuthRecord {
	return &models.AuthRecord{
		Username:      name,
		PasswordHash:  "$2a$04$hash-of-" + name,
		KDFSalt:       []byte("0123456789abcdef0123456789abcdef"),
		KDFIterations: 1000,
		CreatedAt:     baseTime,
	}
}

// NewEntry builds a CredentialEntry with deterministic content.
func NewEntry(owner, domain string) *models.CredentialEntry {
	return &models.CredentialEntry{
		Owner:      owner,
		Domain:     domain,
		Ciphertext: []byte("ciphertext-" + domain),
		Nonce:      []byte("nonce-12byte"),
		Username:   models.StringPtr("login@" + domain),
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	open := func(t *testing.T) storage.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("entries", func(t *testing.T) { testEntries(t, open(t)) })
	t.Run("rotate", func(t *testing.T) { testRotate(t, open(t)) })
	t.Run("rotate unknown user", func(t *testing.T) { testRotateUnknownUser(t, open(t)) })
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetUser(ctx, "admin")
	require.ErrorIs(t, err, common.ErrNotFound)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.CreateUser(ctx, NewUser("admin")))
	require.ErrorIs(t, s.CreateUser(ctx, NewUser("admin")), common.ErrConflict)
	require.NoError(t, s.CreateUser(ctx, NewUser("demo")))

	n, err = s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, "$2a$04$hash-of-admin", got.PasswordHash)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), got.KDFSalt)
	assert.Equal(t, 1000, got.KDFIterations)
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.Nil(t, got.LastLogin)

	login := baseTime.Add(time.Hour)
	require.NoError(t, s.TouchLogin(ctx, "admin", login))
	require.ErrorIs(t, s.TouchLogin(ctx, "ghost", login), common.ErrNotFound)

	got, err = s.GetUser(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, login.Equal(*got.LastLogin))
}

func testEntries(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, NewUser("admin")))
	require.NoError(t, s.CreateUser(ctx, NewUser("demo")))

	list, err := s.ListEntries(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.InsertEntry(ctx, NewEntry("admin", "b.com")))
	require.NoError(t, s.InsertEntry(ctx, NewEntry("admin", "a.com")))
	require.NoError(t, s.InsertEntry(ctx, NewEntry("demo", "a.com")))
	require.ErrorIs(t, s.InsertEntry(ctx, NewEntry("admin", "a.com")), common.ErrConflict)

	list, err = s.ListEntries(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.com", list[0].Domain)
	assert.Equal(t, "b.com", list[1].Domain)

	got, err := s.GetEntry(ctx, "admin", "a.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Owner)
	assert.Equal(t, []byte("ciphertext-a.com"), got.Ciphertext)
	assert.Equal(t, []byte("nonce-12byte"), got.Nonce)
	require.NotNil(t, got.Username)
	assert.Equal(t, "login@a.com", *got.Username)
	assert.Nil(t, got.Notes)
	assert.True(t, baseTime.Equal(got.CreatedAt))

	_, err = s.GetEntry(ctx, "admin", "missing.com")
	require.ErrorIs(t, err, common.ErrNotFound)

	upd := NewEntry("admin", "a.com")
	upd.Ciphertext = []byte("new-ct")
	upd.Notes = models.StringPtr("note")
	upd.UpdatedAt = baseTime.Add(time.Minute)
	require.NoError(t, s.UpdateEntry(ctx, upd))
	require.ErrorIs(t, s.UpdateEntry(ctx, NewEntry("admin", "missing.com")), common.ErrNotFound)

	got, err = s.GetEntry(ctx, "admin", "a.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("new-ct"), got.Ciphertext)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "note", *got.Notes)
	assert.True(t, upd.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, s.DeleteEntry(ctx, "admin", "a.com"))
	require.ErrorIs(t, s.DeleteEntry(ctx, "admin", "a.com"), common.ErrNotFound)

	list, err = s.ListEntries(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b.com", list[0].Domain)

	// other users keep their entries
	list, err = s.ListEntries(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func testRotate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, NewUser("admin")))
	require.NoError(t, s.CreateUser(ctx, NewUser("demo")))
	require.NoError(t, s.InsertEntry(ctx, NewEntry("admin", "a.com")))
	require.NoError(t, s.InsertEntry(ctx, NewEntry("admin", "b.com")))
	require.NoError(t, s.InsertEntry(ctx, NewEntry("demo", "d.com")))

	rec := NewUser("admin")
	rec.PasswordHash = "$2a$04$rotated"
	rec.KDFSalt = []byte("fedcba9876543210fedcba9876543210")

	a := NewEntry("admin", "a.com")
	a.Ciphertext = []byte("rotated-a")
	b := NewEntry("admin", "b.com")
	b.Ciphertext = []byte("rotated-b")

	require.NoError(t, s.Rotate(ctx, rec, []*models.CredentialEntry{a, b}))

	got, err := s.GetUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$rotated", got.PasswordHash)
	assert.Equal(t, []byte("fedcba9876543210fedcba9876543210"), got.KDFSalt)

	list, err := s.ListEntries(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []byte("rotated-a"), list[0].Ciphertext)
	assert.Equal(t, []byte("rotated-b"), list[1].Ciphertext)

	other, err := s.GetEntry(ctx, "demo", "d.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext-d.com"), other.Ciphertext)

	demo, err := s.GetUser(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$hash-of-demo", demo.PasswordHash)
}

func testRotateUnknownUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	err := s.Rotate(ctx, NewUser("ghost"), nil)
	require.ErrorIs(t, err, common.ErrNotFound)
}
