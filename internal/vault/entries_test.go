package vault

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
	"github.com/dmitrijs2005/safekeeper/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	stored, err := f.svc.AddEntry(ctx, sess, EntryInput{
		Domain:   "example.com",
		Password: models.StringPtr("p@ss1234"),
		Username: models.StringPtr("admin@example.com"),
		Notes:    models.StringPtr("work account"),
	})
	require.NoError(t, err)
	assert.Equal(t, "p@ss1234", stored)

	got, err := f.svc.GetEntry(ctx, sess, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "p@ss1234", got.Password)
	assert.Equal(t, "admin@example.com", *got.Username)
	assert.Equal(t, "work account", *got.Notes)

	lines := f.logLines(t)
	assertLogged(t, lines, "admin: Added password for domain: example.com")
	assertLogged(t, lines, "admin: Retrieved password for domain: example.com")
}

func TestAddEntry_StoresOnlyCiphertext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	_, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: "example.com", Password: models.StringPtr("p@ss1234")})
	require.NoError(t, err)

	raw := vaultBytes(t, f)
	assert.NotContains(t, string(raw), "p@ss1234")

	e, err := f.store.GetEntry(ctx, "admin", "example.com")
	require.NoError(t, err)
	assert.Len(t, e.Nonce, 12)
	assert.Nil(t, e.Username)
	assert.Nil(t, e.Notes)
}

func TestAddEntry_GeneratesPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	generated, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: "generated.io"})
	require.NoError(t, err)
	assert.Len(t, generated, passgen.DefaultLength)

	got, err := f.svc.GetEntry(ctx, sess, "generated.io")
	require.NoError(t, err)
	assert.Equal(t, generated, got.Password)
}

func TestAddEntry_Conflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	_, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: "x.com", Password: models.StringPtr("first-pw")})
	require.NoError(t, err)

	_, err = f.svc.AddEntry(ctx, sess, EntryInput{Domain: "x.com", Password: models.StringPtr("second-pw")})
	require.ErrorIs(t, err, common.ErrConflict)

	got, err := f.svc.GetEntry(ctx, sess, "x.com")
	require.NoError(t, err)
	assert.Equal(t, "first-pw", got.Password)
}

func TestAddEntry_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	_, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: "  "})
	require.ErrorIs(t, err, common.ErrValidation)

	empty := ""
	_, err = f.svc.AddEntry(ctx, sess, EntryInput{Domain: "a.com", Password: &empty})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.UpdateEntry(ctx, sess, "a.com", &empty)
	require.ErrorIs(t, err, common.ErrNotFound)

	domains, err := f.svc.ListDomains(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestGetEntry_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	got, err := f.svc.GetEntry(ctx, sess, "missing.com")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Nil(t, got)
	assertLogged(t, f.logLines(t), "admin: Password not found for domain: missing.com")

	// The session keeps working.
	_, err = f.svc.AddEntry(ctx, sess, EntryInput{Domain: "present.com", Password: models.StringPtr("pw-present")})
	require.NoError(t, err)
}

func TestGetEntry_TamperedEntryReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	_, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: "bank.com", Password: models.StringPtr("hunter22")})
	require.NoError(t, err)

	e, err := f.store.GetEntry(ctx, "admin", "bank.com")
	require.NoError(t, err)
	e.Ciphertext[0] ^= 0x01
	require.NoError(t, f.store.UpdateEntry(ctx, e))

	got, err := f.svc.GetEntry(ctx, sess, "bank.com")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.NotErrorIs(t, err, common.ErrIntegrity)
	assert.Nil(t, got)
	assertLogged(t, f.logLines(t), "admin: Failed to decrypt password for bank.com: integrity check failed")
}

func TestUpdateEntry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return clock }))
	sess := f.adminSession(t)

	_, err := f.svc.AddEntry(ctx, sess, EntryInput{
		Domain:   "mail.com",
		Password: models.StringPtr("old-secret"),
		Username: models.StringPtr("me@mail.com"),
		Notes:    models.StringPtr("personal"),
	})
	require.NoError(t, err)
	before, err := f.store.GetEntry(ctx, "admin", "mail.com")
	require.NoError(t, err)

	clock = clock.Add(48 * time.Hour)
	_, err = f.svc.UpdateEntry(ctx, sess, "mail.com", models.StringPtr("new-secret"))
	require.NoError(t, err)

	after, err := f.store.GetEntry(ctx, "admin", "mail.com")
	require.NoError(t, err)
	assert.NotEqual(t, before.Nonce, after.Nonce)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, clock, after.UpdatedAt)
	assert.Equal(t, before.Username, after.Username)
	assert.Equal(t, before.Notes, after.Notes)

	got, err := f.svc.GetEntry(ctx, sess, "mail.com")
	require.NoError(t, err)
	assert.Equal(t, "new-secret", got.Password)
	assertLogged(t, f.logLines(t), "admin: Updated password for domain: mail.com")
}

func TestUpdateEntry_GeneratesWhenNil(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	_, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: "site.org", Password: models.StringPtr("initial-pw")})
	require.NoError(t, err)

	generated, err := f.svc.UpdateEntry(ctx, sess, "site.org", nil)
	require.NoError(t, err)
	assert.NotEqual(t, "initial-pw", generated)

	got, err := f.svc.GetEntry(ctx, sess, "site.org")
	require.NoError(t, err)
	assert.Equal(t, generated, got.Password)
}

func TestUpdateDelete_MissingEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	_, err := f.svc.UpdateEntry(ctx, sess, "nowhere.net", models.StringPtr("whatever"))
	require.ErrorIs(t, err, common.ErrNotFound)

	err = f.svc.DeleteEntry(ctx, sess, "nowhere.net")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.adminSession(t)

	for _, d := range []string{"b.com", "a.com", "c.com"} {
		_, err := f.svc.AddEntry(ctx, sess, EntryInput{Domain: d, Password: models.StringPtr("pw-" + d)})
		require.NoError(t, err)
	}

	domains, err := f.svc.ListDomains(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, domains)

	require.NoError(t, f.svc.DeleteEntry(ctx, sess, "b.com"))
	assertLogged(t, f.logLines(t), "admin: Deleted password for domain: b.com")

	domains, err = f.svc.ListDomains(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "c.com"}, domains)
}

func TestEntries_AreScopedToSessionUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.adminSession(t)
	require.NoError(t, f.svc.CreateUser(ctx, "bob", []byte("bob-password")))
	bob := f.login(t, "bob", "bob-password")
	defer bob.Destroy()

	_, err := f.svc.AddEntry(ctx, admin, EntryInput{Domain: "shared.com", Password: models.StringPtr("admin-pw")})
	require.NoError(t, err)

	domains, err := f.svc.ListDomains(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, domains)

	_, err = f.svc.AddEntry(ctx, bob, EntryInput{Domain: "shared.com", Password: models.StringPtr("bob-pw")})
	require.NoError(t, err)

	got, err := f.svc.GetEntry(ctx, bob, "shared.com")
	require.NoError(t, err)
	assert.Equal(t, "bob-pw", got.Password)
}

func TestEntryOperations_RequireSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.CreateUser(ctx, "admin", []byte(adminPassword)))
	before := len(f.logLines(t))

	var none *session.Session
	ended := f.login(t, "admin", adminPassword)
	ended.Destroy()
	before++

	for _, sess := range []*session.Session{none, ended} {
		_, err := f.svc.ListDomains(ctx, sess)
		require.ErrorIs(t, err, common.ErrNoSession)
		_, err = f.svc.AddEntry(ctx, sess, EntryInput{Domain: "a.com"})
		require.ErrorIs(t, err, common.ErrNoSession)
		_, err = f.svc.GetEntry(ctx, sess, "a.com")
		require.ErrorIs(t, err, common.ErrNoSession)
		_, err = f.svc.UpdateEntry(ctx, sess, "a.com", nil)
		require.ErrorIs(t, err, common.ErrNoSession)
		err = f.svc.DeleteEntry(ctx, sess, "a.com")
		require.ErrorIs(t, err, common.ErrNoSession)
		err = f.svc.ChangeMasterPassword(ctx, sess, []byte(adminPassword), []byte("new-password"))
		require.ErrorIs(t, err, common.ErrNoSession)
	}

	// Rejections are not audited.
	assert.Len(t, f.logLines(t), before)
}
