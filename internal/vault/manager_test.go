package vault

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, *fixture) {
	t.Helper()
	f := newFixture(t)
	require.NoError(t, f.svc.CreateUser(context.Background(), "admin", []byte(adminPassword)))
	m := NewManager(f.svc)
	t.Cleanup(func() { m.Logout(context.Background()) })
	return m, f
}

func TestManager_NoSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	assert.False(t, m.LoggedIn())
	assert.Empty(t, m.CurrentUser())

	_, err := m.ListDomains(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
	_, err = m.AddEntry(ctx, EntryInput{Domain: "a.com"})
	require.ErrorIs(t, err, common.ErrNoSession)
	_, err = m.GetEntry(ctx, "a.com")
	require.ErrorIs(t, err, common.ErrNoSession)
	_, err = m.UpdateEntry(ctx, "a.com", nil)
	require.ErrorIs(t, err, common.ErrNoSession)
	require.ErrorIs(t, m.DeleteEntry(ctx, "a.com"), common.ErrNoSession)
	require.ErrorIs(t, m.ChangeMasterPassword(ctx, []byte("a"), []byte("b")), common.ErrNoSession)
	_, err = m.RecentLogs(10)
	require.ErrorIs(t, err, common.ErrNoSession)

	// Available without a session.
	p, err := m.GeneratePassword(16, passgen.AllClasses)
	require.NoError(t, err)
	assert.Len(t, p, 16)
}

func TestManager_LogsHiddenAfterLogout(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))
	_, err := m.AddEntry(ctx, EntryInput{Domain: "secret-bank.com"})
	require.NoError(t, err)

	lines, err := m.RecentLogs(50)
	require.NoError(t, err)
	assert.Contains(t, lines[len(lines)-1], "Added password for domain: secret-bank.com")

	m.Logout(ctx)
	require.False(t, m.LoggedIn())

	lines, err = m.RecentLogs(50)
	require.ErrorIs(t, err, common.ErrNoSession)
	assert.Empty(t, lines)
}

// Scenario: add then get.
func TestManager_AddGet(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))
	assert.True(t, m.LoggedIn())
	assert.Equal(t, "admin", m.CurrentUser())

	_, err := m.AddEntry(ctx, EntryInput{Domain: "example.com", Password: models.StringPtr("p@ss1234")})
	require.NoError(t, err)

	got, err := m.GetEntry(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "p@ss1234", got.Password)
}

// Scenario: duplicate domain.
func TestManager_DuplicateDomain(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))

	_, err := m.AddEntry(ctx, EntryInput{Domain: "x.com"})
	require.NoError(t, err)
	_, err = m.AddEntry(ctx, EntryInput{Domain: "x.com"})
	require.ErrorIs(t, err, common.ErrConflict)
}

// Scenario: missing domain.
func TestManager_MissingDomain(t *testing.T) {
	ctx := context.Background()
	m, f := newManager(t)
	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))

	_, err := m.GetEntry(ctx, "missing.com")
	require.ErrorIs(t, err, common.ErrNotFound)
	assertLogged(t, f.logLines(t), "Password not found for domain: missing.com")

	domains, err := m.ListDomains(ctx)
	require.NoError(t, err)
	assert.Empty(t, domains)
}

// Scenario: rotate, log out, log in with the new password.
func TestManager_RotateAndRelogin(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))

	_, err := m.AddEntry(ctx, EntryInput{Domain: "a.com", Password: models.StringPtr("pw1")})
	require.NoError(t, err)
	require.NoError(t, m.ChangeMasterPassword(ctx, []byte(adminPassword), []byte(newMasterPassword)))

	m.Logout(ctx)
	assert.False(t, m.LoggedIn())

	require.NoError(t, m.Authenticate(ctx, "admin", []byte(newMasterPassword)))
	got, err := m.GetEntry(ctx, "a.com")
	require.NoError(t, err)
	assert.Equal(t, "pw1", got.Password)
}

func TestManager_FailedLoginKeepsCurrentSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))

	err := m.Authenticate(ctx, "admin", []byte("wrong-password"))
	require.ErrorIs(t, err, common.ErrAuthentication)
	assert.Equal(t, "admin", m.CurrentUser())
}

func TestManager_LoginReplacesSession(t *testing.T) {
	ctx := context.Background()
	m, f := newManager(t)
	require.NoError(t, m.Register(ctx, "bob", []byte("bob-password")))

	require.NoError(t, m.Authenticate(ctx, "admin", []byte(adminPassword)))
	_, err := m.AddEntry(ctx, EntryInput{Domain: "admin.com"})
	require.NoError(t, err)

	require.NoError(t, m.Authenticate(ctx, "bob", []byte("bob-password")))
	assert.Equal(t, "bob", m.CurrentUser())
	assertLogged(t, f.logLines(t), "admin: Logged out")

	domains, err := m.ListDomains(ctx)
	require.NoError(t, err)
	assert.Empty(t, domains)
}
