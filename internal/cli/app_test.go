package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/safekeeper/internal/activitylog"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
	"github.com/dmitrijs2005/safekeeper/internal/storage/filestore"
	"github.com/dmitrijs2005/safekeeper/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminPassword = "Admin@2024"

func newTestManager(t *testing.T) *vault.Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")

	store, err := filestore.Open(dir)
	require.NoError(t, err)
	activity, err := activitylog.Open(dir)
	require.NoError(t, err)

	svc := vault.NewService(store, activity,
		vault.WithKDFIterations(1000),
		vault.WithBcryptCost(bcrypt.MinCost),
	)
	require.NoError(t, svc.CreateUser(context.Background(), "admin", []byte(adminPassword)))
	return vault.NewManager(svc)
}

// runSession feeds the script to a fresh App and returns everything printed.
func runSession(t *testing.T, m *vault.Manager, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(m, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, logging.Discard())
	app.Run(context.Background())
	return out.String()
}

func TestApp_AddShowListDelete(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"login admin", adminPassword,
		"add example.com", "me@example.com", "personal", "n", "p@ss1234",
		"add", "generated.io", "", "", "y",
		"show example.com",
		"list",
		"delete example.com", "no",
		"delete example.com", "yes",
		"show example.com",
		"exit",
	)

	assert.Contains(t, out, "Welcome, admin!")
	assert.Contains(t, out, "Saved example.com.")
	assert.Contains(t, out, "Generated password: ")
	assert.Contains(t, out, "Username: me@example.com")
	assert.Contains(t, out, "Password: p@ss1234")
	assert.Contains(t, out, "Notes:    personal")
	assert.Contains(t, out, "  example.com  (me@example.com)")
	assert.Contains(t, out, "  generated.io\n")
	assert.Contains(t, out, "2 entries.")
	assert.Contains(t, out, "Deletion canceled.")
	assert.Contains(t, out, "Deleted example.com.")
	assert.Contains(t, out, "No password found for example.com.")

	// Run logs out on exit.
	assert.False(t, m.LoggedIn())
}

func TestApp_LoginAttemptsAreLimited(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"login admin", "wrong-1", "wrong-2", "wrong-3",
		"list",
		"exit",
	)

	assert.Contains(t, out, "2 attempt(s) left.")
	assert.Contains(t, out, "1 attempt(s) left.")
	assert.Contains(t, out, "Too many failed attempts.")
	assert.Contains(t, out, "Please log in first.")
}

func TestApp_LoginSucceedsOnRetry(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m, "login", "admin", "wrong-1", adminPassword, "exit")

	assert.Contains(t, out, "2 attempt(s) left.")
	assert.Contains(t, out, "Welcome, admin!")
}

func TestApp_WeakManualPasswordNeedsConfirmation(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"login admin", adminPassword,
		"add short.com", "", "", "n", "abc", "n",
		"add short.com", "", "", "n", "abc", "y",
		"show short.com",
		"exit",
	)

	assert.Equal(t, 2, strings.Count(out, "Warning: password is shorter than 8 characters."))
	assert.Equal(t, 1, strings.Count(out, "Saved short.com."))
	assert.Contains(t, out, "Password: abc")
}

func TestApp_DuplicateDomain(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"login admin", adminPassword,
		"add x.com", "", "", "y",
		"add x.com", "", "", "y",
		"exit",
	)

	assert.Contains(t, out, "An entry for this domain already exists.")
}

func TestApp_UpdateEntry(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"login admin", adminPassword,
		"add a.com", "", "", "n", "first-pass",
		"update a.com", "n", "second-pass",
		"show a.com",
		"update missing.com", "y",
		"exit",
	)

	assert.Contains(t, out, "Updated a.com.")
	assert.Contains(t, out, "Password: second-pass")
	assert.Contains(t, out, "Not found.")
}

func TestApp_ChangePasswordAndRelogin(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"login admin", adminPassword,
		"add a.com", "", "", "n", "pw1-secret",
		"passwd", "wrong-old", "New-Master-1", "New-Master-1",
		"passwd", adminPassword, "short",
		"passwd", adminPassword, "New-Master-1", "Mismatch-1",
		"passwd", adminPassword, "New-Master-1", "New-Master-1",
		"logout",
		"login admin", "New-Master-1",
		"show a.com",
		"exit",
	)

	assert.Contains(t, out, "Current master password is incorrect.")
	assert.Contains(t, out, "Password must be at least 8 characters long.")
	assert.Contains(t, out, "Passwords do not match.")
	assert.Contains(t, out, "Master password changed.")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Password: pw1-secret")
}

func TestApp_RegisterGenerateLogs(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"register", "bob", "bob-password", "bob-password",
		"register", "bob", "bob-password", "bob-password",
		"login bob", "bob-password",
		"generate 24",
		"generate abc",
		"logs 3",
		"exit",
	)

	assert.Contains(t, out, "Account created.")
	assert.Contains(t, out, "This username is already taken.")
	assert.Contains(t, out, "Welcome, bob!")
	assert.Contains(t, out, "Error: validation error: expected a positive number")
	assert.Contains(t, out, "bob: Successful login")

	var generated string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "sk(bob)> ") && len(strings.TrimPrefix(l, "sk(bob)> ")) == 24 {
			generated = strings.TrimPrefix(l, "sk(bob)> ")
		}
	}
	assert.Len(t, generated, 24)
}

func TestApp_LogsNeedLogin(t *testing.T) {
	m := newTestManager(t)

	out := runSession(t, m,
		"logs",
		"login admin", adminPassword,
		"add secret-bank.com", "", "", "y",
		"logout",
		"logs",
		"exit",
	)

	assert.Equal(t, 2, strings.Count(out, "Please log in first."))
	assert.NotContains(t, out, "Added password for domain")
}
