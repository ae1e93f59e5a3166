package vault

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
	"github.com/dmitrijs2005/safekeeper/internal/session"
)

// Manager holds the single active session of a process and forwards calls to
// a Service. Secret operations without a session fail with
// common.ErrNoSession.
type Manager struct {
	svc *Service

	mu      sync.Mutex
	current *session.Session
}

// NewManager returns a Manager with no active session.
func NewManager(svc *Service) *Manager {
	return &Manager{svc: svc}
}

// Service exposes the underlying Service.
func (m *Manager) Service() *Service {
	return m.svc
}

func (m *Manager) active() (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current.Active() {
		return nil, common.ErrNoSession
	}
	return m.current, nil
}

// Authenticate logs in. On success any previous session is logged out and
// replaced; on failure the previous session stays active.
func (m *Manager) Authenticate(ctx context.Context, username string, password []byte) error {
	sess, err := m.svc.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	prev := m.current
	m.current = sess
	m.mu.Unlock()

	m.svc.Logout(ctx, prev)
	return nil
}

// Logout ends the active session, if any.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	m.svc.Logout(ctx, prev)
}

// CurrentUser returns the logged in username or "".
func (m *Manager) CurrentUser() string {
	sess, err := m.active()
	if err != nil {
		return ""
	}
	return sess.Username()
}

// LoggedIn reports whether a session is active.
func (m *Manager) LoggedIn() bool {
	_, err := m.active()
	return err == nil
}

// Register creates a new account. It does not log in.
func (m *Manager) Register(ctx context.Context, username string, password []byte) error {
	return m.svc.CreateUser(ctx, username, password)
}

func (m *Manager) GeneratePassword(length int, classes passgen.Classes) (string, error) {
	return m.svc.GeneratePassword(length, classes)
}

func (m *Manager) ListDomains(ctx context.Context) ([]string, error) {
	sess, err := m.active()
	if err != nil {
		return nil, err
	}
	return m.svc.ListDomains(ctx, sess)
}

func (m *Manager) AddEntry(ctx context.Context, in EntryInput) (string, error) {
	sess, err := m.active()
	if err != nil {
		return "", err
	}
	return m.svc.AddEntry(ctx, sess, in)
}

func (m *Manager) GetEntry(ctx context.Context, domain string) (*models.Credential, error) {
	sess, err := m.active()
	if err != nil {
		return nil, err
	}
	return m.svc.GetEntry(ctx, sess, domain)
}

func (m *Manager) UpdateEntry(ctx context.Context, domain string, password *string) (string, error) {
	sess, err := m.active()
	if err != nil {
		return "", err
	}
	return m.svc.UpdateEntry(ctx, sess, domain, password)
}

func (m *Manager) DeleteEntry(ctx context.Context, domain string) error {
	sess, err := m.active()
	if err != nil {
		return err
	}
	return m.svc.DeleteEntry(ctx, sess, domain)
}

func (m *Manager) ChangeMasterPassword(ctx context.Context, oldPassword, newPassword []byte) error {
	sess, err := m.active()
	if err != nil {
		return err
	}
	return m.svc.ChangeMasterPassword(ctx, sess, oldPassword, newPassword)
}

func (m *Manager) RecentLogs(limit int) ([]string, error) {
	sess, err := m.active()
	if err != nil {
		return nil, err
	}
	return m.svc.RecentLogs(sess, limit)
}
