package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/activitylog"
	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/session"
	"github.com/dmitrijs2005/safekeeper/internal/storage"
	"github.com/dmitrijs2005/safekeeper/internal/storage/filestore"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testIterations = 1000
	adminPassword  = "Admin@2024"
)

type fixture struct {
	dir      string
	store    *filestore.Store
	activity *activitylog.Log
	svc      *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")

	store, err := filestore.Open(dir)
	require.NoError(t, err)
	activity, err := activitylog.Open(dir)
	require.NoError(t, err)

	return &fixture{
		dir:      dir,
		store:    store,
		activity: activity,
		svc:      newTestService(store, activity, opts...),
	}
}

func newTestService(store storage.Store, activity ActivityLog, opts ...Option) *Service {
	base := []Option{WithKDFIterations(testIterations), WithBcryptCost(bcrypt.MinCost)}
	return NewService(store, activity, append(base, opts...)...)
}

func (f *fixture) login(t *testing.T, username, password string) *session.Session {
	t.Helper()
	sess, err := f.svc.Authenticate(context.Background(), username, []byte(password))
	require.NoError(t, err)
	return sess
}

func (f *fixture) adminSession(t *testing.T) *session.Session {
	t.Helper()
	require.NoError(t, f.svc.CreateUser(context.Background(), "admin", []byte(adminPassword)))
	sess := f.login(t, "admin", adminPassword)
	t.Cleanup(sess.Destroy)
	return sess
}

func (f *fixture) logLines(t *testing.T) []string {
	t.Helper()
	lines, err := f.activity.Recent(1000)
	require.NoError(t, err)
	return lines
}

func assertLogged(t *testing.T, lines []string, suffix string) {
	t.Helper()
	for _, l := range lines {
		if strings.HasSuffix(l, suffix) {
			return
		}
	}
	t.Fatalf("no activity line ends with %q in %q", suffix, lines)
}

func vaultBytes(t *testing.T, f *fixture) []byte {
	t.Helper()
	b, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	return b
}

// flakyStore fails selected operations with an I/O error.
type flakyStore struct {
	storage.Store
	failRotate  bool
	failTouch   bool
	afterRotate func()
}

func (s *flakyStore) Rotate(ctx context.Context, rec *models.AuthRecord, entries []*models.CredentialEntry) error {
	if s.failRotate {
		return errors.Join(common.ErrIO, errors.New("disk full"))
	}
	if err := s.Store.Rotate(ctx, rec, entries); err != nil {
		return err
	}
	if s.afterRotate != nil {
		s.afterRotate()
	}
	return nil
}

func (s *flakyStore) TouchLogin(ctx context.Context, username string, at time.Time) error {
	if s.failTouch {
		return errors.Join(common.ErrIO, errors.New("read-only filesystem"))
	}
	return s.Store.TouchLogin(ctx, username, at)
}

// brokenLog rejects every append.
type brokenLog struct{}

func (brokenLog) Append(string, string) error { return common.ErrIO }
func (brokenLog) Recent(int) ([]string, error) { return nil, common.ErrIO }
