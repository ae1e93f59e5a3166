// Package vault implements the credential vault: account creation, login,
// per-domain secret CRUD and master-password rotation.
//
// Service is stateless with respect to sessions: every operation on secrets
// takes the *session.Session returned by Authenticate. Manager wraps a Service
// and keeps the single active session of an interactive process.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/cryptox"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
	"github.com/dmitrijs2005/safekeeper/internal/session"
	"github.com/dmitrijs2005/safekeeper/internal/storage"
)

// MinMasterPasswordLength is the shortest master password accepted for new
// accounts and rotations.
const MinMasterPasswordLength = 8

// ActivityLog receives the audit trail. *activitylog.Log implements it.
type ActivityLog interface {
	Append(actor, message string) error
	Recent(limit int) ([]string, error)
}

// EntryInput describes a new credential. A nil Password asks for a generated
// one.
type EntryInput struct {
	Domain   string
	Password *string
	Username *string
	Notes    *string
}

// Service performs vault operations against a storage backend.
type Service struct {
	store      storage.Store
	activity   ActivityLog
	log        logging.Logger
	kdfIter    int
	bcryptCost int
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithKDFIterations sets the PBKDF2 work factor for new and rotated records.
func WithKDFIterations(n int) Option {
	return func(s *Service) { s.kdfIter = n }
}

// WithBcryptCost sets the bcrypt cost for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service with production work factors unless overridden.
func NewService(store storage.Store, activity ActivityLog, opts ...Option) *Service {
	s := &Service{
		store:      store,
		activity:   activity,
		log:        logging.Discard(),
		kdfIter:    cryptox.DefaultKDFIterations,
		bcryptCost: cryptox.DefaultBcryptCost,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// audit appends to the activity log. A failing audit write is reported to the
// diagnostic log but does not undo or fail the operation it describes.
func (s *Service) audit(ctx context.Context, actor, message string) {
	if err := s.activity.Append(actor, message); err != nil {
		s.log.Warn(ctx, "activity log append failed", "actor", actor, "error", err)
	}
}

func requireSession(sess *session.Session) error {
	if !sess.Active() {
		return common.ErrNoSession
	}
	return nil
}

func validateMasterPassword(password []byte) error {
	if len(password) < MinMasterPasswordLength {
		return fmt.Errorf("%w: master password must be at least %d characters", common.ErrValidation, MinMasterPasswordLength)
	}
	return nil
}

func normalizeDomain(domain string) (string, error) {
	d := strings.TrimSpace(domain)
	if d == "" {
		return "", fmt.Errorf("%w: domain cannot be empty", common.ErrValidation)
	}
	return d, nil
}

func iterationsOf(rec *models.AuthRecord) int {
	if rec.KDFIterations > 0 {
		return rec.KDFIterations
	}
	return cryptox.DefaultKDFIterations
}

// CreateUser registers a new account with a fresh KDF salt.
func (s *Service) CreateUser(ctx context.Context, username string, password []byte) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username cannot be empty", common.ErrValidation)
	}
	if err := validateMasterPassword(password); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	salt, err := common.GenerateRandByteArray(cryptox.SaltSize)
	if err != nil {
		return err
	}

	rec := &models.AuthRecord{
		Username:      username,
		PasswordHash:  hash,
		KDFSalt:       salt,
		KDFIterations: s.kdfIter,
		CreatedAt:     s.timestamp(),
	}
	if err := s.store.CreateUser(ctx, rec); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	s.audit(ctx, username, "Created account")
	s.log.Info(ctx, "account created", "user", username)
	return nil
}

// Authenticate checks username/password and, on success, returns a new
// session holding the derived key. Unknown users and wrong passwords both
// yield common.ErrAuthentication. Attempt limiting is left to the caller.
func (s *Service) Authenticate(ctx context.Context, username string, password []byte) (*session.Session, error) {
	rec, err := s.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.audit(ctx, username, "Failed login attempt - user not found")
			return nil, common.ErrAuthentication
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !cryptox.VerifyPassword(password, rec.PasswordHash) {
		s.audit(ctx, username, "Failed login attempt - incorrect password")
		return nil, common.ErrAuthentication
	}

	sess := session.New(username, cryptox.DeriveKey(password, rec.KDFSalt, iterationsOf(rec)))

	if err := s.store.TouchLogin(ctx, username, s.timestamp()); err != nil {
		sess.Destroy()
		return nil, fmt.Errorf("update last login: %w", err)
	}

	s.audit(ctx, username, "Successful login")
	s.log.Info(ctx, "session started", "user", username, "session_id", sess.ID())
	return sess, nil
}

// Logout destroys the session key. Logging out an inactive session is a
// no-op.
func (s *Service) Logout(ctx context.Context, sess *session.Session) {
	if !sess.Active() {
		return
	}
	s.audit(ctx, sess.Username(), "Logged out")
	s.log.Info(ctx, "session ended", "user", sess.Username(), "session_id", sess.ID())
	sess.Destroy()
}

// GeneratePassword returns a random password; see passgen.Generate.
func (s *Service) GeneratePassword(length int, classes passgen.Classes) (string, error) {
	return passgen.Generate(length, classes)
}

// RecentLogs returns up to limit of the latest activity-log lines. The log
// names domains of every account, so an active session is required.
func (s *Service) RecentLogs(sess *session.Session, limit int) ([]string, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.activity.Recent(limit)
}
