package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/cryptox"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
	"github.com/dmitrijs2005/safekeeper/internal/session"
)

// resolvePassword returns the supplied password or a generated one when the
// caller passed nil.
func resolvePassword(password *string) (string, error) {
	if password == nil {
		return passgen.Generate(passgen.DefaultLength, passgen.AllClasses)
	}
	if *password == "" {
		return "", fmt.Errorf("%w: password cannot be empty", common.ErrValidation)
	}
	return *password, nil
}

func seal(sess *session.Session, plaintext string) (ciphertext, nonce []byte, err error) {
	err = sess.WithKey(func(key []byte) error {
		var encErr error
		ciphertext, nonce, encErr = cryptox.Encrypt([]byte(plaintext), key)
		return encErr
	})
	return ciphertext, nonce, err
}

func unseal(sess *session.Session, e *models.CredentialEntry) ([]byte, error) {
	var plaintext []byte
	err := sess.WithKey(func(key []byte) error {
		var decErr error
		plaintext, decErr = cryptox.Decrypt(e.Ciphertext, e.Nonce, key)
		return decErr
	})
	return plaintext, err
}

// ListDomains returns the session user's domains in sorted order. Nothing is
// decrypted.
func (s *Service) ListDomains(ctx context.Context, sess *session.Session) ([]string, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, sess.Username())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	domains := make([]string, 0, len(entries))
	for _, e := range entries {
		domains = append(domains, e.Domain)
	}
	return domains, nil
}

// AddEntry encrypts and stores a new credential and returns the password
// that was stored, which is the generated one when in.Password is nil.
func (s *Service) AddEntry(ctx context.Context, sess *session.Session, in EntryInput) (string, error) {
	if err := requireSession(sess); err != nil {
		return "", err
	}
	domain, err := normalizeDomain(in.Domain)
	if err != nil {
		return "", err
	}

	owner := sess.Username()
	if _, err := s.store.GetEntry(ctx, owner, domain); err == nil {
		return "", fmt.Errorf("%w: entry for %s already exists", common.ErrConflict, domain)
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("lookup entry: %w", err)
	}

	password, err := resolvePassword(in.Password)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := seal(sess, password)
	if err != nil {
		return "", err
	}

	now := s.timestamp()
	entry := &models.CredentialEntry{
		Owner:      owner,
		Domain:     domain,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Username:   in.Username,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}

	s.audit(ctx, owner, "Added password for domain: "+domain)
	return password, nil
}

// GetEntry decrypts a credential. A missing entry and one that fails
// authentication are both reported as common.ErrNotFound and recorded in the
// activity log.
func (s *Service) GetEntry(ctx context.Context, sess *session.Session, domain string) (*models.Credential, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	domain, err := normalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	owner := sess.Username()
	entry, err := s.store.GetEntry(ctx, owner, domain)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.audit(ctx, owner, "Password not found for domain: "+domain)
			return nil, fmt.Errorf("%w: no entry for %s", common.ErrNotFound, domain)
		}
		return nil, fmt.Errorf("load entry: %w", err)
	}

	plaintext, err := unseal(sess, entry)
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			s.audit(ctx, owner, fmt.Sprintf("Failed to decrypt password for %s: integrity check failed", domain))
			s.log.Warn(ctx, "entry failed integrity check", "user", owner, "domain", domain)
			return nil, fmt.Errorf("%w: no readable entry for %s", common.ErrNotFound, domain)
		}
		return nil, err
	}
	defer common.WipeByteArray(plaintext)

	s.audit(ctx, owner, "Retrieved password for domain: "+domain)
	return &models.Credential{
		Domain:    entry.Domain,
		Password:  string(plaintext),
		Username:  entry.Username,
		Notes:     entry.Notes,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}, nil
}

// UpdateEntry re-encrypts an existing credential under a fresh nonce and
// returns the stored password. Username, notes and creation time are kept.
func (s *Service) UpdateEntry(ctx context.Context, sess *session.Session, domain string, password *string) (string, error) {
	if err := requireSession(sess); err != nil {
		return "", err
	}
	domain, err := normalizeDomain(domain)
	if err != nil {
		return "", err
	}

	owner := sess.Username()
	entry, err := s.store.GetEntry(ctx, owner, domain)
	if err != nil {
		return "", fmt.Errorf("load entry: %w", err)
	}

	plain, err := resolvePassword(password)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := seal(sess, plain)
	if err != nil {
		return "", err
	}

	entry.Ciphertext = ciphertext
	entry.Nonce = nonce
	entry.UpdatedAt = s.timestamp()
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("update entry: %w", err)
	}

	s.audit(ctx, owner, "Updated password for domain: "+domain)
	return plain, nil
}

// DeleteEntry removes an existing credential.
func (s *Service) DeleteEntry(ctx context.Context, sess *session.Session, domain string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	domain, err := normalizeDomain(domain)
	if err != nil {
		return err
	}

	owner := sess.Username()
	if err := s.store.DeleteEntry(ctx, owner, domain); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.audit(ctx, owner, "Deleted password for domain: "+domain)
	return nil
}
