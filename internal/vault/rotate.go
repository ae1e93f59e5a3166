package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/cryptox"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/session"
)

// ChangeMasterPassword rotates the session user's master password.
//
// The old password is verified, then every entry is decrypted under the
// current key. If any of that fails nothing is written. Otherwise a new salt,
// hash and key are produced, every entry is re-encrypted with a fresh nonce,
// and the record plus the full entry set are committed through Store.Rotate
// in one step. The session key is replaced only after the commit succeeds.
// If the session ended while the commit ran, the rotation stays committed and
// the returned error wraps common.ErrNoSession.
func (s *Service) ChangeMasterPassword(ctx context.Context, sess *session.Session, oldPassword, newPassword []byte) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := validateMasterPassword(newPassword); err != nil {
		return err
	}

	owner := sess.Username()
	rec, err := s.store.GetUser(ctx, owner)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !cryptox.VerifyPassword(oldPassword, rec.PasswordHash) {
		s.audit(ctx, owner, "Failed password change - incorrect old password")
		return common.ErrAuthentication
	}

	entries, err := s.store.ListEntries(ctx, owner)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	plaintexts := make([][]byte, 0, len(entries))
	defer func() {
		for _, p := range plaintexts {
			common.WipeByteArray(p)
		}
	}()
	for _, e := range entries {
		p, err := unseal(sess, e)
		if err != nil {
			if errors.Is(err, common.ErrIntegrity) {
				s.audit(ctx, owner, fmt.Sprintf("Failed password change - entry %s could not be decrypted", e.Domain))
				s.log.Warn(ctx, "rotation aborted", "user", owner, "domain", e.Domain)
				return fmt.Errorf("entry %s: %w", e.Domain, err)
			}
			return err
		}
		plaintexts = append(plaintexts, p)
	}

	hash, err := cryptox.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	salt, err := common.GenerateRandByteArray(cryptox.SaltSize)
	if err != nil {
		return err
	}
	newKey := cryptox.DeriveKey(newPassword, salt, s.kdfIter)

	now := s.timestamp()
	rotated := make([]*models.CredentialEntry, 0, len(entries))
	for i, e := range entries {
		ciphertext, nonce, err := cryptox.Encrypt(plaintexts[i], newKey)
		if err != nil {
			common.WipeByteArray(newKey)
			return err
		}
		next := e.Clone()
		next.Ciphertext = ciphertext
		next.Nonce = nonce
		next.UpdatedAt = now
		rotated = append(rotated, next)
	}

	newRec := rec.Clone()
	newRec.PasswordHash = hash
	newRec.KDFSalt = salt
	newRec.KDFIterations = s.kdfIter

	if err := s.store.Rotate(ctx, newRec, rotated); err != nil {
		common.WipeByteArray(newKey)
		return fmt.Errorf("commit rotation: %w", err)
	}

	// The store is rotated from here on; a Rekey failure only means the
	// session ended concurrently and its old key is already gone.
	if err := sess.Rekey(newKey); err != nil {
		s.audit(ctx, owner, "Master password changed successfully; session ended before rekey")
		s.log.Warn(ctx, "rotation committed but session could not be rekeyed", "user", owner, "error", err)
		return fmt.Errorf("rotation committed, session not rekeyed: %w", err)
	}

	s.audit(ctx, owner, "Master password changed successfully")
	s.log.Info(ctx, "master password rotated", "user", owner, "entries", len(rotated))
	return nil
}
