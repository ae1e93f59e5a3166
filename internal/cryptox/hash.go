package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt cost factor for master-password hashes.
const DefaultBcryptCost = 12

// HashPassword returns the bcrypt encoding of password. Each call embeds a new
// random salt, so equal passwords hash to different strings.
//
// Passwords longer than 72 bytes are rejected with common.ErrValidation.
// A cost outside bcrypt's range falls back to DefaultBcryptCost.
func HashPassword(password []byte, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	h, err := bcrypt.GenerateFromPassword(password, cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", common.ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// VerifyPassword reports whether password matches the bcrypt hash. The
// comparison is bcrypt's own constant-time check. Malformed hashes never
// verify.
func VerifyPassword(password []byte, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), password) == nil
}
