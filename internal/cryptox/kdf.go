// Package cryptox holds the cryptographic primitives of the vault:
// PBKDF2 key derivation, AES-256-GCM sealing of single secrets and bcrypt
// hashing of master passwords. The algorithms come from the standard library
// and golang.org/x/crypto; this package only fixes their parameters and maps
// their failures onto the common sentinel errors.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of a derived key in bytes (AES-256).
	KeySize = 32

	// SaltSize is the size of a per-user KDF salt in bytes.
	SaltSize = 32

	// DefaultKDFIterations is the PBKDF2-HMAC-SHA256 work factor used for new
	// accounts. Records store the count they were created with.
	DefaultKDFIterations = 480_000
)

// DeriveKey stretches password with salt into a KeySize-byte key using
// PBKDF2-HMAC-SHA256. The result is fully determined by its inputs; nothing is
// cached between calls. A non-positive iterations count falls back to
// DefaultKDFIterations.
func DeriveKey(password, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}
	return pbkdf2.Key(password, salt, iterations, KeySize, sha256.New)
}
