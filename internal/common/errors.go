// Package common defines shared sentinel errors and small helpers used across
// SafeKeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Authentication errors (bad username/password at login or rotation).
	ErrAuthentication = errors.New("authentication failed")

	// AEAD tag verification failure: tampering, wrong key or wrong nonce.
	ErrIntegrity = errors.New("integrity check failed")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Input errors (empty domain, password below minimum length, ...).
	ErrValidation = errors.New("validation error")

	// Persistence read/write failures.
	ErrIO = errors.New("storage i/o error")

	// Session errors.
	ErrNoSession = errors.New("no active session")
)
