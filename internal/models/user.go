// Package models defines the records persisted by the vault storage backends
// and the plaintext views handed to callers.
package models

import "time"

// AuthRecord is the user-directory row for one account.
//
// KDFSalt and KDFIterations are only ever replaced together with
// PasswordHash, during master-password rotation.
type AuthRecord struct {
	Username      string
	PasswordHash  string
	KDFSalt       []byte
	KDFIterations int
	CreatedAt     time.Time
	LastLogin     *time.Time
}

// Clone returns a deep copy so callers can mutate it without touching storage.
func (r *AuthRecord) Clone() *AuthRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.KDFSalt = append([]byte(nil), r.KDFSalt...)
	if r.LastLogin != nil {
		t := *r.LastLogin
		c.LastLogin = &t
	}
	return &c
}
