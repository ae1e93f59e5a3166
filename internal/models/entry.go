package models

import "time"

// CredentialEntry is an encrypted secret stored for (Owner, Domain).
//
// (Ciphertext, Nonce) is the only decryptable unit; Username and Notes are
// plaintext metadata.
type CredentialEntry struct {
	Owner      string
	Domain     string
	Ciphertext []byte
	Nonce      []byte
	Username   *string
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a deep copy of the entry.
func (e *CredentialEntry) Clone() *CredentialEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Ciphertext = append([]byte(nil), e.Ciphertext...)
	c.Nonce = append([]byte(nil), e.Nonce...)
	c.Username = cloneString(e.Username)
	c.Notes = cloneString(e.Notes)
	return &c
}

// Credential is the decrypted view of a CredentialEntry.
type Credential struct {
	Domain    string
	Password  string
	Username  *string
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
