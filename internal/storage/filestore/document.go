package filestore

import (
	"sort"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/models"
)

const documentVersion = 1

// document is the on-disk layout of vault.json. Both key-value stores share
// one file so a single rename commits them together.
type document struct {
	Version     int                                `json:"version"`
	Users       map[string]*userRecord             `json:"users"`
	Credentials map[string]map[string]*entryRecord `json:"credentials"`
}

type userRecord struct {
	PasswordHash  string     `json:"passwordHash"`
	KDFSalt       []byte     `json:"kdfSalt"`
	KDFIterations int        `json:"kdfIterations,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin"`
}

type entryRecord struct {
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	Username   *string   `json:"username"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newDocument() *document {
	return &document{
		Version:     documentVersion,
		Users:       map[string]*userRecord{},
		Credentials: map[string]map[string]*entryRecord{},
	}
}

func userFromModel(r *models.AuthRecord) *userRecord {
	c := r.Clone()
	return &userRecord{
		PasswordHash:  c.PasswordHash,
		KDFSalt:       c.KDFSalt,
		KDFIterations: c.KDFIterations,
		CreatedAt:     c.CreatedAt,
		LastLogin:     c.LastLogin,
	}
}

func (u *userRecord) toModel(username string) *models.AuthRecord {
	r := &models.AuthRecord{
		Username:      username,
		PasswordHash:  u.PasswordHash,
		KDFSalt:       u.KDFSalt,
		KDFIterations: u.KDFIterations,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
	}
	return r.Clone()
}

func entryFromModel(e *models.CredentialEntry) *entryRecord {
	c := e.Clone()
	return &entryRecord{
		Ciphertext: c.Ciphertext,
		Nonce:      c.Nonce,
		Username:   c.Username,
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (r *entryRecord) toModel(owner, domain string) *models.CredentialEntry {
	e := &models.CredentialEntry{
		Owner:      owner,
		Domain:     domain,
		Ciphertext: r.Ciphertext,
		Nonce:      r.Nonce,
		Username:   r.Username,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	return e.Clone()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
