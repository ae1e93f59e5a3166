// Package session holds the state of one authenticated vault session: the
// user it is bound to and the key derived from their master password.
//
// The key lives in a memguard LockedBuffer (mlocked, guard-paged, read-only)
// and is destroyed, which wipes it, on Destroy or Rekey. It is never
// persisted.
package session

import (
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/google/uuid"
)

// Session is an explicit session value passed to every vault operation.
// The zero value is not usable; create sessions with New.
type Session struct {
	mu        sync.RWMutex
	id        string
	username  string
	startedAt time.Time
	key       *memguard.LockedBuffer
}

// New starts a session for username. The key bytes are moved into locked
// memory and the caller's slice is wiped.
func New(username string, key []byte) *Session {
	return &Session{
		id:        uuid.NewString(),
		username:  username,
		startedAt: time.Now(),
		key:       memguard.NewBufferFromBytes(key),
	}
}

// ID identifies the session in diagnostic logs.
func (s *Session) ID() string {
	return s.id
}

// Username returns the user the session is bound to.
func (s *Session) Username() string {
	return s.username
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Active reports whether the session still holds a key.
func (s *Session) Active() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil && s.key.IsAlive()
}

// WithKey calls fn with the session key. fn must not retain the slice.
// A nil or destroyed session yields common.ErrNoSession without calling fn.
func (s *Session) WithKey(fn func(key []byte) error) error {
	if s == nil {
		return common.ErrNoSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil || !s.key.IsAlive() {
		return common.ErrNoSession
	}
	return fn(s.key.Bytes())
}

// Rekey replaces the session key after a master-password rotation. The old
// key is destroyed and newKey is wiped after being copied.
func (s *Session) Rekey(newKey []byte) error {
	if s == nil {
		return common.ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil || !s.key.IsAlive() {
		common.WipeByteArray(newKey)
		return common.ErrNoSession
	}
	s.key.Destroy()
	s.key = memguard.NewBufferFromBytes(newKey)
	return nil
}

// Destroy wipes the key. It is safe to call more than once.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}
}
