// Package activitylog keeps the append-only audit trail of vault activity.
//
// Each entry is one line of the form
//
//	[YYYY-MM-DD HH:MM:SS] <actor>: <message>
//
// Lines are only ever appended; the log is not tamper-evident.
package activitylog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/filex"
)

const (
	// FileName is the log file name inside the data directory.
	FileName = "activity.log"

	// TimeLayout formats entry timestamps.
	TimeLayout = "2006-01-02 15:04:05"

	// DefaultRecentLimit is used by Recent for a non-positive limit.
	DefaultRecentLimit = 50

	// SystemActor attributes entries that no user caused.
	SystemActor = "SYSTEM"
)

type appendFile interface {
	WriteString(s string) (int, error)
	Close() error
}

// openAppend is a test seam for opening the log in append mode.
var openAppend = func(path string) (appendFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Log appends entries to a text file.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	last time.Time
}

// Option customizes a Log.
type Option func(*Log)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// Open returns a Log writing to FileName inside dir. The file is created on
// the first Append.
func Open(dir string, opts ...Option) (*Log, error) {
	if _, err := filex.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	l := &Log{path: filepath.Join(dir, FileName), now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Format renders one entry line without the trailing newline.
func Format(at time.Time, actor, message string) string {
	return fmt.Sprintf("[%s] %s: %s", at.Format(TimeLayout), oneLine(actor), oneLine(message))
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// Append writes one entry. Timestamps never go backwards, even if the clock
// does.
func (l *Log) Append(actor, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now()
	if at.Before(l.last) {
		at = l.last
	}
	l.last = at

	f, err := openAppend(l.path)
	if err != nil {
		return fmt.Errorf("%w: open activity log: %w", common.ErrIO, err)
	}

	if _, err := f.WriteString(Format(at, actor, message) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write activity log: %w", common.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close activity log: %w", common.ErrIO, err)
	}
	return nil
}

// Recent returns up to limit of the most recent entries, oldest first.
func (l *Log) Recent(limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: open activity log: %w", common.ErrIO, err)
	}
	defer f.Close()

	ring := make([]string, 0, limit)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read activity log: %w", common.ErrIO, err)
	}
	return ring, nil
}
