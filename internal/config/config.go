package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/dbx"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// SQLiteFileName is the database file used when Storage is "sqlite" and no
// DSN is given.
const SQLiteFileName = "vault.db"

// Config holds runtime settings for SafeKeeper.
//
// Fields:
//   - DataDir: directory holding the vault file(s) and the activity log.
//   - Storage: backend for users and entries: file, sqlite or postgres.
//   - DatabaseDSN: connection string for sqlite/postgres.
//   - LogLevel: diagnostic log level (debug, info, warn, error).
//   - SeedDemoAccounts: create the demo accounts on an empty user directory.
//   - OpenTimeout: bound on opening and migrating the storage backend.
type Config struct {
	DataDir          string
	Storage          string
	DatabaseDSN      string
	LogLevel         string
	SeedDemoAccounts bool
	OpenTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.Storage = StorageFile
	c.DatabaseDSN = ""
	c.LogLevel = "info"
	c.SeedDemoAccounts = false
	c.OpenTimeout = 10 * time.Second
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data dir is empty", common.ErrValidation)
	}
	switch c.Storage {
	case StorageFile, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: postgres storage needs a database DSN", common.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", common.ErrValidation, c.Storage)
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("%w: open timeout must be positive", common.ErrValidation)
	}
	return nil
}

// Dialect maps Storage to a SQL dialect. It fails for the file backend.
func (c *Config) Dialect() (dbx.Dialect, error) {
	return dbx.ParseDialect(c.Storage)
}

// DSN returns DatabaseDSN, defaulting to a file inside DataDir for sqlite.
func (c *Config) DSN() string {
	if c.DatabaseDSN == "" && c.Storage == StorageSQLite {
		return filepath.Join(c.DataDir, SQLiteFileName)
	}
	return c.DatabaseDSN
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if -c/-config is present in args) and command-line flags. Later
// sources take precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
