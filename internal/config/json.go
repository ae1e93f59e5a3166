package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/safekeeper/internal/flagx"
	"github.com/dmitrijs2005/safekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from a zero value so that only keys present in the
// file override earlier settings. OpenTimeout relies on timex.Duration, so it
// may be a string like "10s" or integer nanoseconds.
type JsonConfig struct {
	DataDir          *string         `json:"data_dir"`
	Storage          *string         `json:"storage"`
	DatabaseDSN      *string         `json:"database_dsn"`
	LogLevel         *string         `json:"log_level"`
	SeedDemoAccounts *bool           `json:"seed_demo_accounts"`
	OpenTimeout      *timex.Duration `json:"open_timeout"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config in args. Without either flag it does nothing.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.Storage != nil {
		cfg.Storage = *jc.Storage
	}
	if jc.DatabaseDSN != nil {
		cfg.DatabaseDSN = *jc.DatabaseDSN
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.SeedDemoAccounts != nil {
		cfg.SeedDemoAccounts = *jc.SeedDemoAccounts
	}
	if jc.OpenTimeout != nil {
		cfg.OpenTimeout = jc.OpenTimeout.Duration
	}
	return nil
}
