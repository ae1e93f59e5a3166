package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   data directory
//	-s string   storage backend: file, sqlite or postgres
//	-D string   database DSN for sqlite/postgres
//	-l string   log level
//	-seed       create demo accounts on an empty user directory
//	-t int      storage open timeout (in seconds)
//
// Only these flags are picked out of args via flagx.FilterArgs, so -c and
// anything unknown are left for other parsers.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("safekeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.Storage, "s", cfg.Storage, "storage backend: file, sqlite or postgres")
	fs.StringVar(&cfg.DatabaseDSN, "D", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.SeedDemoAccounts, "seed", cfg.SeedDemoAccounts, "create demo accounts on an empty user directory")
	openTimeout := fs.Int("t", int(cfg.OpenTimeout.Seconds()), "storage open timeout (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, fs)); err != nil {
		return err
	}

	cfg.OpenTimeout = time.Duration(*openTimeout) * time.Second
	return nil
}
