// Package config loads runtime configuration for SafeKeeper.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   data directory (default "data")
//	-s string   storage backend: file, sqlite or postgres (default "file")
//	-D string   database DSN; sqlite defaults to <data dir>/vault.db
//	-l string   log level (default "info")
//	-seed       create demo accounts on an empty user directory
//	-t int      storage open timeout in seconds (default 10)
//
// # JSON schema
//
// Every key is optional; missing keys keep the default:
//
//	{
//	  "data_dir": "/var/lib/safekeeper",
//	  "storage": "postgres",
//	  "database_dsn": "postgres://vault@localhost/vault",
//	  "log_level": "debug",
//	  "seed_demo_accounts": false,
//	  "open_timeout": "5s"
//	}
//
// Environment variables are not read.
package config
