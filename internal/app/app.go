// Package app assembles a vault from configuration: storage backend, activity
// log, service and session manager.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/activitylog"
	"github.com/dmitrijs2005/safekeeper/internal/config"
	"github.com/dmitrijs2005/safekeeper/internal/filex"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
	"github.com/dmitrijs2005/safekeeper/internal/storage"
	"github.com/dmitrijs2005/safekeeper/internal/storage/filestore"
	"github.com/dmitrijs2005/safekeeper/internal/storage/sqlstore"
	"github.com/dmitrijs2005/safekeeper/internal/vault"
)

// Vault is an assembled vault ready for a presentation layer.
type Vault struct {
	Store    storage.Store
	Activity *activitylog.Log
	Manager  *vault.Manager
}

// OpenStore opens the backend selected by cfg.Storage. Opening, including SQL
// migrations, is bounded by cfg.OpenTimeout.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.OpenTimeout)
	defer cancel()

	if cfg.Storage == config.StorageFile {
		return filestore.Open(cfg.DataDir)
	}

	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	if cfg.Storage == config.StorageSQLite {
		if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
			return nil, err
		}
	}
	return sqlstore.Open(ctx, dialect, cfg.DSN())
}

// Build opens storage and the activity log in cfg.DataDir and wires a
// Manager. Demo accounts are seeded when cfg.SeedDemoAccounts is set.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger, opts ...vault.Option) (*Vault, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage, err)
	}

	activity, err := activitylog.Open(cfg.DataDir)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	svc := vault.NewService(store, activity, append([]vault.Option{vault.WithLogger(log)}, opts...)...)

	if cfg.SeedDemoAccounts {
		seeded, err := svc.SeedDemoAccounts(ctx)
		if err != nil {
			return nil, errors.Join(err, store.Close())
		}
		if seeded {
			log.Info(ctx, "demo accounts created", "count", len(vault.DemoAccounts))
		}
	}

	log.Debug(ctx, "vault opened", "storage", cfg.Storage, "data_dir", cfg.DataDir, "activity_log", activity.Path())

	return &Vault{
		Store:    store,
		Activity: activity,
		Manager:  vault.NewManager(svc),
	}, nil
}

// Close logs out any session and closes the store.
func (v *Vault) Close(ctx context.Context) error {
	v.Manager.Logout(ctx)
	return v.Store.Close()
}
