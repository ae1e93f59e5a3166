package vault

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/activitylog"
)

// DemoAccount is a username/password pair created on an empty directory.
type DemoAccount struct {
	Username string
	Password string
}

// DemoAccounts are seeded by SeedDemoAccounts.
var DemoAccounts = []DemoAccount{
	{Username: "admin", Password: "Admin@2024"},
	{Username: "testuser", Password: "Test@2024"},
	{Username: "demo", Password: "Demo@2024"},
}

// SeedDemoAccounts creates DemoAccounts when the user directory is empty and
// reports whether it did.
func (s *Service) SeedDemoAccounts(ctx context.Context) (bool, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	for _, a := range DemoAccounts {
		if err := s.CreateUser(ctx, a.Username, []byte(a.Password)); err != nil {
			return false, fmt.Errorf("seed %s: %w", a.Username, err)
		}
	}

	s.audit(ctx, activitylog.SystemActor, "Initialized users database with test accounts")
	return true, nil
}
