package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/safekeeper/internal/activitylog"
	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
)

func intArg(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: expected a positive number, got %q", common.ErrValidation, args[0])
	}
	return n, nil
}

// Generate prints a random password using every character class. The length
// defaults to passgen.DefaultLength and is raised to passgen.MinLength.
func (a *App) Generate(ctx context.Context, args []string) error {
	length, err := intArg(args, passgen.DefaultLength)
	if err != nil {
		return err
	}
	p, err := a.vault.GeneratePassword(length, passgen.AllClasses)
	if err != nil {
		return err
	}
	a.println(p)
	return nil
}

// Logs prints the latest activity-log lines, oldest first.
func (a *App) Logs(ctx context.Context, args []string) error {
	limit, err := intArg(args, activitylog.DefaultRecentLimit)
	if err != nil {
		return err
	}
	lines, err := a.vault.RecentLogs(limit)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		a.println("No activity recorded.")
		return nil
	}
	for _, l := range lines {
		a.println(l)
	}
	return nil
}
