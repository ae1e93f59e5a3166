package main

import (
	"context"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/safekeeper/internal/app"
	"github.com/dmitrijs2005/safekeeper/internal/buildinfo"
	"github.com/dmitrijs2005/safekeeper/internal/cli"
	"github.com/dmitrijs2005/safekeeper/internal/config"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
)

func main() {
	// Wipe locked key buffers on Ctrl-C and on normal exit.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		memguard.SafeExit(1)
	}
}

func run() error {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger := logging.New(cfg.LogLevel, os.Stderr)

	v, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close(ctx)

	cli.NewApp(v.Manager, os.Stdin, os.Stdout, logger).Run(ctx)
	return nil
}
