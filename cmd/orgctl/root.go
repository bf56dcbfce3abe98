package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"orgstructure/internal/platform/config"
	"orgstructure/internal/platform/logger"
)

type rootOptions struct {
	databaseURL string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "orgctl",
		Short:         "Operate the orgstructure database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newCreateSuperuserCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	return cmd
}

// dsn prefers the flag, then DATABASE_URL from the environment or .env.
func (o *rootOptions) dsn() (string, error) {
	if url := strings.TrimSpace(o.databaseURL); url != "" {
		return url, nil
	}
	db, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(db.URL) == "" {
		return "", errors.New("--database-url or DATABASE_URL is required")
	}
	return db.URL, nil
}

func (o *rootOptions) logger() *slog.Logger {
	return logger.NewWithWriter(os.Stderr, o.logLevel, "text")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
