package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"orgstructure/internal/storage/postgres"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := postgres.MigrateUp(cmd.Context(), db.SQL())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := postgres.MigrateDown(cmd.Context(), db.SQL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back 1 migration")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			states, err := postgres.MigrationStatus(cmd.Context(), db.SQL())
			if err != nil {
				return err
			}
			return writeMigrationStatus(cmd.OutOrStdout(), states)
		},
	})
	return cmd
}

func openDB(cmd *cobra.Command, opts *rootOptions) (*postgres.DB, error) {
	dsn, err := opts.dsn()
	if err != nil {
		return nil, err
	}
	return postgres.Open(cmd.Context(), dsn, postgres.WithLogger(opts.logger()))
}

func writeMigrationStatus(w io.Writer, states []postgres.MigrationState) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
	for _, st := range states {
		state, at := "pending", "-"
		if st.Applied {
			state = "applied"
			at = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%05d\t%s\t%s\t%s\n", st.Version, state, at, st.Path)
	}
	return tw.Flush()
}
