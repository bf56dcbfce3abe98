package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	authmodels "orgstructure/internal/auth/models"
	authservice "orgstructure/internal/auth/service"
	"orgstructure/pkg/email"
	"orgstructure/pkg/platform/validation"
)

// upsertSuperuser promotes an existing account with the same email and
// resets its password. $3 is the explicit name, $4 the one derived from
// the email; an existing name wins over the derived one.
const upsertSuperuser = `
INSERT INTO users (email, hashed_password, full_name, is_active, is_superuser)
VALUES ($1, $2, COALESCE($3::text, $4::text), TRUE, TRUE)
ON CONFLICT (email) DO UPDATE
SET hashed_password = EXCLUDED.hashed_password,
    full_name       = COALESCE($3::text, users.full_name, $4::text),
    is_active       = TRUE,
    is_superuser    = TRUE,
    updated_at      = now()
RETURNING id, (xmax = 0) AS inserted`

type superuserOptions struct {
	email    string
	password string
	fullName string
}

func newCreateSuperuserCmd(root *rootOptions) *cobra.Command {
	var opts superuserOptions
	cmd := &cobra.Command{
		Use:   "create-superuser --email <email> --password <password>",
		Short: "Create or promote an active superuser account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := authmodels.Register{
				Email:    email.Normalize(opts.email),
				Password: opts.password,
			}
			if name := strings.TrimSpace(opts.fullName); name != "" {
				in.FullName = &name
			}
			if err := validation.Struct(in); err != nil {
				return fmt.Errorf("invalid superuser: %w", err)
			}
			dsn, err := root.dsn()
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			id, inserted, err := createSuperuser(cmd.Context(), pool, in)
			if err != nil {
				return err
			}
			verb := "promoted"
			if inserted {
				verb = "created"
			}
			root.logger().InfoContext(cmd.Context(), "superuser "+verb, "user_id", id, "email", in.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "%s superuser %s (id %d)\n", verb, in.Email, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.password, "password", "", "account password (at least 8 characters)")
	cmd.Flags().StringVar(&opts.fullName, "full-name", "", "display name (derived from the email when empty)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createSuperuser(ctx context.Context, pool *pgxpool.Pool, in authmodels.Register) (int64, bool, error) {
	hash, err := authservice.HashPassword(in.Password, bcrypt.DefaultCost)
	if err != nil {
		return 0, false, err
	}
	var derived *string
	fullName := in.FullName
	if name := email.DisplayName(in.Email); name != "" {
		derived = &name
	}
	var (
		id       int64
		inserted bool
	)
	if err := pool.QueryRow(ctx, upsertSuperuser, in.Email, hash, fullName, derived).Scan(&id, &inserted); err != nil {
		return 0, false, fmt.Errorf("upsert superuser: %w", err)
	}
	return id, inserted, nil
}
