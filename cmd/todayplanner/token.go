package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"today-planner/internal/auth"
)

func tokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			if email == "" {
				email = cfg.DefaultUserEmail
			}

			st, err := openStores(cfg, l)
			if err != nil {
				return err
			}
			defer st.close()

			user, err := st.users.FindByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("find user %s: %w", email, err)
			}
			token, err := auth.NewSigner(cfg.JWTSecret).Sign(user.ID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "user email (defaults to DEFAULT_USER_EMAIL)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
