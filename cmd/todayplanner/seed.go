package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"today-planner/internal/config"
	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/service"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default user and categories, and purge archived tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cfg, l)
			if err != nil {
				return err
			}
			defer st.close()

			user, err := runSeed(cmd.Context(), cfg, st, l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config, st *stores, l logging.Logger) (*model.User, error) {
	seed := service.NewSeedService(st.users, st.categories, st.tasks, l)
	user, err := seed.Run(ctx, service.SeedOptions{
		Email:          cfg.DefaultUserEmail,
		FixedID:        cfg.DefaultUserID,
		CategoriesFile: cfg.SeedCategoriesFile,
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return user, nil
}
