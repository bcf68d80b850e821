package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"today-planner/internal/config"
	"today-planner/internal/logging"
	"today-planner/internal/repository"
)

var (
	Version = "dev"
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "todayplanner",
		Short:         "Today Planner - categorized tasks and a daily plan",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this .env file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type stores struct {
	db         *gorm.DB
	users      *repository.UserRepository
	categories *repository.CategoryRepository
	tasks      *repository.TaskRepository
	audit      *repository.AuditRepository
}

func loadConfig() (config.Config, logging.Logger, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logging.New(logging.Options{Level: cfg.LogLevel}), nil
}

func openStores(cfg config.Config, l logging.Logger) (*stores, error) {
	db, err := repository.NewDB(cfg.DatabaseURL, l)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return &stores{
		db:         db,
		users:      repository.NewUserRepository(db),
		categories: repository.NewCategoryRepository(db),
		tasks:      repository.NewTaskRepository(db),
		audit:      repository.NewAuditRepository(db),
	}, nil
}

func (s *stores) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
