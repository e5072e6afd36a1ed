package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go-bookshelf/internal/app"
	"go-bookshelf/internal/config"
	"go-bookshelf/internal/database"
	"go-bookshelf/internal/logger"
	"go-bookshelf/internal/service"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookshelf",
		Short:         "Book tracking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(newServeCommand(), newUserCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(cmd.Context())
}

func newUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var username, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = strings.TrimSpace(username)
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			stores, err := app.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			credentials := service.NewCredentialStore(stores.Users, cfg.BcryptCost)
			user, err := credentials.CreateUser(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			total, err := credentials.CountUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("count users: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s), %d users total\n", user.Username, user.ID, total)
			return nil
		},
	}
	add.Flags().StringVar(&username, "username", "", "account username")
	add.Flags().StringVar(&password, "password", "", "account password")

	userCmd.AddCommand(add)
	return userCmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.StoreDriver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
			}

			db, err := database.New(cmd.Context(), database.Options{
				URL:      cfg.DatabaseURL,
				MaxConns: cfg.DBMaxConns,
				MinConns: cfg.DBMinConns,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			return db.EnsureSchema(cmd.Context())
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))
	return cfg, nil
}
