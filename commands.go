package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bematende/bematende-backend/config"
	"github.com/bematende/bematende-backend/internal/management/services"
	"github.com/bematende/bematende-backend/pkg/storage/mariadb"
	"github.com/bematende/bematende-backend/pkg/storage/schema"
	"github.com/bematende/bematende-backend/pkg/storage/sqlite"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, websocket hub and display loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.LoadConfig()
			db, dialect, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := schema.Migrate(ctx, db, dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", dialect)
			return nil
		},
	}
}

func hashUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-users",
		Short: "Replace plain text passwords in a users JSON file with bcrypt hashes",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			changed, err := services.HashUsersFile(file)
			if err != nil {
				return err
			}
			if changed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no plain text passwords found, nothing to convert")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d users to passwordHash (bcrypt)\n", changed)
			return nil
		},
	}
	cmd.Flags().String("file", "user.json", "path to the users JSON file")
	return cmd
}

// openDB membuka database SQL untuk user, unit dan (kecuali driver rest) pasien.
// Driver rest tetap memakai SQLite lokal untuk akun petugas.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, schema.Dialect, error) {
	switch cfg.DBDriver {
	case "mysql", "mariadb":
		db, err := mariadb.Connect(ctx, cfg)
		return db, schema.MySQL, err
	case "sqlite", "rest", "":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		return db, schema.SQLite, err
	default:
		return nil, "", fmt.Errorf("unknown DB_DRIVER %q (want mysql, sqlite or rest)", cfg.DBDriver)
	}
}
