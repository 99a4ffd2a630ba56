package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/audit"
	"github.com/verdefield/agrocheck/internal/auth"
	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the cache/audit/auth tables this service owns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		if cfg.Store.Driver == "sqlite" {
			s, err := store.NewSQLite(cfg.Store.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "migrate: open sqlite store")
			}
			defer s.Close()
			if err := s.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate: sqlite")
			}
			zap.L().Info("migrated sqlite store", zap.String("path", cfg.Store.DatabaseURL))
			return nil
		}

		pool, err := db.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "migrate: open database")
		}
		defer pool.Close()

		if err := audit.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate: audit_rows")
		}
		if err := auth.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate: api_keys")
		}

		zap.L().Info("migrated postgres store", zap.String("url", cfg.Store.DatabaseURL))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
