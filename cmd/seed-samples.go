package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/verdefield/agrocheck/internal/auth"
	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/store"
)

var seedKeyName string

// seedSamplesCmd provisions a single demo API key so a fresh deployment can
// immediately exercise POST /check. Grounded on
// Togather-Foundation-server/cmd/gentoken/main.go: a small, standalone
// credential-printing command, adapted from a JWT to an API-key/bcrypt pair.
var seedSamplesCmd = &cobra.Command{
	Use:   "seed-samples",
	Short: "Provision a demo API key for local and trial deployments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		rawKey, err := generateRawKey()
		if err != nil {
			return eris.Wrap(err, "seed-samples: generate key")
		}
		prefix := rawKey[:auth.PrefixLength]
		hash, err := auth.HashKey(rawKey)
		if err != nil {
			return eris.Wrap(err, "seed-samples: hash key")
		}
		id := ulid.Make().String()

		if cfg.Store.Driver == "sqlite" {
			s, err := store.NewSQLite(cfg.Store.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "seed-samples: open sqlite store")
			}
			defer s.Close()
			if err := s.Migrate(ctx); err != nil {
				return eris.Wrap(err, "seed-samples: migrate sqlite store")
			}
			if err := s.CreateAPIKey(ctx, id, prefix, hash, auth.HashVersionBcrypt, seedKeyName, []string{auth.PermissionRead}, cfg.Auth.DefaultRateLimitPerMinute); err != nil {
				return eris.Wrap(err, "seed-samples: insert key")
			}
		} else {
			pool, err := db.Open(ctx, cfg.Store.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "seed-samples: open database")
			}
			defer pool.Close()

			_, err = pool.Exec(ctx,
				`INSERT INTO api_keys (id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, true)`,
				id, prefix, hash, auth.HashVersionBcrypt, seedKeyName, auth.PermissionRead, cfg.Auth.DefaultRateLimitPerMinute,
			)
			if err != nil {
				return eris.Wrap(err, "seed-samples: insert key")
			}
		}

		fmt.Println("Demo API key provisioned. This is shown once; store it securely:")
		fmt.Println(rawKey)
		fmt.Println("\nTest with:")
		fmt.Printf("curl -H 'X-API-Key: %s' -H 'Content-Type: application/json' -d '{\"input\":{\"type\":\"CNPJ\",\"value\":\"12345678000199\"}}' http://localhost:%d/check\n", rawKey, cfg.Server.Port)
		return nil
	},
}

func generateRawKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func init() {
	seedSamplesCmd.Flags().StringVar(&seedKeyName, "name", "demo", "label for the provisioned key")
	rootCmd.AddCommand(seedSamplesCmd)
}
