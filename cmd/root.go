package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "agrocheck",
	Short: "Brazilian agricultural supply-chain compliance verification service",
	Long:  "Checks a CPF/CNPJ/CAR/address/coordinate input against labor, environmental, and legal compliance sources and returns a scored verdict.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if v, _ := cmd.Flags().GetInt("port"); v != 0 {
			cfg.Server.Port = v
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().Int("port", 0, "override server.port")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
