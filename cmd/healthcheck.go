package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// healthcheckCmd is a small Docker-HEALTHCHECK-friendly command: GET
// /health on the configured port and exit 0/1, so the container runtime
// doesn't need curl installed in the image.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Exit 0 if the local server's /health returns 200 (ok or degraded), 1 otherwise",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := http.Client{Timeout: 5 * time.Second}

		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
		if err != nil {
			return fmt.Errorf("healthcheck: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("healthcheck: server returned %s", resp.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
