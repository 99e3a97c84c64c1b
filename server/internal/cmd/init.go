package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cinemax-app/subscribe/server/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file with a fresh JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")

			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			cfg, err := starterConfig()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if err := os.WriteFile(output, append(data, '\n'), 0600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", defaultConfigPath, "output config file path")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

func starterConfig() (*config.Config, error) {
	secret, err := config.GenerateRandomSecret()
	if err != nil {
		return nil, err
	}
	return &config.Config{
		Server:  config.ServerConfig{Addr: ":8080"},
		Auth:    config.AuthConfig{JWTSecret: secret, JWTExpiry: config.Duration{Duration: 24 * time.Hour}},
		Storage: config.StorageConfig{Driver: "sqlite", DSN: "subscribe.db"},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
	}, nil
}
