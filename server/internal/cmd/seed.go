package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cinemax-app/subscribe/server/internal/config"
	"github.com/cinemax-app/subscribe/server/internal/server"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [config-file]",
		Short: "Install the default plans and create a demo user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userName, _ := cmd.Flags().GetString("user")

			cfg, err := config.Load(resolveConfigPath(cmd, args, defaultConfigPath))
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			srv, err := server.New(cfg, newLogger(cfg.Logging, io.Discard))
			if err != nil {
				return fmt.Errorf("initialize server: %w", err)
			}
			defer func() { _ = srv.Close() }()

			res, err := srv.Seed(cmd.Context(), userName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d plans.\n", res.Plans)
			if res.Token != "" {
				fmt.Fprintf(out, "User:  %s\n", res.UserID)
				fmt.Fprintf(out, "Token: %s\n", res.Token)
			}
			return nil
		},
	}
	cmd.Flags().String("user", "Demo", "name of the demo user to create (empty to skip)")
	return cmd
}
