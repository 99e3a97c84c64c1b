package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cinemax-app/subscribe/client/internal/apiclient"
	"github.com/cinemax-app/subscribe/client/internal/config"
	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
	"github.com/cinemax-app/subscribe/client/internal/plain"
	"github.com/cinemax-app/subscribe/client/internal/session"
	"github.com/cinemax-app/subscribe/client/internal/tui/picker"
	"github.com/cinemax-app/subscribe/pkg/cli"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config-file]",
		Short: "Open the plan picker (default when no subcommand is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun,
	}
	cmd.Flags().Bool("plain", false, "use numbered prompts instead of the full-screen picker")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath := resolveConfigPath(cmd, args, config.DefaultConfigPath())

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	logger, closer, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer func() { _ = closer.Close() }()

	token := cfg.User.Token
	if token == "" {
		if token, err = session.LoadToken(cfg.User.CredentialsPath); err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	sess, err := session.New(cfg.User.ID, token, cfg.User.CredentialsPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	client := apiclient.New(cfg.API.URL, cfg.API.Timeout.Duration, sess, logger)
	deps := picker.Deps{
		Plans:     client,
		Cards:     client,
		Registrar: client,
		Activator: client,
		Codes:     onetimecode.NewGenerator(),
		Session:   sess,
		Code: picker.CodeOptions{
			Target: cfg.OneTimeCode.Target,
			Width:  cfg.OneTimeCode.Width,
			Margin: *cfg.OneTimeCode.Margin,
		},
		Timeout: cfg.API.Timeout.Duration,
		Logger:  logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("subscribe starting", "version", version, "config", configPath, "user_id", sess.UserID(), "plan", sess.Plan())

	forcePlain, _ := cmd.Flags().GetBool("plain")
	var res picker.Result
	if forcePlain || !picker.IsTTY() {
		res, err = plain.New(cli.DefaultPrompter(), deps).Run(ctx)
	} else {
		res, err = picker.Run(ctx, deps)
	}
	if err != nil {
		logger.Error("picker error", "error", err)
		return err
	}

	logger.Info("picker closed", "activated", res.Activated, "plan", res.PlanType)
	if res.Activated {
		fmt.Fprintf(os.Stdout, "Subscription active: %s\n", res.PlanType)
	}
	return nil
}
