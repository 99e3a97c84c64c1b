package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cinemax-app/subscribe/client/internal/apiclient"
	"github.com/cinemax-app/subscribe/client/internal/config"
	"github.com/cinemax-app/subscribe/client/internal/session"
	"github.com/cinemax-app/subscribe/pkg/api"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans [config-file]",
		Short: "List available plans and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlans,
	}
	cmd.Flags().Bool("json", false, "print plans as JSON")
	return cmd
}

type staticToken string

func (t staticToken) Token() string { return string(t) }

func runPlans(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath(cmd, args, config.DefaultConfigPath()))
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	token := cfg.User.Token
	if token == "" {
		if token, err = session.LoadToken(cfg.User.CredentialsPath); err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := apiclient.New(cfg.API.URL, cfg.API.Timeout.Duration, staticToken(token), logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout.Duration)
	defer cancel()
	plans, err := client.ListPlans(ctx)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	return printPlans(cmd.OutOrStdout(), plans, asJSON)
}

func printPlans(w io.Writer, plans []api.Plan, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(api.SubscriptionsResponse{Subscriptions: plans})
	}
	if len(plans) == 0 {
		_, err := fmt.Fprintln(w, "No plans available")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tNAME\tPRICE\tBENEFITS")
	for _, p := range plans {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Type, p.Name, p.PriceLabel(), strings.Join(p.Benefits, ", "))
	}
	return tw.Flush()
}
