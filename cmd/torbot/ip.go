package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/tor"
)

// NewIPCmd creates the ip command.
func NewIPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ip",
		Short: "Show the Tor exit address",
		Long: `IP asks check.torproject.org whether requests arrive over Tor and
prints the exit address it sees.

Examples:
  torbot ip
  torbot ip --external-tor`,
		Args: cobra.NoArgs,
		RunE: runIPCmd,
	}

	addTorFlags(cmd)
	cmd.Flags().String("check-url", tor.CheckURL, "Tor check page")
	_ = cmd.Flags().MarkHidden("check-url") //nolint:errcheck // flag is defined above

	return cmd
}

func runIPCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if err := applyTorFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.NoSocks && cfg.UseExternalTor {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingTorModes)
	}
	checkURL, err := cmd.Flags().GetString("check-url")
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := connectTor(ctx, cmd.ErrOrStderr(), cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := tor.CheckIP(ctx, session.client.NewHTTPClient(), checkURL)
	if err != nil {
		return fmt.Errorf("failed to check exit address: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
