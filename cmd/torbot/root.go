package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for TorBot.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "torbot",
		Short: "Link tree crawler for Tor hidden services",
		Long: `TorBot crawls websites over Tor, starting from one or more root URLs.

Every visited page becomes a node of a link tree with its title, HTTP
status, e-mail addresses, phone numbers and a content category. Trees are
printed as a table, JSON or Markdown and stored for later viewing.

By default TorBot starts an embedded Tor daemon. Use --external-tor to use
a running Tor proxy (TORBOT_HOST/TORBOT_PORT or --proxy), or --no-socks
when the host already routes through Tor.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewIPCmd())
	cmd.AddCommand(NewInfoCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
