package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/tor"
)

// addTorFlags registers the flags that select how requests reach Tor.
func addTorFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("external-tor", false, "Use a running Tor SOCKS5 proxy instead of the embedded daemon")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address for --external-tor (default from TORBOT_HOST/TORBOT_PORT or 127.0.0.1:9050)")
	cmd.Flags().Bool("no-socks", false, "Send requests directly without a SOCKS5 proxy")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor daemon startup")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Request timeout")
	cmd.Flags().String("env-file", config.DefaultEnvFile, "Dotenv file providing TORBOT_HOST and TORBOT_PORT")
}

// applyTorFlags copies the Tor flags into cfg. A --proxy value implies
// --external-tor.
func applyTorFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	cfg.UseExternalTor, err = cmd.Flags().GetBool("external-tor")
	if err != nil {
		return err
	}
	cfg.NoSocks, err = cmd.Flags().GetBool("no-socks")
	if err != nil {
		return err
	}
	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return err
	}
	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	proxyAddr, err := cmd.Flags().GetString("proxy")
	if err != nil {
		return err
	}
	if proxyAddr != "" {
		cfg.UseExternalTor = true
		cfg.TorProxyAddress = proxyAddr
		return nil
	}

	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}
	cfg.TorProxyAddress, err = config.ProxyAddressFromEnv(envFile)
	if err != nil {
		return fmt.Errorf("failed to load proxy settings: %w", err)
	}
	return nil
}

// torSession is an open route to Tor. embedded is nil unless TorBot
// started its own daemon.
type torSession struct {
	client   *tor.Client
	embedded *tor.EmbeddedTor
	logger   *slog.Logger
}

// Close stops the embedded daemon, if any.
func (s *torSession) Close() {
	if s.embedded == nil {
		return
	}
	s.logger.Info("stopping embedded Tor daemon")
	if err := s.embedded.Stop(); err != nil {
		s.logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// connectTor returns a Tor session for cfg: a direct client with
// --no-socks, the external proxy with --external-tor, or an embedded
// daemon otherwise. Progress messages go to w.
func connectTor(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) (*torSession, error) {
	session, err := openTorSession(ctx, w, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("HTTP client ready",
		"proxy", session.client.ProxyAddress(),
		"timeout", session.client.Timeout(),
	)
	return session, nil
}

func openTorSession(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) (*torSession, error) {
	switch {
	case cfg.NoSocks:
		logger.Info("sending requests without a SOCKS5 proxy")
		return &torSession{client: tor.NewDirectClient(cfg.Timeout), logger: logger}, nil

	case cfg.UseExternalTor:
		client, err := tor.NewClient(cfg.TorProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.TorProxyAddress)
		}
		logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)
		return &torSession{client: client, logger: logger}, nil

	default:
		return startEmbeddedTor(ctx, w, cfg, logger)
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) (*torSession, error) {
	fmt.Fprintln(w, "Starting embedded Tor daemon...")
	fmt.Fprintf(w, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithEmbeddedLogger(logger),
	)
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"controlAddr", embeddedTor.ControlAddr(),
	)
	fmt.Fprintf(w, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient(cfg.Timeout)
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		_ = embeddedTor.Stop() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}

	return &torSession{client: client, embedded: embeddedTor, logger: logger}, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
