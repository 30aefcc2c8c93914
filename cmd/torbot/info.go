package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/fetch"
	"github.com/nao1215/torbot/internal/info"
	"github.com/nao1215/torbot/internal/parser"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Gather information about a single page",
		Long: `Info fetches one page and reports what it reveals: response headers,
meta tags and description, robots.txt rules, publicly served .git, .svn
and .htaccess files, e-mail addresses, S3 buckets and Bitcoin addresses.

Examples:
  torbot info exampleexampleexampleexampleexampleexampleexampleexampl.onion
  torbot info --json http://example.onion/shop`,
		Args: cobra.ExactArgs(1),
		RunE: runInfoCmd,
	}

	addTorFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Print the report as JSON")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header and robots.txt agent")

	return cmd
}

func runInfoCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := applyTorFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.NoSocks && cfg.UseExternalTor {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingTorModes)
	}
	target, err := normalizeTarget(args[0])
	if err != nil {
		return err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
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

	fetcher := fetch.NewHTTPFetcher(session.client.NewHTTPClient(),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	)
	gatherer := info.New(fetcher, parser.New(parser.WithResolveRelative(true)),
		info.WithUserAgent(cfg.UserAgent),
		info.WithLogger(logger),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Gathering information for %s...\n", target)
	rep, err := gatherer.Gather(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to gather information: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printInfo(cmd.OutOrStdout(), rep)
	return nil
}

// printInfo renders rep as a series of titled tables. Empty sections are
// skipped.
func printInfo(w io.Writer, rep *info.Report) {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault

	render := func(title string, header table.Row, rows []table.Row) {
		if len(rows) == 0 {
			return
		}
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(style)
		t.SetTitle(title)
		if header != nil {
			t.AppendHeader(header)
		}
		t.AppendRows(rows)
		t.Render()
		fmt.Fprintln(w)
	}

	summary := []table.Row{
		{"URL", rep.URL},
		{"Status", strconv.Itoa(rep.Status)},
	}
	for _, kv := range [][2]string{
		{"Title", rep.Title},
		{"Description", rep.Description},
		{"Server", rep.Server},
		{"Content-Type", rep.ContentType},
		{"SHA-256", rep.SHA256},
	} {
		if kv[1] != "" {
			summary = append(summary, table.Row{kv[0], kv[1]})
		}
	}
	render("Page", nil, summary)

	names := make([]string, 0, len(rep.Headers))
	for name := range rep.Headers {
		names = append(names, name)
	}
	slices.Sort(names)
	headers := make([]table.Row, 0, len(names))
	for _, name := range names {
		headers = append(headers, table.Row{name, strings.Join(rep.Headers[name], ", ")})
	}
	render("Response Headers", table.Row{"Header", "Value"}, headers)

	meta := make([]table.Row, 0, len(rep.Meta))
	for _, m := range rep.Meta {
		meta = append(meta, table.Row{m.Name, m.Content})
	}
	render("Meta Tags", table.Row{"Name", "Content"}, meta)

	if r := rep.Robots; r != nil {
		rows := []table.Row{{"robots.txt", r.URL, robotsStatus(r)}}
		for _, u := range r.Disallow {
			rows = append(rows, table.Row{"Disallow", u, ""})
		}
		for _, u := range r.Allow {
			rows = append(rows, table.Row{"Allow", u, ""})
		}
		for _, u := range r.Sitemaps {
			rows = append(rows, table.Row{"Sitemap", u, ""})
		}
		if r.Found && !r.PageAllowed {
			rows = append(rows, table.Row{"Page", rep.URL, "disallowed"})
		}
		render("Robots", table.Row{"Rule", "URL", "Status"}, rows)
	}

	exposures := make([]table.Row, 0, len(rep.Exposures))
	for _, e := range rep.Exposures {
		status := ""
		if e.Status != 0 {
			status = strconv.Itoa(e.Status)
		}
		exposures = append(exposures, table.Row{e.Path, status, string(e.State)})
	}
	render("Exposed Files", table.Row{"Path", "Status", "Result"}, exposures)

	render("E-mail Addresses", nil, singleColumn(rep.Emails))
	render("S3 Buckets", nil, singleColumn(rep.S3Buckets))
	render("Bitcoin Addresses", nil, singleColumn(rep.BitcoinAddresses))
}

func robotsStatus(r *info.Robots) string {
	switch {
	case r.Found:
		return "found"
	case r.Status != 0:
		return "missing (" + strconv.Itoa(r.Status) + ")"
	default:
		return "unreachable"
	}
}

func singleColumn(values []string) []table.Row {
	rows := make([]table.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, table.Row{v})
	}
	return rows
}
