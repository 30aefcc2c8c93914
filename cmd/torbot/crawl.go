package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/classify"
	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/database"
	"github.com/nao1215/torbot/internal/fetch"
	"github.com/nao1215/torbot/internal/linktree"
	securelog "github.com/nao1215/torbot/internal/log"
	"github.com/nao1215/torbot/internal/parser"
	"github.com/nao1215/torbot/internal/tor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url> [url...]",
		Short: "Crawl websites and build link trees",
		Long: `Crawl fetches each root URL over Tor and follows the links it finds
down to --depth levels. Every page becomes a node with its title, HTTP
status, e-mail addresses, phone numbers and a content category.

URLs without a scheme are fetched over http. Several root URLs are crawled
concurrently, --batch at a time. Each finished tree is printed, saved to
the requested files and stored in the database for "torbot history".

Press Ctrl-C to stop; the pages crawled so far are still reported.

Examples:
  # Crawl a hidden service one level deep with the embedded Tor daemon
  torbot crawl http://example.onion

  # Two levels, four concurrent fetches, JSON output
  torbot crawl -d 2 -w 4 --json http://example.onion

  # Use a running Tor proxy and save Markdown and JSON files
  torbot crawl --external-tor --save md,json http://example.onion

  # Crawl directly without Tor (e.g. on Whonix)
  torbot crawl --no-socks https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addTorFlags(cmd)
	addOutputFlags(cmd)

	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth, "Link levels to follow below each root URL")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Concurrent fetches per crawl")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum pages per crawl (0 for unlimited)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Root URLs crawled concurrently")
	cmd.Flags().Float64("rate", config.DefaultRateLimit, "Requests per second shared by all crawls (0 for unlimited)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize, "Largest response body read, in bytes")
	cmd.Flags().Bool("same-host", false, "Only follow links on the root URL's host")
	cmd.Flags().Bool("respect-robots", false, "Skip links disallowed by robots.txt")
	cmd.Flags().Bool("resolve-relative", false, "Follow relative links")
	cmd.Flags().Bool("db", true, "Store crawls in the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Database directory")
	cmd.Flags().StringP("config", "c", "", "Path to configuration file (default: .torbot in current or home directory)")
	cmd.Flags().String("rules", "", "YAML file with classification rules")
	cmd.Flags().String("phone-region", "", "Region (e.g. US) for tel: numbers without a country code")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress messages")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	out, err := outputFlags(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, securelog.WithContactRedaction())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, out, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	var err error

	if err := applyTorFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if cfg.CrawlDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = cmd.Flags().GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.SameHost, err = cmd.Flags().GetBool("same-host"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = cmd.Flags().GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.ResolveRelative, err = cmd.Flags().GetBool("resolve-relative"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = cmd.Flags().GetBool("db"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.RulesFile, err = cmd.Flags().GetString("rules"); err != nil {
		return nil, err
	}
	if cfg.PhoneRegion, err = cmd.Flags().GetString("phone-region"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config must exist; otherwise a missing file means
	// no site settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}
	if cfg.RulesFile == "" {
		cfg.RulesFile = cfg.SiteConfigs.Rules
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = cfg.SiteConfigs.PhoneRegion
	}

	targets := make([]string, 0, len(args))
	for _, arg := range args {
		target, err := normalizeTarget(arg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	cfg.Targets = targets

	return cfg, nil
}

// normalizeTarget adds the http scheme to bare hosts and validates the
// result, including onion address checksums.
func normalizeTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target != "" && !strings.Contains(target, "://") {
		target = "http://" + target
	}
	if err := linktree.ValidateURL(target); err != nil {
		return "", fmt.Errorf("invalid target %q: %w", raw, err)
	}
	return target, nil
}

// runCrawl connects to Tor, crawls every target and reports each tree as
// it finishes. Interrupted crawls still report their partial trees.
func runCrawl(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, out outputOptions, logger *slog.Logger) error {
	status := stderr
	if cfg.Quiet {
		status = io.Discard
	}

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}

	var db *database.TreeDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	session, err := connectTor(ctx, status, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	fetcher := newFetcher(cfg, session.client, logger)
	builderOpts := []linktree.BuilderOption{
		linktree.WithWorkers(cfg.Workers),
		linktree.WithMaxPages(cfg.MaxPages),
		linktree.WithSameHost(cfg.SameHost),
		linktree.WithBuilderLogger(logger),
		linktree.WithLinkFilter(newSiteFilter(cfg)),
	}
	if cfg.RespectRobots {
		builderOpts = append(builderOpts, linktree.WithLinkFilter(fetch.NewRobotsFilter(fetcher, cfg.UserAgent, logger)))
	}
	builder := linktree.NewBuilder(
		fetcher,
		parser.New(
			parser.WithResolveRelative(cfg.ResolveRelative),
			parser.WithDefaultRegion(cfg.PhoneRegion),
		),
		classifier,
		builderOpts...,
	)
	factory := func() *linktree.Builder { return builder }

	// Reports and storage outlive a Ctrl-C.
	saveCtx := context.WithoutCancel(ctx)
	rep := &crawlReporter{stdout: stdout, status: status, out: out, db: db, ctx: saveCtx, logger: logger}

	total := 0
	for _, group := range groupByDepth(cfg) {
		fmt.Fprintf(status, "Crawling %d URL(s) at depth %d...\n", len(group.seeds), group.depth)
		if _, err := linktree.BuildAll(ctx, factory, group.seeds, group.depth, cfg.BatchSize, rep.report); err != nil {
			return fmt.Errorf("crawl interrupted: %w", err)
		}
		total += len(group.seeds)
	}

	if failed := rep.failures(); failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, total)
	}
	return nil
}

// newClassifier loads the rules file, or the built-in rules when none is set.
func newClassifier(cfg *config.Config, logger *slog.Logger) (*classify.KeywordClassifier, error) {
	rules := classify.DefaultRules()
	source := "built-in"
	if cfg.RulesFile != "" {
		var err error
		rules, err = classify.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		source = cfg.RulesFile
	}
	classifier := classify.NewKeywordClassifier(rules)
	logger.Debug("classifier loaded",
		"rules", source,
		"categories", classifier.RuleCount(),
		"keywords", classifier.KeywordCount(),
	)
	return classifier, nil
}

// newFetcher builds the HTTP fetcher. Sites with a cookie or headers get
// their own client; the defaults apply to every other host.
func newFetcher(cfg *config.Config, client *tor.Client, logger *slog.Logger) *fetch.HTTPFetcher {
	defaults := cfg.SiteConfigs.Defaults
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, fetch.WithRateLimit(cfg.RateLimit, max(1, cfg.Workers)))
	}
	for host := range cfg.SiteConfigs.Sites {
		site := cfg.SiteFor(host)
		if site.Cookie == "" && len(site.Headers) == 0 {
			continue
		}
		opts = append(opts, fetch.WithHostClient(host, client.HTTPClientWithConfig(site.Cookie, site.Headers)))
	}
	return fetch.NewHTTPFetcher(client.HTTPClientWithConfig(defaults.Cookie, defaults.Headers), opts...)
}

// newSiteFilter applies each site's ignore and follow patterns to links on
// that site, and the default patterns to links elsewhere.
func newSiteFilter(cfg *config.Config) linktree.LinkFilter {
	defaults := cfg.SiteConfigs.Defaults
	fallback := linktree.NewPatternFilter("", defaults.IgnorePatterns, defaults.FollowPatterns)

	perHost := make(map[string]*linktree.PatternFilter, len(cfg.SiteConfigs.Sites))
	for host := range cfg.SiteConfigs.Sites {
		site := cfg.SiteFor(host)
		perHost[strings.ToLower(host)] = linktree.NewPatternFilter(host, site.IgnorePatterns, site.FollowPatterns)
	}

	return linktree.LinkFilterFunc(func(ctx context.Context, link string) bool {
		if f, ok := perHost[strings.ToLower(linktree.Hostname(link))]; ok {
			return f.Allow(ctx, link)
		}
		return fallback.Allow(ctx, link)
	})
}

// seedGroup is a set of root URLs crawled to the same depth.
type seedGroup struct {
	depth int
	seeds []string
}

// groupByDepth splits the targets by their effective depth, keeping the
// order in which depths first appear.
func groupByDepth(cfg *config.Config) []seedGroup {
	var groups []seedGroup
	index := make(map[int]int)
	for _, target := range cfg.Targets {
		depth := cfg.DepthFor(linktree.Hostname(target))
		i, ok := index[depth]
		if !ok {
			i = len(groups)
			index[depth] = i
			groups = append(groups, seedGroup{depth: depth})
		}
		groups[i].seeds = append(groups[i].seeds, target)
	}
	return groups
}

// crawlReporter prints, saves and stores each finished tree. BuildAll may
// call report from several goroutines.
type crawlReporter struct {
	mu     sync.Mutex
	stdout io.Writer
	status io.Writer
	out    outputOptions
	db     *database.TreeDB
	ctx    context.Context //nolint:containedctx // detached context for storage after cancellation
	logger *slog.Logger
	failed int
}

func (r *crawlReporter) report(res linktree.BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
		r.failed++
		fmt.Fprintf(r.status, "Crawl of %s failed: %v\n", res.Seed, res.Err)
	}
	if res.Tree == nil || res.Tree.Size() == 0 {
		return
	}

	stats := res.Tree.Stats()
	fmt.Fprintf(r.status, "Crawled %s: %d page(s) in %s\n", res.Seed, stats.Visited, res.Elapsed.Round(time.Millisecond))

	if err := r.out.render(r.stdout, r.status, res.Tree); err != nil {
		r.logger.Error("failed to report link tree", "seed", res.Seed, "error", err)
	}

	if r.db == nil {
		return
	}
	id, err := r.db.SaveTree(r.ctx, res.Tree)
	if err != nil {
		r.logger.Error("failed to save link tree", "seed", res.Seed, "error", err)
		return
	}
	fmt.Fprintf(r.status, "Stored crawl %s\n", id)
}

func (r *crawlReporter) failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}
