package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTorHost and DefaultTorPort make up the standard Tor SOCKS5
	// proxy address.
	DefaultTorHost = "127.0.0.1"
	DefaultTorPort = "9050"

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = DefaultTorHost + ":" + DefaultTorPort

	// DefaultTimeout is the per-request timeout. Tor circuits are slow.
	DefaultTimeout = 60 * time.Second

	// DefaultCrawlDepth fetches the root and the pages it links to.
	DefaultCrawlDepth = 1

	// DefaultWorkers of 1 keeps crawls sequential and child order stable.
	DefaultWorkers = 1

	// DefaultMaxPages caps the pages claimed per crawl.
	DefaultMaxPages = 100

	// DefaultBatchSize is the number of root URLs crawled at once.
	DefaultBatchSize = 2

	// DefaultRateLimit is the request rate per second. 0 disables limiting.
	DefaultRateLimit = 0.0

	// AppName is the application name used for XDG directory paths.
	AppName = "torbot"

	// DefaultUserAgent identifies TorBot in HTTP requests.
	DefaultUserAgent = "TorBot/4.0 (+https://github.com/nao1215/torbot)"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultOutputDir is where --save writes files.
	DefaultOutputDir = "."
)

// Config holds all configuration options for a crawl. It is populated
// from CLI flags and passed down explicitly.
type Config struct {
	// TorProxyAddress is the SOCKS5 proxy in "host:port" form.
	TorProxyAddress string

	// UseExternalTor uses the proxy at TorProxyAddress instead of starting
	// an embedded Tor daemon.
	UseExternalTor bool

	// NoSocks sends requests directly, for hosts that already route
	// through Tor such as a Whonix workstation.
	NoSocks bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// CrawlDepth is the number of link levels below each root.
	CrawlDepth int

	// Workers is the number of concurrent fetches per crawl.
	Workers int

	// MaxPages caps the URLs claimed per crawl. 0 means unlimited.
	MaxPages int

	// BatchSize is the number of root URLs crawled concurrently.
	BatchSize int

	// RateLimit is requests per second across a crawl. 0 disables it.
	RateLimit float64

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the largest response body read, in bytes.
	MaxBodySize int64

	// SameHost keeps crawls on the root URL's host.
	SameHost bool

	// RespectRobots skips links disallowed by robots.txt.
	RespectRobots bool

	// ResolveRelative follows relative links.
	ResolveRelative bool

	// SaveToDB stores each crawl in the database at DBDir.
	SaveToDB bool
	DBDir    string

	// RulesFile replaces the built-in classification rules.
	RulesFile string

	// PhoneRegion is the region for tel: numbers without a country code.
	// Empty accepts international numbers only.
	PhoneRegion string

	// ConfigFilePath is the explicit path given with --config.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file.
	SiteConfigs *File

	// Verbose enables debug logging.
	Verbose bool

	// Quiet suppresses progress messages.
	Quiet bool

	// Targets are the root URLs to crawl.
	Targets []string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		Timeout:           DefaultTimeout,
		CrawlDepth:        DefaultCrawlDepth,
		Workers:           DefaultWorkers,
		MaxPages:          DefaultMaxPages,
		BatchSize:         DefaultBatchSize,
		RateLimit:         DefaultRateLimit,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
		SiteConfigs:       &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the XDG data directory for TorBot.
// On Linux: ~/.local/share/torbot
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for TorBot.
// On Linux: ~/.config/torbot
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.NoSocks && c.UseExternalTor {
		return ErrConflictingTorModes
	}
	return nil
}

// SiteFor returns the merged site configuration for host.
func (c *Config) SiteFor(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// DepthFor returns the crawl depth for host, preferring a site override.
func (c *Config) DepthFor(host string) int {
	if d := c.SiteFor(host).Depth; d > 0 {
		return d
	}
	return c.CrawlDepth
}
