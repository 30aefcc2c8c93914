package info

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/torbot/internal/model"
)

// ErrInvalidURL is returned by Gather for a URL without scheme and host.
var ErrInvalidURL = errors.New("invalid URL")

// Fetcher performs GET requests. *fetch.HTTPFetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*model.Response, error)
}

// Parser extracts page signals. *parser.Parser satisfies it.
type Parser interface {
	Parse(pageURL string, body []byte) (*model.Page, error)
}

// ExposureState is the outcome of checking one sensitive path.
type ExposureState string

const (
	// StateExposed means the file was served.
	StateExposed ExposureState = "exposed"
	// StateForbidden means the server knows the file but refused it.
	StateForbidden ExposureState = "forbidden"
	// StateAbsent means the file was not found.
	StateAbsent ExposureState = "absent"
	// StateUnreachable means the request failed.
	StateUnreachable ExposureState = "unreachable"
)

// Exposure is the result of requesting a sensitive path at the site root.
type Exposure struct {
	Path   string        `json:"path"`
	Status int           `json:"status,omitempty"`
	State  ExposureState `json:"state"`
}

// Robots summarizes the site's robots.txt.
type Robots struct {
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
	// Found is true when robots.txt was served with a 2xx status.
	Found bool `json:"found"`
	// Allow and Disallow are the rule paths resolved against the site
	// root. Wildcard rules are kept as written.
	Allow    []string `json:"allow,omitempty"`
	Disallow []string `json:"disallow,omitempty"`
	Sitemaps []string `json:"sitemaps,omitempty"`
	// PageAllowed reports whether the gathered page may be crawled by
	// the configured user agent.
	PageAllowed bool `json:"page_allowed"`
}

// MetaTag is one <meta> element with a name, property or http-equiv.
type MetaTag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Report is everything Gather learned about one page.
type Report struct {
	URL         string      `json:"url"`
	Status      int         `json:"status"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Server      string      `json:"server,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	SHA256      string      `json:"sha256,omitempty"`
	Headers     http.Header `json:"headers,omitempty"`
	Meta        []MetaTag   `json:"meta,omitempty"`

	Robots    *Robots    `json:"robots,omitempty"`
	Exposures []Exposure `json:"exposures"`

	Emails           []string `json:"emails,omitempty"`
	BitcoinAddresses []string `json:"bitcoin_addresses,omitempty"`
	S3Buckets        []string `json:"s3_buckets,omitempty"`
}

// Exposed returns the paths found to be publicly served.
func (r *Report) Exposed() []string {
	var paths []string
	for _, e := range r.Exposures {
		if e.State == StateExposed {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// sensitivePath is a file that should never be served. A served file
// must contain signature, or without one must not be HTML, so soft 404
// pages are not reported.
type sensitivePath struct {
	path      string
	signature string
}

var sensitivePaths = []sensitivePath{
	{path: "/.git/config", signature: "[core]"},
	{path: "/.git/HEAD", signature: "ref:"},
	{path: "/.svn/entries"},
	{path: "/.htaccess"},
}

var (
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`)
	bucketPattern = regexp.MustCompile(`(?i)[a-z0-9.-]+\.s3(?:[.-][a-z0-9-]+)*\.amazonaws\.com`)
)

// Gatherer collects page reports.
type Gatherer struct {
	fetcher   Fetcher
	parser    Parser
	userAgent string
	logger    *slog.Logger
}

// Option configures a Gatherer.
type Option func(*Gatherer)

// WithUserAgent sets the agent matched against robots.txt groups.
func WithUserAgent(ua string) Option {
	return func(g *Gatherer) {
		g.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gatherer) {
		g.logger = logger
	}
}

// New creates a Gatherer.
func New(fetcher Fetcher, parser Parser, opts ...Option) *Gatherer {
	g := &Gatherer{
		fetcher:   fetcher,
		parser:    parser,
		userAgent: "*",
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Gather fetches pageURL and runs every check against it and its site.
// A failure to fetch the page itself is returned as an error; failures
// of the side requests are recorded in the report.
func (g *Gatherer) Gather(ctx context.Context, pageURL string) (*Report, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}
	origin := u.Scheme + "://" + u.Host

	resp, err := g.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		URL:         pageURL,
		Status:      resp.StatusCode,
		Server:      resp.GetHeader("Server"),
		ContentType: resp.ContentType,
		SHA256:      resp.Hash,
		Headers:     resp.Headers,
		Exposures:   make([]Exposure, len(sensitivePaths)),
	}

	if resp.IsHTML() {
		if page, err := g.parser.Parse(pageURL, resp.Body); err != nil {
			g.logger.Debug("page not parsed", "url", pageURL, "error", err)
		} else {
			rep.Title = page.Title
			rep.Description = page.Description
			rep.Emails = page.Emails
		}
		rep.Meta = metaTags(resp.Body)
	}
	rep.Emails = mergeDistinct(rep.Emails, emailPattern.FindAllString(string(resp.Body), -1))
	rep.S3Buckets = mergeDistinct(nil, lower(bucketPattern.FindAllString(string(resp.Body), -1)))
	rep.BitcoinAddresses = FindBitcoinAddresses(string(resp.Body))

	g.logger.Info("gathering site checks", "origin", origin)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rep.Robots = g.robots(ectx, origin, u.RequestURI())
		return nil
	})
	for i, sp := range sensitivePaths {
		eg.Go(func() error {
			rep.Exposures[i] = g.exposure(ectx, origin, sp)
			return nil
		})
	}
	_ = eg.Wait() //nolint:errcheck // checks record their own failures

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

func (g *Gatherer) robots(ctx context.Context, origin, requestURI string) *Robots {
	r := &Robots{URL: origin + "/robots.txt", PageAllowed: true}
	resp, err := g.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		g.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return r
	}
	r.Status = resp.StatusCode
	r.Found = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !r.Found {
		return r
	}

	r.Allow, r.Disallow = robotsRules(origin, resp.Body)
	if data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body); err == nil {
		r.Sitemaps = data.Sitemaps
		r.PageAllowed = data.TestAgent(requestURI, g.userAgent)
	} else {
		g.logger.Debug("robots.txt unparsable", "origin", origin, "error", err)
	}
	return r
}

// robotsRules lists the Allow and Disallow paths of every group.
func robotsRules(origin string, body []byte) (allow, disallow []string) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !strings.HasPrefix(value, "/") {
			value = "/" + value
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "allow":
			allow = append(allow, origin+value)
		case "disallow":
			disallow = append(disallow, origin+value)
		}
	}
	return allow, disallow
}

func (g *Gatherer) exposure(ctx context.Context, origin string, sp sensitivePath) Exposure {
	e := Exposure{Path: sp.path}
	resp, err := g.fetcher.Fetch(ctx, origin+sp.path)
	if err != nil {
		g.logger.Debug("exposure check failed", "path", sp.path, "error", err)
		e.State = StateUnreachable
		return e
	}
	e.Status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusForbidden:
		e.State = StateForbidden
	case resp.StatusCode == http.StatusOK && len(resp.Body) > 0 && sp.matches(resp):
		e.State = StateExposed
		g.logger.Warn("sensitive file served", "url", origin+sp.path)
	default:
		e.State = StateAbsent
	}
	return e
}

func (sp sensitivePath) matches(resp *model.Response) bool {
	if sp.signature == "" {
		return !resp.IsHTML()
	}
	return bytes.Contains(resp.Body, []byte(sp.signature))
}

func metaTags(body []byte) []MetaTag {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var tags []MetaTag
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			name = s.AttrOr("property", "")
		}
		if name == "" {
			name = s.AttrOr("http-equiv", "")
		}
		if name == "" {
			return
		}
		tags = append(tags, MetaTag{Name: name, Content: strings.TrimSpace(s.AttrOr("content", ""))})
	})
	return tags
}

// mergeDistinct appends the values of extra missing from base.
func mergeDistinct(base, extra []string) []string {
	for _, v := range extra {
		if !slices.Contains(base, v) {
			base = append(base, v)
		}
	}
	return base
}

func lower(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
