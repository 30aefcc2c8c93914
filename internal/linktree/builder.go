package linktree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/torbot/internal/model"
)

// Fetcher retrieves a page. Errors are treated as branch failures.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*model.Response, error)
}

// Parser extracts title, links and contact data from a page body.
// Errors are treated as branch failures.
type Parser interface {
	Parse(pageURL string, body []byte) (*model.Page, error)
}

// Classifier assigns a category to page text. It must be deterministic.
// Errors abort the build.
type Classifier interface {
	Classify(text string) (model.Classification, error)
}

// Builder constructs link trees. A Builder holds no per-build state, so
// one Builder may run several builds concurrently.
type Builder struct {
	fetcher    Fetcher
	parser     Parser
	classifier Classifier

	// workers bounds concurrent page processing. <= 1 means sequential.
	workers int

	// maxPages caps the number of claimed URLs per build. 0 is unlimited.
	maxPages int

	// sameHost restricts each build to its root's host.
	sameHost bool

	filters []LinkFilter
	logger  *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkers sets how many pages may be fetched at once.
//
// With n <= 1 the build is a sequential depth-first walk: links are
// claimed one at a time in document order, so results are reproducible.
// With n > 1 all children of a page are claimed in document order before
// they are fetched concurrently. Each URL is still fetched at most once
// and children keep document order, but when two branches race for the
// same link the winning parent may differ from the sequential walk.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithMaxPages stops claiming new URLs once n have been claimed.
func WithMaxPages(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 0 {
			b.maxPages = n
		}
	}
}

// WithLinkFilter adds filters applied to every discovered link.
func WithLinkFilter(filters ...LinkFilter) BuilderOption {
	return func(b *Builder) {
		b.filters = append(b.filters, filters...)
	}
}

// WithSameHost keeps every build on the host of its own root URL, so
// one Builder can serve seeds on different hosts.
func WithSameHost(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.sameHost = enabled
	}
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder from its collaborators.
func NewBuilder(fetcher Fetcher, parser Parser, classifier Classifier, opts ...BuilderOption) *Builder {
	b := &Builder{
		fetcher:    fetcher,
		parser:     parser,
		classifier: classifier,
		workers:    1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build crawls from rootURL and returns the resulting tree. depth is the
// number of link levels followed below the root; 0 fetches only the root.
//
// The returned tree is always valid, even together with an error:
//   - ErrInvalidURL or ErrNegativeDepth: nothing was fetched, tree is nil
//   - ErrRootUnreachable: the root failed, the tree is empty
//   - *ClassificationError, ErrDuplicateIdentifier: build aborted, partial tree
//   - ctx.Err(): cancelled, partial tree
func (b *Builder) Build(ctx context.Context, rootURL string, depth int) (*Tree, error) {
	if depth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeDepth, depth)
	}
	rootID, err := Canonicalize(rootURL)
	if err != nil {
		return nil, err
	}

	r := &run{
		Builder: b,
		tree:    NewTree(rootID, depth),
		seen:    make(map[string]struct{}),
	}
	if b.sameHost {
		r.hostFilter = SameHostFilter(rootID)
	}
	if b.workers > 1 {
		r.sem = semaphore.NewWeighted(int64(b.workers))
	}

	b.logger.Info("building link tree", "root", rootID, "depth", depth, "workers", max(b.workers, 1))

	var buildErr error
	if r.claim(rootID) {
		buildErr = r.visit(ctx, rootID, "", -1, depth)
	}
	r.tree.setStats(r.stats())

	switch {
	case buildErr != nil:
		return r.tree, buildErr
	case r.tree.Size() == 0 && ctx.Err() == nil:
		return r.tree, fmt.Errorf("%w: %s: %w", ErrRootUnreachable, rootID, r.rootErr)
	case ctx.Err() != nil:
		b.logger.Warn("link tree build cancelled", "root", rootID, "nodes", r.tree.Size())
		return r.tree, ctx.Err()
	}

	stats := r.tree.Stats()
	b.logger.Info("link tree built",
		"root", rootID,
		"nodes", stats.Visited,
		"failed", stats.Failed,
		"duplicates", stats.Duplicates,
	)
	return r.tree, nil
}

// run holds the state of one Build call.
type run struct {
	*Builder
	tree       *Tree
	sem        *semaphore.Weighted
	hostFilter LinkFilter

	mu      sync.Mutex
	seen    map[string]struct{}
	rootErr error

	failed     atomic.Int64
	duplicates atomic.Int64
	invalid    atomic.Int64
	filtered   atomic.Int64
	skipped    atomic.Int64
}

// claim records id in the seen set. It returns false if id was already
// claimed or the page limit is reached.
func (r *run) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[id]; ok {
		r.duplicates.Add(1)
		return false
	}
	if r.maxPages > 0 && len(r.seen) >= r.maxPages {
		r.skipped.Add(1)
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

// visit processes a claimed page and descends into its links while
// remaining > 0. Only fatal errors are returned.
func (r *run) visit(ctx context.Context, id, parentID string, ordinal, remaining int) error {
	if ctx.Err() != nil {
		return nil
	}

	node, links, err := r.process(ctx, id)
	if err != nil {
		var clsErr *ClassificationError
		if errors.As(err, &clsErr) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		r.failed.Add(1)
		r.logger.Debug("branch abandoned", "url", id, "error", err)
		if parentID == "" {
			r.rootErr = err
		}
		return nil
	}

	if err := r.tree.attach(parentID, node, ordinal); err != nil {
		return err
	}
	if remaining <= 0 {
		return nil
	}

	children := r.candidates(ctx, links)
	if r.sem == nil {
		for i, child := range children {
			if ctx.Err() != nil {
				return nil
			}
			if !r.claim(child) {
				continue
			}
			if err := r.visit(ctx, child, id, i, remaining-1); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, child := range children {
		if !r.claim(child) {
			continue
		}
		g.Go(func() error {
			return r.visit(gctx, child, id, i, remaining-1)
		})
	}
	return g.Wait()
}

// process fetches, parses and classifies one page.
func (r *run) process(ctx context.Context, id string) (*LinkNode, []string, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, nil, err
		}
		defer r.sem.Release(1)
	}

	resp, err := r.fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	page := &model.Page{}
	if resp.IsHTML() {
		page, err = r.parser.Parse(id, resp.Body)
		if err != nil {
			return nil, nil, err
		}
		if page == nil {
			page = &model.Page{}
		}
	}

	cls, err := r.classifier.Classify(page.Text)
	if err != nil {
		return nil, nil, &ClassificationError{URL: id, Err: err}
	}

	node, err := NewNode(id, resp, page, cls)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("visited", "url", id, "status", node.Status(), "links", len(page.Links))
	return node, page.Links, nil
}

// candidates canonicalizes and filters discovered links, keeping
// document order. Claiming happens later, one link at a time.
func (r *run) candidates(ctx context.Context, links []string) []string {
	out := make([]string, 0, len(links))
	for _, link := range links {
		id, err := Canonicalize(link)
		if err != nil {
			r.invalid.Add(1)
			continue
		}
		if !r.allowed(ctx, id) {
			r.filtered.Add(1)
			continue
		}
		out = append(out, id)
	}
	return out
}

func (r *run) allowed(ctx context.Context, link string) bool {
	if r.hostFilter != nil && !r.hostFilter.Allow(ctx, link) {
		return false
	}
	for _, f := range r.filters {
		if !f.Allow(ctx, link) {
			return false
		}
	}
	return true
}

func (r *run) stats() Stats {
	return Stats{
		Failed:     int(r.failed.Load()),
		Duplicates: int(r.duplicates.Load()),
		Invalid:    int(r.invalid.Load()),
		Filtered:   int(r.filtered.Load()),
		Skipped:    int(r.skipped.Load()),
	}
}
