package linktree

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one seed in BuildAll.
type BatchResult struct {
	// Seed is the URL as given by the caller.
	Seed string
	// Tree is the built tree. It may be partial or nil, see Builder.Build.
	Tree *Tree
	// Err is the error returned by Build.
	Err error
	// Elapsed is the wall time of the build.
	Elapsed time.Duration
}

// BuildAll builds one tree per seed with at most concurrency builds at
// once. factory is called once per seed so builds share no state unless
// the factory shares it deliberately, e.g. a rate limited fetcher.
//
// Failed builds do not stop the batch. Results are returned in seed order;
// callback, if non-nil, is called as each build finishes, possibly from
// several goroutines at once. The returned error is ctx.Err() when the
// batch was cancelled.
func BuildAll(
	ctx context.Context,
	factory func() *Builder,
	seeds []string,
	depth, concurrency int,
	callback func(BatchResult),
) ([]BatchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]BatchResult, len(seeds))
	var logger atomic.Pointer[slog.Logger]

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = BatchResult{Seed: seed, Err: err}
				return nil
			}

			builder := factory()
			logger.Store(builder.logger)
			start := time.Now()
			tree, err := builder.Build(gctx, seed, depth)
			res := BatchResult{Seed: seed, Tree: tree, Err: err, Elapsed: time.Since(start)}

			results[i] = res

			if err != nil {
				builder.logger.Warn("build failed", "seed", seed, "error", err)
			}
			if callback != nil {
				callback(res)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors
	if l := logger.Load(); l != nil {
		l.Debug("batch finished", "seeds", len(seeds))
	}
	return results, ctx.Err()
}
