// Package linktree builds and queries depth-bounded trees of crawled pages.
//
// A Builder starts from a seed URL, fetches and parses each page through
// injected collaborators, classifies its text and attaches one LinkNode
// per page to a Tree. Every URL is claimed in a per-build seen set before
// it is fetched, so each page is requested at most once and the first
// page to discover a link becomes its parent. The resulting structure is
// always a rooted tree whose depth never exceeds the requested bound.
//
// Failures are split in two classes. Fetch and parse failures abandon
// only the affected branch; the rest of the crawl continues. A
// classification failure or a broken tree invariant aborts the build.
//
// With one worker (the default) traversal is a sequential depth-first
// walk and fully deterministic. More workers fetch siblings concurrently;
// see WithWorkers.
package linktree
