// Package database stores crawled link trees in SQLite.
//
// Each saved crawl gets a UUID and one row per node, so past crawls can
// be listed and rebuilt into a linktree.Tree without crawling again.
// modernc.org/sqlite is used so the binary stays CGO-free.
package database
