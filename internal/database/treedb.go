package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/torbot/internal/linktree"
)

// FileName is the database file created inside the data directory.
const FileName = "torbot.db"

var (
	// ErrCrawlNotFound is returned when no crawl has the requested ID.
	ErrCrawlNotFound = errors.New("database: crawl not found")

	// ErrEmptyTree is returned when saving a tree without a root.
	ErrEmptyTree = errors.New("database: tree has no nodes")
)

// TreeDB stores link trees in a SQLite file.
type TreeDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures TreeDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database in dbDir.
func Open(dbDir string, opts Options) (*TreeDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	tdb := &TreeDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := tdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return tdb, nil
}

// Path returns the database file path.
func (tdb *TreeDB) Path() string {
	return tdb.dbPath
}

// Close closes the database connection.
func (tdb *TreeDB) Close() error {
	return tdb.db.Close()
}

func (tdb *TreeDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		root_url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		root_title TEXT,
		node_count INTEGER NOT NULL,
		stats TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_root ON crawls(root_url);

	-- position is the node's index in depth-first pre-order.
	CREATE TABLE IF NOT EXISTS nodes (
		crawl_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		parent TEXT NOT NULL,
		position INTEGER NOT NULL,
		depth INTEGER NOT NULL,
		title TEXT,
		status INTEGER,
		classification TEXT,
		accuracy REAL,
		numbers TEXT,
		emails TEXT,
		PRIMARY KEY (crawl_id, identifier)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_position ON nodes(crawl_id, position);
	`
	_, err := tdb.db.ExecContext(ctx, schema)
	return err
}

// CrawlSummary describes one saved crawl without its nodes.
type CrawlSummary struct {
	ID        string
	RootURL   string
	RootTitle string
	Depth     int
	Nodes     int
	Stats     linktree.Stats
	CreatedAt time.Time
}

type savedNode struct {
	node  *linktree.LinkNode
	depth int
}

// SaveTree stores tree and returns the new crawl ID. The crawl row and
// all node rows are written in one transaction.
func (tdb *TreeDB) SaveTree(ctx context.Context, tree *linktree.Tree) (string, error) {
	if tree == nil || tree.Size() == 0 {
		return "", ErrEmptyTree
	}

	var nodes []savedNode
	tree.Walk(func(n *linktree.LinkNode, depth int) bool {
		nodes = append(nodes, savedNode{node: n, depth: depth})
		return true
	})

	statsJSON, err := json.Marshal(tree.Stats())
	if err != nil {
		return "", fmt.Errorf("failed to serialize stats: %w", err)
	}

	id := uuid.NewString()
	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawls (id, root_url, depth, root_title, node_count, stats)
	VALUES (?, ?, ?, ?, ?, ?)
	`, id, tree.RootURL(), tree.MaxDepth(), nodes[0].node.Title(), len(nodes), string(statsJSON))
	if err != nil {
		return "", fmt.Errorf("failed to insert crawl: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO nodes (crawl_id, identifier, parent, position, depth, title, status, classification, accuracy, numbers, emails)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer stmt.Close()

	for i, sn := range nodes {
		rec := sn.node.Record()
		parent, err := tree.ParentOf(rec.Identifier)
		if err != nil {
			return "", err
		}
		numbers, err := encodeList(rec.Numbers)
		if err != nil {
			return "", err
		}
		emails, err := encodeList(rec.Emails)
		if err != nil {
			return "", err
		}
		if _, err := stmt.ExecContext(ctx, id, rec.Identifier, parent, i, sn.depth,
			rec.Title, rec.Status, rec.Classification, rec.Accuracy, numbers, emails); err != nil {
			return "", fmt.Errorf("failed to insert node %s: %w", rec.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit crawl: %w", err)
	}
	return id, nil
}

// ListCrawls returns saved crawls, newest first. A limit of zero or less
// returns all of them.
func (tdb *TreeDB) ListCrawls(ctx context.Context, limit int) ([]CrawlSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := tdb.db.QueryContext(ctx, `
	SELECT id, root_url, root_title, depth, node_count, stats, created_at
	FROM crawls
	ORDER BY created_at DESC, seq DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	var results []CrawlSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *s)
	}
	return results, rows.Err()
}

// GetCrawl returns the summary of one crawl.
func (tdb *TreeDB) GetCrawl(ctx context.Context, crawlID string) (*CrawlSummary, error) {
	row := tdb.db.QueryRowContext(ctx, `
	SELECT id, root_url, root_title, depth, node_count, stats, created_at
	FROM crawls
	WHERE id = ?
	`, crawlID)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCrawlNotFound, crawlID)
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*CrawlSummary, error) {
	var s CrawlSummary
	var title, stats sql.NullString
	var created string
	if err := row.Scan(&s.ID, &s.RootURL, &title, &s.Depth, &s.Nodes, &stats, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan crawl: %w", err)
	}
	s.RootTitle = title.String
	s.CreatedAt = parseTimestamp(created)
	if stats.Valid && stats.String != "" {
		if err := json.Unmarshal([]byte(stats.String), &s.Stats); err != nil {
			return nil, fmt.Errorf("failed to parse stats: %w", err)
		}
	}
	return &s, nil
}

// LoadTree rebuilds the tree saved under crawlID.
func (tdb *TreeDB) LoadTree(ctx context.Context, crawlID string) (*linktree.Tree, error) {
	summary, err := tdb.GetCrawl(ctx, crawlID)
	if err != nil {
		return nil, err
	}

	rows, err := tdb.db.QueryContext(ctx, `
	SELECT identifier, parent, title, status, classification, accuracy, numbers, emails
	FROM nodes
	WHERE crawl_id = ?
	ORDER BY position
	`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	tree := linktree.NewTree(summary.RootURL, summary.Depth)
	for rows.Next() {
		var rec linktree.NodeRecord
		var parent string
		var title, classification, numbers, emails sql.NullString
		if err := rows.Scan(&rec.Identifier, &parent, &title, &rec.Status,
			&classification, &rec.Accuracy, &numbers, &emails); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		rec.Title = title.String
		rec.Classification = classification.String
		if rec.Numbers, err = decodeList(numbers); err != nil {
			return nil, err
		}
		if rec.Emails, err = decodeList(emails); err != nil {
			return nil, err
		}

		node, err := linktree.NewNodeFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("crawl %s: %w", crawlID, err)
		}
		if err := tree.Attach(parent, node); err != nil {
			return nil, fmt.Errorf("crawl %s: %w", crawlID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tree, nil
}

// DeleteCrawl removes a crawl and its nodes.
func (tdb *TreeDB) DeleteCrawl(ctx context.Context, crawlID string) error {
	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM crawls WHERE id = ?", crawlID)
	if err != nil {
		return fmt.Errorf("failed to delete crawl: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCrawlNotFound, crawlID)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE crawl_id = ?", crawlID); err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}
	return tx.Commit()
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to serialize list: %w", err)
	}
	return string(data), nil
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s.String), &values); err != nil {
		return nil, fmt.Errorf("failed to parse list: %w", err)
	}
	return values, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
