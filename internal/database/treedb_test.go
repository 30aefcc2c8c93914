package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/torbot/internal/linktree"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *TreeDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestTree(t *testing.T, root string) *linktree.Tree {
	t.Helper()

	tree := linktree.NewTree(root, 2)
	add := func(parent string, rec linktree.NodeRecord) {
		t.Helper()
		n, err := linktree.NewNodeFromRecord(rec)
		if err != nil {
			t.Fatalf("NewNodeFromRecord() error = %v", err)
		}
		if err := tree.Attach(parent, n); err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
	}

	add("", linktree.NodeRecord{
		Identifier: root, Title: "Root", Status: 200, Classification: "Forums", Accuracy: 0.8,
		Emails: []string{"a@example.com"}, Numbers: []string{"+14155552671", "+442071838750"},
	})
	add(root, linktree.NodeRecord{Identifier: root + "z", Title: "Zed", Status: 404})
	add(root, linktree.NodeRecord{Identifier: root + "a", Title: "Ay", Status: 200, Classification: "News", Accuracy: 0.3})
	add(root+"a", linktree.NodeRecord{Identifier: root + "a/1", Status: 500})
	return tree
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		id, err := db.SaveTree(context.Background(), newTestTree(t, "http://example.com/"))
		if err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer db.Close()
		if _, err := db.GetCrawl(context.Background(), id); err != nil {
			t.Errorf("GetCrawl() after reopen error = %v", err)
		}
	})
}

func TestSaveAndLoadTree(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	want := newTestTree(t, "http://example.com/")

	id, err := db.SaveTree(ctx, want)
	if err != nil {
		t.Fatalf("SaveTree() error = %v", err)
	}
	if id == "" {
		t.Fatal("SaveTree() returned empty id")
	}

	got, err := db.LoadTree(ctx, id)
	if err != nil {
		t.Fatalf("LoadTree() error = %v", err)
	}
	if got.RootURL() != want.RootURL() || got.MaxDepth() != want.MaxDepth() || got.Size() != want.Size() {
		t.Fatalf("loaded root=%s depth=%d size=%d", got.RootURL(), got.MaxDepth(), got.Size())
	}

	wantNodes, gotNodes := want.Nodes(), got.Nodes()
	for i := range wantNodes {
		w, g := wantNodes[i].Record(), gotNodes[i].Record()
		if w.Identifier != g.Identifier || w.Title != g.Title || w.Status != g.Status ||
			w.Classification != g.Classification || w.Accuracy != g.Accuracy {
			t.Errorf("node %d = %+v, want %+v", i, g, w)
		}
		if len(w.Numbers) != len(g.Numbers) || len(w.Emails) != len(g.Emails) {
			t.Errorf("node %d contacts = %v %v, want %v %v", i, g.Numbers, g.Emails, w.Numbers, w.Emails)
		}
		wp, _ := want.ParentOf(w.Identifier)
		gp, _ := got.ParentOf(g.Identifier)
		if wp != gp {
			t.Errorf("parent of %s = %q, want %q", w.Identifier, gp, wp)
		}
	}
}

func TestSaveTreeEmpty(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.SaveTree(context.Background(), linktree.NewTree("http://example.com/", 1)); !errors.Is(err, ErrEmptyTree) {
		t.Errorf("SaveTree() error = %v, want ErrEmptyTree", err)
	}
	if _, err := db.SaveTree(context.Background(), nil); !errors.Is(err, ErrEmptyTree) {
		t.Errorf("SaveTree(nil) error = %v, want ErrEmptyTree", err)
	}
}

func TestListCrawls(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	var ids []string
	for _, root := range []string{"http://one.example/", "http://two.example/", "http://three.example/"} {
		id, err := db.SaveTree(ctx, newTestTree(t, root))
		if err != nil {
			t.Fatalf("SaveTree(%s) error = %v", root, err)
		}
		ids = append(ids, id)
	}

	all, err := db.ListCrawls(ctx, 0)
	if err != nil {
		t.Fatalf("ListCrawls() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListCrawls()) = %d, want 3", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("ListCrawls() not newest first: %v", []string{all[0].ID, all[1].ID, all[2].ID})
	}

	first := all[0]
	if first.RootURL != "http://three.example/" || first.RootTitle != "Root" ||
		first.Depth != 2 || first.Nodes != 4 || first.Stats.Visited != 4 {
		t.Errorf("summary = %+v", first)
	}
	if time.Since(first.CreatedAt) > time.Hour || first.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v", first.CreatedAt)
	}

	limited, err := db.ListCrawls(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("len(ListCrawls(2)) = %d, want 2", len(limited))
	}
}

func TestDeleteCrawl(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.SaveTree(ctx, newTestTree(t, "http://example.com/"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteCrawl(ctx, id); err != nil {
		t.Fatalf("DeleteCrawl() error = %v", err)
	}
	if _, err := db.LoadTree(ctx, id); !errors.Is(err, ErrCrawlNotFound) {
		t.Errorf("LoadTree() after delete error = %v, want ErrCrawlNotFound", err)
	}
	if err := db.DeleteCrawl(ctx, id); !errors.Is(err, ErrCrawlNotFound) {
		t.Errorf("second DeleteCrawl() error = %v, want ErrCrawlNotFound", err)
	}

	var n int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes WHERE crawl_id = ?", id).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d node rows left after delete", n)
	}
}

func TestLoadTreeUnknown(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.LoadTree(context.Background(), "no-such-crawl"); !errors.Is(err, ErrCrawlNotFound) {
		t.Errorf("LoadTree() error = %v, want ErrCrawlNotFound", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2024-05-01 10:20:30", want: time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{in: "2024-05-01T10:20:30Z", want: time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{in: "garbage", want: time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
