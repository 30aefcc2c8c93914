package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/torbot/internal/linktree"
)

// sampleTree builds:
//
//	http://example.com/ (Home | Root)
//	├── http://example.com/a (Forum)
//	│   └── http://example.com/a/deep
//	└── http://example.com/b (404)
func sampleTree(t *testing.T) *linktree.Tree {
	t.Helper()

	tree := linktree.NewTree("http://example.com/", 2)
	attach := func(parent string, rec linktree.NodeRecord) {
		t.Helper()
		n, err := linktree.NewNodeFromRecord(rec)
		if err != nil {
			t.Fatalf("NewNodeFromRecord(%s) error = %v", rec.Identifier, err)
		}
		if err := tree.Attach(parent, n); err != nil {
			t.Fatalf("Attach(%s) error = %v", rec.Identifier, err)
		}
	}

	attach("", linktree.NodeRecord{
		Identifier: "http://example.com/", Title: "Home | Root", Status: 200,
		Classification: "Forums", Accuracy: 0.75,
		Emails: []string{"admin@example.com"}, Numbers: []string{"+14155552671"},
	})
	attach("http://example.com/", linktree.NodeRecord{
		Identifier: "http://example.com/a", Title: "Forum", Status: 301,
		Classification: "Forums", Accuracy: 0.5,
	})
	attach("http://example.com/a", linktree.NodeRecord{
		Identifier: "http://example.com/a/deep", Status: 200, Classification: "Unknown",
	})
	attach("http://example.com/", linktree.NodeRecord{
		Identifier: "http://example.com/b", Title: "Missing", Status: 404, Classification: "Unknown",
	})
	return tree
}

func TestPalette(t *testing.T) {
	t.Parallel()

	t.Run("status text", func(t *testing.T) {
		t.Parallel()

		tests := map[int]string{
			200: "200 OK",
			301: "301 Moved Permanently",
			404: "404 Not Found",
			599: "599",
		}
		for code, want := range tests {
			if got := StatusText(code); got != want {
				t.Errorf("StatusText(%d) = %q, want %q", code, got, want)
			}
		}
	})

	t.Run("no color palette leaves text unchanged", func(t *testing.T) {
		t.Parallel()

		p := NoColorPalette()
		if got := p.Status(200); got != "200 OK" {
			t.Errorf("Status(200) = %q", got)
		}
	})

	t.Run("default palette uses bucket colors", func(t *testing.T) {
		t.Parallel()

		p := DefaultPalette()
		tests := []struct {
			code   int
			colors func() string
		}{
			{code: 204, colors: func() string { return p.Success.Sprint(StatusText(204)) }},
			{code: 302, colors: func() string { return p.Redirect.Sprint(StatusText(302)) }},
			{code: 500, colors: func() string { return p.Failure.Sprint(StatusText(500)) }},
			{code: 0, colors: func() string { return p.Failure.Sprint(StatusText(0)) }},
		}
		for _, tt := range tests {
			if got := p.Status(tt.code); got != tt.colors() {
				t.Errorf("Status(%d) = %q, want %q", tt.code, got, tt.colors())
			}
		}
	})
}

func TestTableWriter(t *testing.T) {
	t.Parallel()

	t.Run("rows in pre-order", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTableWriter(&buf, NoColorPalette()).Write(sampleTree(t)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()

		for _, want := range []string{"Title", "URL", "Status", "Phone Numbers", "Emails", "Category",
			"Home | Root", "301 Moved Permanently", "404 Not Found", "admin@example.com", "+14155552671"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}

		order := []string{"http://example.com/ ", "http://example.com/a ", "http://example.com/a/deep", "http://example.com/b"}
		last := -1
		for _, id := range order {
			i := strings.Index(out, id)
			if i <= last {
				t.Fatalf("%s out of pre-order in:\n%s", id, out)
			}
			last = i
		}
		if strings.Contains(out, "\x1b[") {
			t.Error("no color palette produced escape codes")
		}
		if strings.Contains(out, "TITLE") || strings.Contains(out, "PHONE NUMBERS") {
			t.Errorf("headers should keep their case:\n%s", out)
		}
	})

	t.Run("stats footer", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTableWriter(&buf, NoColorPalette(), WithStats(true)).Write(sampleTree(t)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "Total") {
			t.Errorf("expected footer in:\n%s", buf.String())
		}
	})

	t.Run("nil tree", func(t *testing.T) {
		t.Parallel()

		if _, err := NewTableWriter(&bytes.Buffer{}, NoColorPalette()).Write(nil); !errors.Is(err, ErrNoTree) {
			t.Errorf("Write(nil) error = %v, want ErrNoTree", err)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("nested document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleTree(t)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.HasPrefix(buf.String(), "{\n  \"linktree\": {") {
			t.Errorf("unexpected prefix:\n%s", buf.String())
		}

		var doc map[string]any
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		root, ok := doc["linktree"].(map[string]any)
		if !ok {
			t.Fatalf("missing linktree object: %v", doc)
		}
		if doc["max_depth"] != float64(2) {
			t.Errorf("max_depth = %v, want 2", doc["max_depth"])
		}
		for _, key := range []string{"identifier", "title", "status", "classification", "accuracy", "numbers", "emails", "children"} {
			if _, ok := root[key]; !ok {
				t.Errorf("root missing key %q", key)
			}
		}
		children, _ := root["children"].([]any)
		if len(children) != 2 {
			t.Fatalf("len(children) = %d, want 2", len(children))
		}
		first, _ := children[0].(map[string]any)
		if first["identifier"] != "http://example.com/a" {
			t.Errorf("first child = %v", first["identifier"])
		}
		deep, _ := first["children"].([]any)
		if len(deep) != 1 {
			t.Errorf("len(grandchildren) = %d, want 1", len(deep))
		}
		leaf, _ := deep[0].(map[string]any)
		if emails, _ := leaf["emails"].([]any); emails == nil {
			t.Error("empty emails should encode as []")
		}
	})

	t.Run("empty tree", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithCompact()).Write(linktree.NewTree("http://down.example/", 1)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if got := buf.String(); got != "{\"linktree\":null,\"max_depth\":1}\n" {
			t.Errorf("Write() = %q", got)
		}
	})
}

func TestReadJSON(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		want := sampleTree(t)
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(want); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := ReadJSON(&buf)
		if err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if got.Size() != want.Size() || got.MaxDepth() != 2 {
			t.Fatalf("Size() = %d, MaxDepth() = %d", got.Size(), got.MaxDepth())
		}

		wantNodes, gotNodes := want.Nodes(), got.Nodes()
		for i := range wantNodes {
			w, g := wantNodes[i].Record(), gotNodes[i].Record()
			if w.Identifier != g.Identifier || w.Title != g.Title || w.Status != g.Status ||
				w.Classification != g.Classification || w.Accuracy != g.Accuracy ||
				len(w.Emails) != len(g.Emails) || len(w.Numbers) != len(g.Numbers) {
				t.Errorf("node %d = %+v, want %+v", i, g, w)
			}
			wp, _ := want.ParentOf(w.Identifier)
			gp, _ := got.ParentOf(g.Identifier)
			if wp != gp {
				t.Errorf("parent of %s = %q, want %q", g.Identifier, gp, wp)
			}
		}
	})

	t.Run("max depth beyond the reached height", func(t *testing.T) {
		t.Parallel()

		want := linktree.NewTree("http://example.com/", 3)
		n, err := linktree.NewNodeFromRecord(linktree.NodeRecord{Identifier: "http://example.com/", Title: "Home", Status: 200})
		if err != nil {
			t.Fatal(err)
		}
		if err := want.Attach("", n); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(want); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := ReadJSON(&buf)
		if err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if got.MaxDepth() != 3 {
			t.Errorf("MaxDepth() = %d, want 3", got.MaxDepth())
		}
		if FileName(got, "json") != "Home - Depth 3.json" {
			t.Errorf("FileName() = %q", FileName(got, "json"))
		}
	})

	t.Run("bare node", func(t *testing.T) {
		t.Parallel()

		tree, err := ReadJSON(strings.NewReader(`{"identifier":"http://example.com/","title":"x","status":200,"children":[]}`))
		if err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if tree.Size() != 1 || tree.MaxDepth() != 0 {
			t.Errorf("Size() = %d, MaxDepth() = %d", tree.Size(), tree.MaxDepth())
		}
	})

	invalid := map[string]string{
		"malformed":       `{"linktree": `,
		"null root":       `{"linktree": null}`,
		"invalid url":     `{"linktree": {"identifier": "ftp://example.com/"}}`,
		"duplicate child": `{"linktree": {"identifier": "http://a.example/", "children": [{"identifier": "http://a.example/"}]}}`,
	}
	for name, input := range invalid {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := ReadJSON(strings.NewReader(input)); !errors.Is(err, ErrInvalidExport) {
				t.Errorf("ReadJSON() error = %v, want ErrInvalidExport", err)
			}
		})
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(sampleTree(t)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"# TorBot Link Tree", "## Pages", "## Categories", "Home", "```mermaid", "404 Not Found"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("empty tree", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(linktree.NewTree("http://down.example/", 1)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No pages.") {
			t.Errorf("expected empty notice in:\n%s", buf.String())
		}
	})
}

func TestCategoryCounts(t *testing.T) {
	t.Parallel()

	got := CategoryCounts(sampleTree(t))
	want := []CategoryCount{{Category: "Forums", Pages: 2}, {Category: "Unknown", Pages: 2}}
	if len(got) != len(want) {
		t.Fatalf("CategoryCounts() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CategoryCounts()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tree := sampleTree(t)
	if got := FileName(tree, "json"); got != "Home | Root - Depth 2.json" {
		t.Errorf("FileName() = %q", got)
	}

	slashed := linktree.NewTree("http://example.com/", 1)
	n, err := linktree.NewNodeFromRecord(linktree.NodeRecord{Identifier: "http://example.com/", Title: "a/b\\c"})
	if err != nil {
		t.Fatal(err)
	}
	if err := slashed.Attach("", n); err != nil {
		t.Fatal(err)
	}
	if got := FileName(slashed, ".md"); got != "a_b_c - Depth 1.md" {
		t.Errorf("FileName() = %q", got)
	}

	empty := linktree.NewTree("http://down.example/", 3)
	if got := FileName(empty, "txt"); got != "down.example - Depth 3.txt" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestSaveFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	tree := sampleTree(t)

	for _, format := range []Format{FormatJSON, FormatMarkdown, FormatTable} {
		path, err := SaveFile(dir, tree, format, NoColorPalette())
		if err != nil {
			t.Fatalf("SaveFile(%s) error = %v", format, err)
		}
		if filepath.Base(path) != FileName(tree, string(format)) {
			t.Errorf("path = %s", path)
		}
		data, err := os.ReadFile(path) //nolint:gosec // test file
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(data, []byte("example.com")) {
			t.Errorf("%s file missing content", format)
		}
	}

	if _, err := SaveFile(dir, tree, Format("pdf"), NoColorPalette()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("SaveFile(pdf) error = %v, want ErrUnknownFormat", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{"json": FormatJSON, "Markdown": FormatMarkdown, "md": FormatMarkdown, "table": FormatTable}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(xml) error = %v", err)
	}
}
