package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/torbot/internal/linktree"
)

// Format selects an output format for SaveFile.
type Format string

const (
	// FormatJSON writes the nested JSON export.
	FormatJSON Format = "json"
	// FormatMarkdown writes a Markdown document.
	FormatMarkdown Format = "md"
	// FormatTable writes the plain table.
	FormatTable Format = "txt"
)

// ErrUnknownFormat is returned for formats SaveFile does not know.
var ErrUnknownFormat = errors.New("report: unknown format")

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "table":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FileName returns "<root title> - Depth <N>.<ext>". Path separators in
// the title are replaced so the name stays in one directory.
func FileName(tree *linktree.Tree, ext string) string {
	title := ""
	if root := tree.RootNode(); root != nil {
		title = root.Title()
	}
	if title == "" {
		title = linktree.Hostname(tree.RootURL())
	}
	if title == "" {
		title = "linktree"
	}
	title = strings.NewReplacer("/", "_", `\`, "_", "\x00", "").Replace(title)
	title = strings.Join(strings.Fields(title), " ")
	return fmt.Sprintf("%s - Depth %d.%s", title, tree.MaxDepth(), strings.TrimPrefix(ext, "."))
}

// SaveFile renders tree in format into dir, creating dir when needed, and
// returns the written path. palette applies to FormatTable only.
func SaveFile(dir string, tree *linktree.Tree, format Format, palette Palette) (string, error) {
	if tree == nil {
		return "", ErrNoTree
	}

	var buf bytes.Buffer
	var w Writer
	switch format {
	case FormatJSON:
		w = NewJSONWriter(&buf)
	case FormatMarkdown:
		w = NewMarkdownWriter(&buf)
	case FormatTable:
		w = NewTableWriter(&buf, palette)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if _, err := w.Write(tree); err != nil {
		return "", fmt.Errorf("render %s: %w", format, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(tree, string(format)))
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
