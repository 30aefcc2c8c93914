package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nao1215/torbot/internal/linktree"
)

// TableWriter renders a tree as a terminal table, one row per node in
// depth-first pre-order. Titles are indented by depth.
type TableWriter struct {
	baseWriter

	palette   Palette
	style     table.Style
	showStats bool
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithTableStyle sets the go-pretty table style.
func WithTableStyle(style table.Style) TableWriterOption {
	return func(w *TableWriter) {
		w.style = style
	}
}

// WithStats adds a footer with the build counters.
func WithStats(show bool) TableWriterOption {
	return func(w *TableWriter) {
		w.showStats = show
	}
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer, palette Palette, opts ...TableWriterOption) *TableWriter {
	w := &TableWriter{
		baseWriter: newBaseWriter(output),
		palette:    palette,
		style:      table.StyleLight,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders tree as a table.
func (w *TableWriter) Write(tree *linktree.Tree) (int, error) {
	if tree == nil {
		return 0, ErrNoTree
	}

	style := w.style
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	t := table.NewWriter()
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Title", "URL", "Status", "Phone Numbers", "Emails", "Category"})

	tree.Walk(func(n *linktree.LinkNode, depth int) bool {
		t.AppendRow(table.Row{
			strings.Repeat("  ", depth) + n.Title(),
			n.Identifier(),
			w.palette.Status(n.Status()),
			strings.Join(n.Numbers(), "\n"),
			strings.Join(n.Emails(), "\n"),
			n.Classification(),
		})
		return true
	})

	if w.showStats {
		s := tree.Stats()
		t.AppendFooter(table.Row{
			"Total", s.Visited,
			"failed " + strconv.Itoa(s.Failed),
			"duplicates " + strconv.Itoa(s.Duplicates),
			"invalid " + strconv.Itoa(s.Invalid),
			"filtered " + strconv.Itoa(s.Filtered+s.Skipped),
		})
	}

	return w.writeString(t.Render() + "\n")
}
