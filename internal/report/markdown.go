package report

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/torbot/internal/linktree"
)

// MarkdownWriter outputs a tree as a Markdown document with a summary,
// a node table and a category breakdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders tree in Markdown.
func (w *MarkdownWriter) Write(tree *linktree.Tree) (int, error) {
	if tree == nil {
		return 0, ErrNoTree
	}

	md := markdown.NewMarkdown(w.output)
	w.writeSummary(md, tree)
	w.writeNodes(md, tree)
	w.writeCategories(md, tree)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, tree *linktree.Tree) {
	md.H1("TorBot Link Tree")
	md.PlainText("")

	title := "-"
	if root := tree.RootNode(); root != nil {
		title = escapeCell(root.Title())
	}
	s := tree.Stats()
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + tree.RootURL() + "`"},
			{"Title", title},
			{"Depth", strconv.Itoa(tree.MaxDepth())},
			{"Pages", strconv.Itoa(s.Visited)},
			{"Failed", strconv.Itoa(s.Failed)},
		},
	})
	md.PlainText("")

	if tree.Size() == 0 {
		md.Warningf("The root page could not be fetched; the tree is empty.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeNodes(md *markdown.Markdown, tree *linktree.Tree) {
	md.H2("Pages")
	md.PlainText("")

	var rows [][]string
	tree.Walk(func(n *linktree.LinkNode, depth int) bool {
		rows = append(rows, []string{
			strconv.Itoa(depth),
			escapeCell(n.Title()),
			escapeCell(n.Identifier()),
			StatusText(n.Status()),
			escapeCell(n.Classification()),
			strconv.FormatFloat(n.Accuracy(), 'f', 2, 64),
			escapeCell(joinOrDash(n.Emails())),
			escapeCell(joinOrDash(n.Numbers())),
		})
		return true
	})
	if len(rows) == 0 {
		md.PlainText("No pages.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Title", "URL", "Status", "Category", "Accuracy", "Emails", "Phone Numbers"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, tree *linktree.Tree) {
	counts := CategoryCounts(tree)
	if len(counts) == 0 {
		return
	}

	md.H2("Categories")
	md.PlainText("")

	rows := make([][]string, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by Category"),
		piechart.WithShowData(true),
	)
	for i, c := range counts {
		rows[i] = []string{escapeCell(c.Category), strconv.Itoa(c.Pages)}
		chart.LabelAndIntValue(c.Category, uint64(c.Pages)) //nolint:gosec // counts are positive
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [TorBot](https://github.com/nao1215/torbot)*")
}

// CategoryCount is the number of pages in one category.
type CategoryCount struct {
	Category string
	Pages    int
}

// CategoryCounts returns page counts per category, most pages first and
// then by name.
func CategoryCounts(tree *linktree.Tree) []CategoryCount {
	byName := make(map[string]int)
	for _, n := range tree.Nodes() {
		name := n.Classification()
		if name == "" {
			name = "Unclassified"
		}
		byName[name]++
	}

	counts := make([]CategoryCount, 0, len(byName))
	for name, pages := range byName {
		counts = append(counts, CategoryCount{Category: name, Pages: pages})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Pages != counts[j].Pages {
			return counts[i].Pages > counts[j].Pages
		}
		return counts[i].Category < counts[j].Category
	})
	return counts
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// escapeCell keeps pipes and newlines from breaking table rows.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
