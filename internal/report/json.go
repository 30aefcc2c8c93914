package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/torbot/internal/linktree"
)

// ErrInvalidExport is returned by ReadJSON for documents without a root node.
var ErrInvalidExport = errors.New("report: invalid link tree export")

// JSONWriter outputs trees as nested JSON:
//
//	{"linktree": {"identifier": ..., "children": [...]}, "max_depth": N}
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent sets the line prefix and indentation string.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithCompact disables indentation.
func WithCompact() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = false
	}
}

// NewJSONWriter creates a JSONWriter with two-space indentation.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       true,
		indentString: "  ",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonNode is one node of the export with its children nested.
type jsonNode struct {
	linktree.NodeRecord
	Children []*jsonNode `json:"children"`
}

type jsonDocument struct {
	LinkTree *jsonNode `json:"linktree"`
	MaxDepth *int      `json:"max_depth,omitempty"`
}

// Write renders tree as JSON followed by a newline. An empty tree is
// written with a null "linktree".
func (w *JSONWriter) Write(tree *linktree.Tree) (int, error) {
	if tree == nil {
		return 0, ErrNoTree
	}

	var data []byte
	var err error
	maxDepth := tree.MaxDepth()
	doc := jsonDocument{LinkTree: toJSONNode(tree), MaxDepth: &maxDepth}
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

func toJSONNode(tree *linktree.Tree) *jsonNode {
	var root *jsonNode
	var stack []*jsonNode
	tree.Walk(func(n *linktree.LinkNode, depth int) bool {
		rec := n.Record()
		if rec.Numbers == nil {
			rec.Numbers = []string{}
		}
		if rec.Emails == nil {
			rec.Emails = []string{}
		}
		jn := &jsonNode{NodeRecord: rec, Children: []*jsonNode{}}

		stack = stack[:depth]
		if depth == 0 {
			root = jn
		} else {
			parent := stack[depth-1]
			parent.Children = append(parent.Children, jn)
		}
		stack = append(stack, jn)
		return true
	})
	return root
}

// ReadJSON restores a tree written by JSONWriter. It also accepts a bare
// node object without the "linktree" wrapper. The tree's depth limit is
// the exported "max_depth", or the depth of the deepest node when the
// document has none.
func ReadJSON(r io.Reader) (*linktree.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	root := doc.LinkTree
	if root == nil {
		var bare jsonNode
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
		}
		if bare.Identifier == "" {
			return nil, ErrInvalidExport
		}
		root = &bare
	}

	maxDepth := height(root)
	if doc.MaxDepth != nil {
		maxDepth = max(maxDepth, *doc.MaxDepth)
	}
	tree := linktree.NewTree(root.Identifier, maxDepth)
	if err := attachAll(tree, "", root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	return tree, nil
}

func height(n *jsonNode) int {
	h := 0
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		h = max(h, height(c)+1)
	}
	return h
}

func attachAll(tree *linktree.Tree, parentID string, n *jsonNode) error {
	node, err := linktree.NewNodeFromRecord(n.NodeRecord)
	if err != nil {
		return err
	}
	if err := tree.Attach(parentID, node); err != nil {
		return err
	}
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if err := attachAll(tree, node.Identifier(), c); err != nil {
			return err
		}
	}
	return nil
}
