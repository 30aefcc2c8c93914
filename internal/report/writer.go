package report

import (
	"errors"
	"io"

	"github.com/nao1215/torbot/internal/linktree"
)

// ErrNoTree is returned when a writer is given a nil tree.
var ErrNoTree = errors.New("report: nil tree")

// Writer renders a link tree to its destination.
type Writer interface {
	// Write renders tree and returns the number of bytes written.
	Write(tree *linktree.Tree) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

func (b baseWriter) writeString(s string) (int, error) {
	return io.WriteString(b.output, s)
}
