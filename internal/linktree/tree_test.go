package linktree

import (
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/torbot/internal/model"
)

func mustNode(t *testing.T, rawURL string) *LinkNode {
	t.Helper()
	n, err := NewNode(rawURL, nil, nil, model.Classification{})
	if err != nil {
		t.Fatalf("NewNode(%q): %v", rawURL, err)
	}
	return n
}

func TestTreeAttach(t *testing.T) {
	t.Parallel()

	tree := NewTree(pageA, 1)
	if tree.Root() != "" || tree.RootNode() != nil || tree.Size() != 0 {
		t.Fatal("expected empty tree")
	}

	if err := tree.Attach("", mustNode(t, pageA)); err != nil {
		t.Fatalf("attach root: %v", err)
	}
	if err := tree.Attach(pageA, mustNode(t, pageB)); err != nil {
		t.Fatalf("attach child: %v", err)
	}

	testCases := []struct {
		name     string
		parent   string
		node     string
		expected error
	}{
		{"second root", "", pageC, ErrRootExists},
		{"duplicate identifier", pageA, pageB, ErrDuplicateIdentifier},
		{"duplicate root identifier", pageB, pageA, ErrDuplicateIdentifier},
		{"unknown parent", pageE, pageC, ErrNotFound},
		{"too deep", pageB, pageC, ErrDepthExceeded},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tree.Attach(tc.parent, mustNode(t, tc.node))
			if !errors.Is(err, tc.expected) {
				t.Errorf("Attach(%q, %q) = %v, expected %v", tc.parent, tc.node, err, tc.expected)
			}
		})
	}

	if tree.Size() != 2 {
		t.Errorf("failed attaches changed the tree, Size() = %d", tree.Size())
	}
	if tree.RootNode().Identifier() != pageA {
		t.Errorf("RootNode() = %v", tree.RootNode())
	}
}

func TestTreeQueries(t *testing.T) {
	t.Parallel()

	// A
	// ├── B
	// │   └── D
	// └── C
	tree := NewTree(pageA, 3)
	for _, step := range []struct{ parent, id string }{
		{"", pageA}, {pageA, pageB}, {pageA, pageC}, {pageB, pageD},
	} {
		if err := tree.Attach(step.parent, mustNode(t, step.id)); err != nil {
			t.Fatalf("Attach(%q, %q): %v", step.parent, step.id, err)
		}
	}

	if tree.MaxDepth() != 3 || tree.RootURL() != pageA {
		t.Errorf("MaxDepth() = %d, RootURL() = %q", tree.MaxDepth(), tree.RootURL())
	}
	if !tree.Contains(pageD) || tree.Contains(pageE) {
		t.Error("Contains mismatch")
	}
	if _, err := tree.Node(pageE); !errors.Is(err, ErrNotFound) {
		t.Errorf("Node(E) error = %v, expected ErrNotFound", err)
	}
	if _, err := tree.ChildrenOf(pageE); !errors.Is(err, ErrNotFound) {
		t.Errorf("ChildrenOf(E) error = %v, expected ErrNotFound", err)
	}
	if _, err := tree.ParentOf(pageE); !errors.Is(err, ErrNotFound) {
		t.Errorf("ParentOf(E) error = %v, expected ErrNotFound", err)
	}
	if _, err := tree.DepthOf(pageE); !errors.Is(err, ErrNotFound) {
		t.Errorf("DepthOf(E) error = %v, expected ErrNotFound", err)
	}

	if got := identifiers(tree.Nodes()); !slices.Equal(got, []string{pageA, pageB, pageD, pageC}) {
		t.Errorf("Nodes() = %v, expected pre-order", got)
	}

	var visited []string
	tree.Walk(func(n *LinkNode, _ int) bool {
		visited = append(visited, n.Identifier())
		return n.Identifier() != pageB
	})
	if !slices.Equal(visited, []string{pageA, pageB, pageC}) {
		t.Errorf("Walk with pruning visited %v", visited)
	}

	if d, _ := tree.DepthOf(pageD); d != 2 {
		t.Errorf("DepthOf(D) = %d", d)
	}
	if stats := tree.Stats(); stats.Visited != 4 {
		t.Errorf("Stats().Visited = %d", stats.Visited)
	}
}

func TestTreeOrdinalInsertion(t *testing.T) {
	t.Parallel()

	tree := NewTree(pageA, 1)
	if err := tree.Attach("", mustNode(t, pageA)); err != nil {
		t.Fatal(err)
	}
	for _, step := range []struct {
		id      string
		ordinal int
	}{
		{pageD, 2}, {pageB, 0}, {pageE, 3}, {pageC, 1},
	} {
		if err := tree.attach(pageA, mustNode(t, step.id), step.ordinal); err != nil {
			t.Fatal(err)
		}
	}
	assertChildren(t, tree, pageA, []string{pageB, pageC, pageD, pageE})

	// Attach appends after the highest ordinal.
	if err := tree.Attach(pageA, mustNode(t, "http://f.test/")); err != nil {
		t.Fatal(err)
	}
	assertChildren(t, tree, pageA, []string{pageB, pageC, pageD, pageE, "http://f.test/"})
}

func TestNewTreeClampsDepth(t *testing.T) {
	t.Parallel()

	if d := NewTree(pageA, -3).MaxDepth(); d != 0 {
		t.Errorf("MaxDepth() = %d, expected 0", d)
	}
}
