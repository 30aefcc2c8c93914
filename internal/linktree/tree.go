package linktree

import (
	"fmt"
	"sort"
	"sync"
)

// Stats counts what happened to the links seen during a build.
type Stats struct {
	// Visited is the number of pages turned into nodes.
	Visited int `json:"visited"`
	// Failed is the number of pages abandoned after a fetch or parse error.
	Failed int `json:"failed"`
	// Duplicates is the number of discovered links that were already claimed.
	Duplicates int `json:"duplicates"`
	// Invalid is the number of discovered links rejected by URL validation.
	Invalid int `json:"invalid"`
	// Filtered is the number of discovered links rejected by a LinkFilter.
	Filtered int `json:"filtered"`
	// Skipped is the number of links not claimed because the page limit
	// was reached.
	Skipped int `json:"skipped"`
}

// Tree is a rooted tree of LinkNodes keyed by identifier.
//
// Every node except the root has exactly one parent, no identifier
// appears twice and no node is deeper than MaxDepth. A Tree is safe for
// concurrent use.
type Tree struct {
	mu       sync.RWMutex
	rootURL  string
	maxDepth int
	root     string
	entries  map[string]*entry
	stats    Stats
}

type entry struct {
	node     *LinkNode
	parent   string
	depth    int
	ordinal  int
	children []*entry
}

// NewTree returns an empty tree for rootURL limited to maxDepth levels
// below the root. A negative maxDepth is treated as 0.
func NewTree(rootURL string, maxDepth int) *Tree {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Tree{
		rootURL:  rootURL,
		maxDepth: maxDepth,
		entries:  make(map[string]*entry),
	}
}

// RootURL returns the seed URL the tree was created for.
func (t *Tree) RootURL() string {
	return t.rootURL
}

// Root returns the identifier of the root node, or "" for an empty tree.
func (t *Tree) Root() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// RootNode returns the root node, or nil for an empty tree.
func (t *Tree) RootNode() *LinkNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.entries[t.root]; ok {
		return e.node
	}
	return nil
}

// MaxDepth returns the depth bound.
func (t *Tree) MaxDepth() int {
	return t.maxDepth
}

// Size returns the number of nodes.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Contains reports whether id is in the tree.
func (t *Tree) Contains(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[id]
	return ok
}

// Node returns the node for id.
func (t *Tree) Node(id string) (*LinkNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.node, nil
}

// ChildrenOf returns the identifiers of id's children in the order their
// links appeared on the page.
func (t *Tree) ChildrenOf(id string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ids := make([]string, len(e.children))
	for i, c := range e.children {
		ids[i] = c.node.identifier
	}
	return ids, nil
}

// ParentOf returns the identifier of id's parent, "" for the root.
func (t *Tree) ParentOf(id string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.parent, nil
}

// DepthOf returns the number of edges between the root and id.
func (t *Tree) DepthOf(id string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.depth, nil
}

// Walk calls fn for every node in depth-first pre-order. Returning false
// from fn skips the node's subtree. fn must not modify the tree.
func (t *Tree) Walk(fn func(node *LinkNode, depth int) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	root, ok := t.entries[t.root]
	if !ok {
		return
	}
	var walk func(e *entry)
	walk = func(e *entry) {
		if !fn(e.node, e.depth) {
			return
		}
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(root)
}

// Nodes returns all nodes in depth-first pre-order.
func (t *Tree) Nodes() []*LinkNode {
	nodes := make([]*LinkNode, 0, t.Size())
	t.Walk(func(n *LinkNode, _ int) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Stats returns the build counters. Trees that were not built by a
// Builder report only Visited.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.stats
	s.Visited = len(t.entries)
	return s
}

// Attach inserts node as the last child of parentID. An empty parentID
// makes node the root.
func (t *Tree) Attach(parentID string, node *LinkNode) error {
	return t.attach(parentID, node, -1)
}

// attach inserts node among parentID's children by ordinal. A negative
// ordinal appends.
func (t *Tree) attach(parentID string, node *LinkNode, ordinal int) error {
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrNotFound)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	id := node.identifier
	if _, ok := t.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, id)
	}

	if parentID == "" {
		if t.root != "" {
			return fmt.Errorf("%w: %s", ErrRootExists, t.root)
		}
		t.root = id
		t.entries[id] = &entry{node: node}
		return nil
	}

	parent, ok := t.entries[parentID]
	if !ok {
		return fmt.Errorf("parent of %s: %w: %s", id, ErrNotFound, parentID)
	}
	if parent.depth+1 > t.maxDepth {
		return fmt.Errorf("%w: %s at depth %d, max %d", ErrDepthExceeded, id, parent.depth+1, t.maxDepth)
	}

	if ordinal < 0 {
		ordinal = 0
		if n := len(parent.children); n > 0 {
			ordinal = parent.children[n-1].ordinal + 1
		}
	}
	e := &entry{node: node, parent: parentID, depth: parent.depth + 1, ordinal: ordinal}
	i := sort.Search(len(parent.children), func(i int) bool {
		return parent.children[i].ordinal > ordinal
	})
	parent.children = append(parent.children, nil)
	copy(parent.children[i+1:], parent.children[i:])
	parent.children[i] = e
	t.entries[id] = e
	return nil
}

func (t *Tree) setStats(s Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = s
}
