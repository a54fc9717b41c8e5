package sitemap

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Index provides id lookup and subtree selection over a flat node list.
// Positions refer to offsets in the list the index was built from; the list
// order itself is not relied upon.
type Index struct {
	nodes    []FlatNode
	byID     map[string]uint32
	children map[string][]uint32
}

// NewIndex builds an Index over nodes. The slice is retained, not copied.
func NewIndex(nodes []FlatNode) *Index {
	idx := &Index{
		nodes:    nodes,
		byID:     make(map[string]uint32, len(nodes)),
		children: make(map[string][]uint32),
	}
	for i, n := range nodes {
		pos := uint32(i)
		if _, seen := idx.byID[n.ID]; !seen {
			idx.byID[n.ID] = pos
		}
		if n.ParentID != "" {
			idx.children[n.ParentID] = append(idx.children[n.ParentID], pos)
		}
	}
	return idx
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int { return len(idx.nodes) }

// Nodes returns the underlying list.
func (idx *Index) Nodes() []FlatNode { return idx.nodes }

// Lookup returns the node with the given id.
func (idx *Index) Lookup(id string) (FlatNode, bool) {
	pos, ok := idx.byID[id]
	if !ok {
		return FlatNode{}, false
	}
	return idx.nodes[pos], true
}

// Parent returns the parent of the node with the given id, if it is indexed.
func (idx *Index) Parent(id string) (FlatNode, bool) {
	n, ok := idx.Lookup(id)
	if !ok || n.IsRoot() {
		return FlatNode{}, false
	}
	return idx.Lookup(n.ParentID)
}

// Subtree returns the positions of startID and all of its transitive
// descendants.
func (idx *Index) Subtree(startID string) (*roaring.Bitmap, error) {
	start, ok := idx.byID[startID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, startID)
	}

	set := roaring.New()
	set.Add(start)
	stack := []uint32{start}
	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range idx.children[idx.nodes[pos].ID] {
			// CheckedAdd guards against parent cycles in malformed input.
			if set.CheckedAdd(child) {
				stack = append(stack, child)
			}
		}
	}
	return set, nil
}

// Select returns the nodes of the subtree rooted at startID in list order.
// An empty startID selects every node.
func (idx *Index) Select(startID string) ([]FlatNode, error) {
	if startID == "" {
		return idx.nodes, nil
	}
	set, err := idx.Subtree(startID)
	if err != nil {
		return nil, err
	}
	out := make([]FlatNode, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, idx.nodes[it.Next()])
	}
	return out, nil
}

// FindByURL returns the id of the first node, in list order, whose URL
// with ".html" removed equals page.
func (idx *Index) FindByURL(page string) (string, bool) {
	for _, n := range idx.nodes {
		if n.URL != "" && strings.Replace(n.URL, ".html", "", 1) == page {
			return n.ID, true
		}
	}
	return "", false
}
