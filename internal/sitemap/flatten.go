package sitemap

import (
	"fmt"
	"strconv"
	"strings"
)

// syntheticPrefix starts every id generated for nodes the host left unnamed.
const syntheticPrefix = "folder_"

// Flatten converts a forest of RawNodes into a pre-order list of FlatNodes.
//
// Host ids are kept verbatim. Nodes without an id receive one derived from
// their index path ("folder_0_1" is the second child of the first root), with
// a numeric suffix when that collides with another id in the same call.
// The result is deterministic for a given input.
func Flatten(roots []RawNode) ([]FlatNode, error) {
	if roots == nil {
		return nil, ErrInputUnavailable
	}

	f := &flattener{
		result: make([]FlatNode, 0, Count(roots)),
		taken:  make(map[string]struct{}),
	}
	if err := f.collectHostIDs(roots); err != nil {
		return nil, err
	}
	f.walk(roots, "", 1, nil)
	return f.result, nil
}

type flattener struct {
	result []FlatNode
	taken  map[string]struct{}
}

// collectHostIDs reserves every host-supplied id before any id is synthesized,
// so a generated id can never shadow one that appears later in the traversal.
func (f *flattener) collectHostIDs(nodes []RawNode) error {
	for _, n := range nodes {
		if n.ID != "" {
			if _, dup := f.taken[n.ID]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
			}
			f.taken[n.ID] = struct{}{}
		}
		if err := f.collectHostIDs(n.Children); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) walk(nodes []RawNode, parentID string, level int, path []int) {
	for i, n := range nodes {
		nodePath := append(path[:len(path):len(path)], i)

		id := n.ID
		if id == "" {
			id = f.synthesize(nodePath)
		}

		f.result = append(f.result, FlatNode{
			ID:       id,
			Name:     n.PageName,
			ParentID: parentID,
			Type:     n.Type,
			URL:      n.URL,
			Level:    level,
		})

		if len(n.Children) > 0 {
			f.walk(n.Children, id, level+1, nodePath)
		}
	}
}

func (f *flattener) synthesize(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	base := syntheticPrefix + strings.Join(parts, "_")

	id := base
	for n := 2; ; n++ {
		if _, clash := f.taken[id]; !clash {
			break
		}
		id = base + "_" + strconv.Itoa(n)
	}
	f.taken[id] = struct{}{}
	return id
}
