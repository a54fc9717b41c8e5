package sitemap

import "errors"

var (
	// ErrInputUnavailable is returned when the host has not loaded a sitemap yet.
	ErrInputUnavailable = errors.New("sitemap input unavailable")

	// ErrNodeNotFound is returned when a requested node id is not in the index.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateID is returned when the host supplies the same id twice.
	ErrDuplicateID = errors.New("duplicate node id")
)

// RawNode is a sitemap node as supplied by the host document.
type RawNode struct {
	ID       string    `json:"id,omitempty"`
	PageName string    `json:"pageName"`
	Type     string    `json:"type,omitempty"`
	URL      string    `json:"url,omitempty"`
	Children []RawNode `json:"children,omitempty"`
}

// FlatNode is a RawNode with an explicit parent reference and depth.
// An empty ParentID marks a root.
type FlatNode struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Type     string `json:"type,omitempty"`
	URL      string `json:"url,omitempty"`
	Level    int    `json:"level"`
}

// IsRoot reports whether the node has no parent.
func (n FlatNode) IsRoot() bool { return n.ParentID == "" }

// Count returns the total number of nodes in the forest, at every depth.
func Count(roots []RawNode) int {
	total := 0
	for _, r := range roots {
		total += 1 + Count(r.Children)
	}
	return total
}
