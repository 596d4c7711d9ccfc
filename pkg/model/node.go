// Package model defines the core data types shared across bundlescope.
package model

// Node is one row of the module tree. Nodes live in a flat, row-ordered
// list owned by the store; parent/child structure is expressed through
// ParentID rather than pointers so the list can be serialized and appended
// to without rewiring references.
type Node struct {
	// ID is an opaque unique identifier (typically the module path).
	ID string `json:"id"`

	// ParentID is the ID of the owning node, empty for roots.
	ParentID string `json:"parentId,omitempty"`

	// Row is the node's index in the flat ordering. Rows are assigned once
	// at load time and never recomputed; new batches append after the
	// current maximum.
	Row int `json:"row"`

	// Leaf is true when the node has no children. Leaf nodes are never
	// expanded.
	Leaf bool `json:"leaf"`

	// Visible is true when every ancestor up to a root is expanded.
	// Maintained by cascading writes on expand/collapse, not re-derived.
	Visible bool `json:"visible"`

	// Expanded is true when the node's direct children are shown.
	Expanded bool `json:"expanded"`

	// Selected is true for at most one node at a time.
	Selected bool `json:"selected"`

	// ScoreKey is the user-assigned review score for this node, empty when
	// unscored. This is the only field that round-trips to durable storage.
	ScoreKey string `json:"scoreKey,omitempty"`

	// Display metadata carried from the stats manifest.
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// Root reports whether the node is a tree root.
func (n *Node) Root() bool {
	return n.ParentID == ""
}
