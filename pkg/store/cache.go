package store

import "github.com/vanderheijden86/bundlescope/pkg/model"

// ChildrenOf returns the direct children of the given parent in row order,
// or nil when it has none. The first lookup for a parent scans the full
// node list once; the result, including "no children", is cached and
// reused for the lifetime of the store. The cache never needs invalidation
// because nodes are appended, never removed, and ParentID is immutable —
// a redesign that permits removal or reparenting must invalidate affected
// entries.
func (s *Store) ChildrenOf(parentID string) []*model.Node {
	if kids, ok := s.children[parentID]; ok {
		return kids
	}
	var kids []*model.Node
	for _, n := range s.nodes {
		if n.ParentID == parentID {
			kids = append(kids, n)
		}
	}
	s.children[parentID] = kids
	return kids
}
