package store

import (
	"github.com/vanderheijden86/bundlescope/pkg/debug"
	"github.com/vanderheijden86/bundlescope/pkg/model"
)

// Navigation over the flat list. Rows equal arena positions (Init and
// AddModules assign them), so the scans below index directly.

// SelectNextVisibleRow moves the selection to the next visible node after
// the current one in row order. With no selection it selects row 0
// unconditionally, visible or not (the bootstrap case). No-op when no
// later visible node exists.
func (s *Store) SelectNextVisibleRow() {
	if n := s.nextVisible(); n != nil {
		s.changeSelected(n)
	}
}

// SelectPrevVisibleRow is the backward counterpart of SelectNextVisibleRow.
func (s *Store) SelectPrevVisibleRow() {
	if n := s.prevVisible(); n != nil {
		s.changeSelected(n)
	}
}

func (s *Store) nextVisible() *model.Node {
	if len(s.nodes) == 0 {
		return nil
	}
	if s.selected < 0 {
		return s.nodes[0]
	}
	for i := s.selected + 1; i < len(s.nodes); i++ {
		if s.nodes[i].Visible {
			return s.nodes[i]
		}
	}
	return nil
}

func (s *Store) prevVisible() *model.Node {
	if len(s.nodes) == 0 {
		return nil
	}
	if s.selected < 0 {
		return s.nodes[0]
	}
	for i := s.selected - 1; i >= 0; i-- {
		if s.nodes[i].Visible {
			return s.nodes[i]
		}
	}
	return nil
}

// ExpandItemByID marks the node expanded and makes its direct children
// visible. No-op for leaves, already-expanded nodes, and nodes without
// children. Only direct children are touched: grandchildren stay governed
// by their own parent's Expanded flag, so a collapsed subtree under a
// newly expanded node stays hidden.
func (s *Store) ExpandItemByID(id string) {
	n := s.Get(id)
	if n == nil {
		debug.Usage("expand for unknown node %q", id)
		return
	}
	if n.Leaf || n.Expanded {
		return
	}
	kids := s.ChildrenOf(id)
	if len(kids) == 0 {
		return
	}
	s.update(id, Patch{Expanded: ptr(true)}, true)
	for _, kid := range kids {
		s.update(kid.ID, Patch{Visible: ptr(true)}, true)
	}
}

// CollapseItemByID marks the node collapsed and hides its direct children.
// Descendants keep their own Expanded flags, so re-expanding later
// restores the previous nested expansion state.
func (s *Store) CollapseItemByID(id string) {
	n := s.Get(id)
	if n == nil {
		debug.Usage("collapse for unknown node %q", id)
		return
	}
	if !n.Expanded {
		return
	}
	s.update(id, Patch{Expanded: ptr(false)}, true)
	for _, kid := range s.ChildrenOf(id) {
		s.update(kid.ID, Patch{Visible: ptr(false)}, true)
	}
}

// ExpandSelectedItem expands the current selection, if any.
func (s *Store) ExpandSelectedItem() {
	if sel := s.Selected(); sel != nil {
		s.ExpandItemByID(sel.ID)
	}
}

// CollapseSelectedItem collapses the current selection, if any.
func (s *Store) CollapseSelectedItem() {
	if sel := s.Selected(); sel != nil {
		s.CollapseItemByID(sel.ID)
	}
}
