// Package testutil provides node fixtures and assertion helpers for
// bundlescope tests. All generators produce deterministic output.
package testutil

import (
	"fmt"
	"testing"

	"github.com/vanderheijden86/bundlescope/pkg/model"
)

// NodeSpec describes one fixture node. Row is assigned by position.
type NodeSpec struct {
	ID       string
	ParentID string
	Leaf     bool
	Visible  bool
	Expanded bool
	ScoreKey string
}

// BuildNodes converts specs to nodes, assigning rows by position.
func BuildNodes(specs []NodeSpec) []*model.Node {
	nodes := make([]*model.Node, len(specs))
	for i, spec := range specs {
		nodes[i] = &model.Node{
			ID:       spec.ID,
			ParentID: spec.ParentID,
			Row:      i,
			Leaf:     spec.Leaf,
			Visible:  spec.Visible,
			Expanded: spec.Expanded,
			ScoreKey: spec.ScoreKey,
			Name:     spec.ID,
		}
	}
	return nodes
}

// Tree generates a uniform tree in pre-order: levels deep, branching
// children per non-leaf node. IDs encode the path ("n0", "n0.1", ...).
// View state matches loader defaults: roots visible and expanded, their
// children visible but collapsed, deeper levels hidden.
func Tree(levels, branching int) []*model.Node {
	var nodes []*model.Node
	var build func(id, parentID string, depth int)
	build = func(id, parentID string, depth int) {
		leaf := depth == levels-1
		nodes = append(nodes, &model.Node{
			ID:       id,
			ParentID: parentID,
			Row:      len(nodes),
			Leaf:     leaf,
			Visible:  depth < 2,
			Expanded: depth < 1 && !leaf,
			Name:     id,
		})
		if leaf {
			return
		}
		for i := 0; i < branching; i++ {
			build(fmt.Sprintf("%s.%d", id, i), id, depth+1)
		}
	}
	build("n0", "", 0)
	return nodes
}

// AssertSelectionUnique verifies at most one node is selected and that it
// matches the given expected ID ("" for no selection).
func AssertSelectionUnique(t *testing.T, nodes []*model.Node, wantID string) {
	t.Helper()
	var selected []string
	for _, n := range nodes {
		if n.Selected {
			selected = append(selected, n.ID)
		}
	}
	switch {
	case len(selected) > 1:
		t.Errorf("multiple nodes selected: %v", selected)
	case len(selected) == 1 && selected[0] != wantID:
		t.Errorf("selected node = %q, want %q", selected[0], wantID)
	case len(selected) == 0 && wantID != "":
		t.Errorf("no node selected, want %q", wantID)
	}
}

// AssertVisible verifies the visibility of each listed node ID.
func AssertVisible(t *testing.T, byID func(string) *model.Node, want bool, ids ...string) {
	t.Helper()
	for _, id := range ids {
		n := byID(id)
		if n == nil {
			t.Errorf("node %q not found", id)
			continue
		}
		if n.Visible != want {
			t.Errorf("node %q visible = %v, want %v", id, n.Visible, want)
		}
	}
}
