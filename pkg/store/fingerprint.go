package store

import "github.com/vanderheijden86/bundlescope/pkg/model"

// fingerprint summarizes a node's render-relevant fields. It is a
// comparable value: two fingerprints are equal iff all four fields are
// equal, which is what gates per-node notifications.
type fingerprint struct {
	scoreKey string
	visible  bool
	expanded bool
	selected bool
}

func fingerprintOf(n *model.Node) fingerprint {
	return fingerprint{
		scoreKey: n.ScoreKey,
		visible:  n.Visible,
		expanded: n.Expanded,
		selected: n.Selected,
	}
}
