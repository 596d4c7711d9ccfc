// Package store holds the UI state for the bundlescope tree view: the flat
// node list, selection, expand/collapse visibility, and per-node review
// scores. It is the single source of truth the renderer subscribes to.
//
// The store is single-consumer UI state. All methods are synchronous and
// must be called from one goroutine (the TUI update loop); no locking is
// done here. Listener callbacks run inline with the triggering mutation,
// so a callback that calls back into the store re-enters synchronously.
package store

import (
	"context"

	"github.com/vanderheijden86/bundlescope/pkg/debug"
	"github.com/vanderheijden86/bundlescope/pkg/model"
)

// Event identifies a named store notification.
type Event int

const (
	// EventModulesAdded fires after AddModules; payload is the new subtree roots.
	EventModulesAdded Event = iota
	// EventSelectionChanged fires after the selection moves; payload is the
	// newly selected node (a one-element slice).
	EventSelectionChanged
	// EventScoreChanged fires when the current selection's score changes;
	// no payload. A score-summary element listens here so it can refresh
	// without subscribing to every row.
	EventScoreChanged
)

// ListenerFunc receives an event payload. The payload slice is nil for
// EventScoreChanged.
type ListenerFunc func(nodes []*model.Node)

// NodeFunc receives the updated node for a per-node render notification.
type NodeFunc func(n *model.Node)

// Patch is a partial update applied to a node in place. Nil fields are
// left untouched.
type Patch struct {
	Visible  *bool
	Expanded *bool
	Selected *bool
	ScoreKey *string
}

// Store owns the node list and coordinates navigation, caching, change
// detection, and score persistence.
type Store struct {
	scores ScoreStore

	nodes    []*model.Node
	index    map[string]int           // node ID -> arena position
	children map[string][]*model.Node // per-parent children cache, lazily populated

	// selected is the arena position of the selected node, -1 for none.
	// It is tracked redundantly with Node.Selected; changeSelected is the
	// only path that moves it, which keeps the two in agreement.
	selected int

	nodeListeners  map[string]NodeFunc
	eventListeners map[Event]ListenerFunc
}

// New creates an empty store backed by the given score store. A nil
// ScoreStore disables persistence entirely (scores stay session-local).
func New(scores ScoreStore) *Store {
	return &Store{
		scores:         scores,
		index:          make(map[string]int),
		children:       make(map[string][]*model.Node),
		selected:       -1,
		nodeListeners:  make(map[string]NodeFunc),
		eventListeners: make(map[Event]ListenerFunc),
	}
}

// Init installs the initial node list and replays persisted scores onto it.
// Rows are normalized to arena positions; the loader emits nodes in row
// order so this is an identity assignment, but it keeps the row/position
// equivalence the navigation scans rely on. Registered listeners survive
// re-initialization.
func (s *Store) Init(nodes []*model.Node) {
	s.nodes = nil
	s.index = make(map[string]int)
	s.children = make(map[string][]*model.Node)
	s.selected = -1

	for _, n := range nodes {
		s.append(n)
	}

	s.loadScores()
}

// AddModules appends whole subtrees to the node list. Each batch is one
// subtree in row order with the subtree root first. Fires EventModulesAdded
// with the new roots, then replays persisted scores so previously saved
// scores for the new nodes are restored.
func (s *Store) AddModules(batches [][]*model.Node) {
	var roots []*model.Node
	for _, batch := range batches {
		for i, n := range batch {
			// The cache treats a computed child list as immutable, which
			// holds only while new parents were never looked up before.
			if _, cached := s.children[n.ParentID]; cached && n.ParentID != "" {
				debug.Log("addModules: parent %q already cached, children of it will be stale", n.ParentID)
			}
			s.append(n)
			if i == 0 {
				roots = append(roots, n)
			}
		}
	}

	s.emit(EventModulesAdded, roots)
	s.loadScores()
}

// append adds one node to the arena, assigning its row.
func (s *Store) append(n *model.Node) {
	n.Row = len(s.nodes)
	s.index[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)
}

// UpdateItem applies a partial update to the node with the given ID,
// persisting a score change to the score store. Unknown IDs are reported
// and ignored.
func (s *Store) UpdateItem(id string, patch Patch) {
	s.update(id, patch, true)
}

// update is the single mutation path. It computes the node's fingerprint
// before and after the patch; when the fingerprint changed and the node is
// visible, the per-node listener fires (the render-trigger path).
// Independently, a score change is written through to the score store
// (unless persist is false, as during disk replay) and, when the mutated
// node is the current selection, EventScoreChanged fires.
func (s *Store) update(id string, patch Patch, persist bool) {
	pos, ok := s.index[id]
	if !ok {
		debug.Usage("update for unknown node %q", id)
		return
	}
	n := s.nodes[pos]

	before := fingerprintOf(n)
	prevScore := n.ScoreKey
	patch.apply(n)
	after := fingerprintOf(n)

	if before != after && n.Visible {
		if fn := s.nodeListeners[id]; fn != nil {
			fn(n)
		}
	}

	if patch.ScoreKey != nil && n.ScoreKey != prevScore {
		if persist {
			s.persistScore(n)
		}
		if s.selected == pos {
			s.emit(EventScoreChanged, nil)
		}
	}
}

// apply copies the patch's set fields onto the node.
func (p Patch) apply(n *model.Node) {
	if p.Visible != nil {
		n.Visible = *p.Visible
	}
	if p.Expanded != nil {
		n.Expanded = *p.Expanded
	}
	if p.Selected != nil {
		n.Selected = *p.Selected
	}
	if p.ScoreKey != nil {
		n.ScoreKey = *p.ScoreKey
	}
}

// SelectItemByID moves the selection to the given node. Selecting the
// current selection again is a no-op.
func (s *Store) SelectItemByID(id string) {
	if sel := s.Selected(); sel != nil && sel.ID == id {
		return
	}
	pos, ok := s.index[id]
	if !ok {
		debug.Usage("select for unknown node %q", id)
		return
	}
	s.changeSelected(s.nodes[pos])
}

// changeSelected deselects the previous selection, selects n, updates the
// tracked selection, and fires EventSelectionChanged.
func (s *Store) changeSelected(n *model.Node) {
	if prev := s.Selected(); prev != nil {
		s.update(prev.ID, Patch{Selected: ptr(false)}, true)
	}
	s.update(n.ID, Patch{Selected: ptr(true)}, true)
	s.selected = s.index[n.ID]
	s.emit(EventSelectionChanged, []*model.Node{n})
}

// ScoreSelectedItem assigns a score to the current selection and persists
// it. No-op without a selection or when the score is unchanged.
func (s *Store) ScoreSelectedItem(scoreKey string) {
	sel := s.Selected()
	if sel == nil || sel.ScoreKey == scoreKey {
		return
	}
	s.UpdateItem(sel.ID, Patch{ScoreKey: &scoreKey})
}

// Listen registers fn for the named event, silently replacing any
// previously registered listener. At most one listener per event.
func (s *Store) Listen(ev Event, fn ListenerFunc) {
	if fn == nil {
		debug.Usage("nil listener for event %d", ev)
		return
	}
	s.eventListeners[ev] = fn
}

// ListenNode registers fn for per-node render notifications on the given
// node ID, silently replacing any previous registration.
func (s *Store) ListenNode(id string, fn NodeFunc) {
	if fn == nil {
		debug.Usage("nil listener for node %q", id)
		return
	}
	s.nodeListeners[id] = fn
}

// Selected returns the currently selected node, or nil.
func (s *Store) Selected() *model.Node {
	if s.selected < 0 || s.selected >= len(s.nodes) {
		return nil
	}
	return s.nodes[s.selected]
}

// Get returns the node with the given ID, or nil.
func (s *Store) Get(id string) *model.Node {
	if pos, ok := s.index[id]; ok {
		return s.nodes[pos]
	}
	return nil
}

// Nodes returns the flat node list in row order. Callers must treat it as
// read-only; mutations go through UpdateItem.
func (s *Store) Nodes() []*model.Node {
	return s.nodes
}

// VisibleNodes returns the currently visible nodes in row order.
func (s *Store) VisibleNodes() []*model.Node {
	var out []*model.Node
	for _, n := range s.nodes {
		if n.Visible {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the total node count.
func (s *Store) Len() int {
	return len(s.nodes)
}

// persistScore writes the node's score through to the score store. Writes
// are fire-and-forget: a failure is logged and the score is simply not
// durable, which is acceptable for review-preference data.
func (s *Store) persistScore(n *model.Node) {
	if s.scores == nil {
		return
	}
	if err := s.scores.Put(context.Background(), n.ID, n.ScoreKey); err != nil {
		debug.Log("persist score for %q: %v", n.ID, err)
	}
}

// loadScores replays every persisted score onto the node list. Persistence
// is suppressed during replay so data just read is not written back.
// Entries for nodes not (yet) in the list are ignored; a later AddModules
// replays again and picks them up. Read failures are logged, never
// propagated.
func (s *Store) loadScores() {
	if s.scores == nil {
		return
	}
	err := s.scores.ForEach(context.Background(), func(id, scoreKey string) error {
		if scoreKey == "" {
			return nil
		}
		if _, ok := s.index[id]; !ok {
			return nil
		}
		s.update(id, Patch{ScoreKey: &scoreKey}, false)
		return nil
	})
	if err != nil {
		debug.Log("score replay: %v", err)
	}
}

// emit invokes the listener registered for ev, if any.
func (s *Store) emit(ev Event, payload []*model.Node) {
	if fn := s.eventListeners[ev]; fn != nil {
		fn(payload)
	}
}

func ptr[T any](v T) *T {
	return &v
}
