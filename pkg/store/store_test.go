package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vanderheijden86/bundlescope/pkg/model"
	"github.com/vanderheijden86/bundlescope/pkg/store"
	"github.com/vanderheijden86/bundlescope/pkg/testutil"
)

func ptr[T any](v T) *T { return &v }

// countingScores wraps a ScoreStore and counts writes, so tests can tell
// a real persist apart from a replay.
type countingScores struct {
	store.ScoreStore
	puts int
}

func (c *countingScores) Put(ctx context.Context, id, scoreKey string) error {
	c.puts++
	return c.ScoreStore.Put(ctx, id, scoreKey)
}

// failingScores errors on every operation.
type failingScores struct{}

func (failingScores) Put(context.Context, string, string) error { return errors.New("disk gone") }
func (failingScores) ForEach(context.Context, func(id, scoreKey string) error) error {
	return errors.New("disk gone")
}

func TestInit_AssignsRowsByPosition(t *testing.T) {
	st := store.New(nil)
	nodes := testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", ParentID: "a", Visible: true},
		{ID: "c", ParentID: "a"},
	})
	// Scramble rows; Init must normalize them.
	nodes[0].Row = 7
	nodes[2].Row = 0
	st.Init(nodes)

	for i, n := range st.Nodes() {
		if n.Row != i {
			t.Errorf("node %q row = %d, want %d", n.ID, n.Row, i)
		}
	}
	if st.Len() != 3 {
		t.Errorf("Len() = %d, want 3", st.Len())
	}
}

func TestInit_ListenersSurviveReinit(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))

	notified := 0
	st.ListenNode("a", func(*model.Node) { notified++ })

	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))
	st.UpdateItem("a", store.Patch{Expanded: ptr(true)})

	if notified != 1 {
		t.Errorf("notifications after reinit = %d, want 1", notified)
	}
}

func TestSelectNextVisibleRow_BootstrapSelectsRowZero(t *testing.T) {
	st := store.New(nil)
	// Row 0 is hidden: bootstrap still selects it.
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "hidden"},
		{ID: "shown", Visible: true},
	}))

	st.SelectNextVisibleRow()

	testutil.AssertSelectionUnique(t, st.Nodes(), "hidden")
}

func TestSelection_MovesAndStaysUnique(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
		{ID: "c", Visible: true},
	}))

	var got []*model.Node
	st.Listen(store.EventSelectionChanged, func(nodes []*model.Node) { got = nodes })

	st.SelectItemByID("a")
	st.SelectItemByID("c")

	testutil.AssertSelectionUnique(t, st.Nodes(), "c")
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("selection event payload = %v, want [c]", got)
	}
	if st.Get("a").Selected {
		t.Error("previous selection still marked selected")
	}
}

func TestSelectItemByID_SameSelectionIsNoop(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))
	st.SelectItemByID("a")

	fired := 0
	st.Listen(store.EventSelectionChanged, func([]*model.Node) { fired++ })
	st.SelectItemByID("a")

	if fired != 0 {
		t.Errorf("selection event fired %d times for a no-op reselect", fired)
	}
}

func TestSelectItemByID_UnknownKeepsSelection(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))
	st.SelectItemByID("a")

	st.SelectItemByID("nope")

	testutil.AssertSelectionUnique(t, st.Nodes(), "a")
}

func TestNavigation_SkipsHiddenRows(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b"}, // hidden
		{ID: "c", Visible: true},
	}))
	st.SelectItemByID("a")

	st.SelectNextVisibleRow()
	testutil.AssertSelectionUnique(t, st.Nodes(), "c")

	st.SelectPrevVisibleRow()
	testutil.AssertSelectionUnique(t, st.Nodes(), "a")
}

func TestNavigation_NoopAtBoundaries(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
	}))
	st.SelectItemByID("a")

	st.SelectPrevVisibleRow()
	testutil.AssertSelectionUnique(t, st.Nodes(), "a")

	st.SelectItemByID("b")
	st.SelectNextVisibleRow()
	testutil.AssertSelectionUnique(t, st.Nodes(), "b")
}

func TestNavigation_EmptyStore(t *testing.T) {
	st := store.New(nil)
	st.Init(nil)

	st.SelectNextVisibleRow()
	st.SelectPrevVisibleRow()

	if st.Selected() != nil {
		t.Error("selection in an empty store")
	}
}

// Expanding a root shows its direct children only. A collapsed child keeps
// its own subtree hidden until it is expanded itself.
func TestExpand_DirectChildrenOnly(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "root", Visible: true},
		{ID: "root/a", ParentID: "root"},
		{ID: "root/a/x", ParentID: "root/a", Leaf: true},
		{ID: "root/b", ParentID: "root", Leaf: true},
	}))

	expandNotified := 0
	st.ListenNode("root", func(*model.Node) { expandNotified++ })

	st.ExpandItemByID("root")

	if !st.Get("root").Expanded {
		t.Error("root not marked expanded")
	}
	if expandNotified != 1 {
		t.Errorf("expand notified root %d times, want 1", expandNotified)
	}
	testutil.AssertVisible(t, st.Get, true, "root/a", "root/b")
	testutil.AssertVisible(t, st.Get, false, "root/a/x")

	st.ExpandItemByID("root/a")
	testutil.AssertVisible(t, st.Get, true, "root/a/x")
}

func TestExpand_Noops(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "leaf", Visible: true, Leaf: true},
		{ID: "open", Visible: true, Expanded: true},
		{ID: "open/kid", ParentID: "open", Visible: true},
		{ID: "childless", Visible: true},
	}))

	st.ExpandItemByID("leaf")
	if st.Get("leaf").Expanded {
		t.Error("leaf marked expanded")
	}

	notified := false
	st.ListenNode("open/kid", func(*model.Node) { notified = true })
	st.ExpandItemByID("open")
	if notified {
		t.Error("re-expanding an expanded node touched its children")
	}

	st.ExpandItemByID("childless")
	if st.Get("childless").Expanded {
		t.Error("childless branch marked expanded")
	}

	st.ExpandItemByID("ghost") // unknown: ignored
}

func TestCollapse_HidesChildrenKeepsNestedExpansion(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "root", Visible: true, Expanded: true},
		{ID: "root/a", ParentID: "root", Visible: true, Expanded: true},
		{ID: "root/a/x", ParentID: "root/a", Visible: true, Leaf: true},
	}))

	st.CollapseItemByID("root")

	testutil.AssertVisible(t, st.Get, false, "root/a")
	if !st.Get("root/a").Expanded {
		t.Error("collapse of root cleared the child's own expansion")
	}
	// root/a/x stays visible in state but unreachable: its nearest visible
	// ancestor is collapsed. Re-expanding root restores the nested view.
	st.ExpandItemByID("root")
	testutil.AssertVisible(t, st.Get, true, "root/a", "root/a/x")
}

func TestCollapse_CollapsedIsNoop(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "root", Visible: true},
		{ID: "root/a", ParentID: "root", Visible: true},
	}))

	st.CollapseItemByID("root")

	testutil.AssertVisible(t, st.Get, true, "root/a")
}

func TestChildrenOf_CachesResultIncludingEmpty(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "root", Visible: true},
		{ID: "root/a", ParentID: "root"},
		{ID: "leaf", Leaf: true},
	}))

	kids := st.ChildrenOf("root")
	if len(kids) != 1 || kids[0].ID != "root/a" {
		t.Fatalf("ChildrenOf(root) = %v", kids)
	}
	if got := st.ChildrenOf("leaf"); got != nil {
		t.Errorf("ChildrenOf(leaf) = %v, want nil", got)
	}
	// Cached: identical on repeat lookup.
	if again := st.ChildrenOf("root"); len(again) != 1 || again[0] != kids[0] {
		t.Error("repeat lookup returned a different child list")
	}
	if st.ChildrenOf("leaf") != nil {
		t.Error("empty result was not cached as empty")
	}

	// Adding an unrelated subtree leaves cached answers alone.
	st.AddModules([][]*model.Node{
		testutil.BuildNodes([]testutil.NodeSpec{{ID: "other", Visible: true}}),
	})
	if after := st.ChildrenOf("root"); len(after) != 1 || after[0] != kids[0] {
		t.Error("unrelated AddModules changed a cached child list")
	}
}

func TestUpdateItem_NotifyGatedOnFingerprintAndVisibility(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "shown", Visible: true},
		{ID: "hidden"},
	}))

	notified := map[string]int{}
	st.ListenNode("shown", func(n *model.Node) { notified[n.ID]++ })
	st.ListenNode("hidden", func(n *model.Node) { notified[n.ID]++ })

	st.UpdateItem("shown", store.Patch{Expanded: ptr(true)})
	if notified["shown"] != 1 {
		t.Errorf("visible node with changed state: %d notifications, want 1", notified["shown"])
	}

	// Same value again: fingerprint unchanged, no notification.
	st.UpdateItem("shown", store.Patch{Expanded: ptr(true)})
	st.UpdateItem("shown", store.Patch{Visible: ptr(true)})
	if notified["shown"] != 1 {
		t.Errorf("no-op patch notified: %d, want 1", notified["shown"])
	}

	// Hidden node: state changes, nobody is told.
	st.UpdateItem("hidden", store.Patch{Expanded: ptr(true)})
	if notified["hidden"] != 0 {
		t.Errorf("hidden node notified %d times, want 0", notified["hidden"])
	}

	// Becoming visible is itself a fingerprint change on a now-visible node.
	st.UpdateItem("hidden", store.Patch{Visible: ptr(true)})
	if notified["hidden"] != 1 {
		t.Errorf("unhide notified %d times, want 1", notified["hidden"])
	}
}

func TestUpdateItem_UnknownIgnored(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))

	st.UpdateItem("ghost", store.Patch{Expanded: ptr(true)})

	if st.Get("a").Expanded {
		t.Error("unrelated node mutated")
	}
}

func TestScore_PersistsAndReplays(t *testing.T) {
	scores := store.NewMemScores()

	st := store.New(scores)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
	}))
	st.SelectItemByID("a")
	st.ScoreSelectedItem("split")

	if n := st.Get("a"); n.ScoreKey != "split" {
		t.Fatalf("score = %q, want %q", n.ScoreKey, "split")
	}

	// A second store over the same backing replays the score.
	st2 := store.New(scores)
	st2.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
	}))
	if n := st2.Get("a"); n.ScoreKey != "split" {
		t.Errorf("replayed score = %q, want %q", n.ScoreKey, "split")
	}
	if n := st2.Get("b"); n.ScoreKey != "" {
		t.Errorf("unscored node gained score %q", n.ScoreKey)
	}
}

func TestScoreReplay_DoesNotWriteBack(t *testing.T) {
	backing := store.NewMemScores()
	if err := backing.Put(context.Background(), "a", "keep"); err != nil {
		t.Fatal(err)
	}
	counting := &countingScores{ScoreStore: backing}

	st := store.New(counting)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))

	if st.Get("a").ScoreKey != "keep" {
		t.Fatalf("score not replayed")
	}
	if counting.puts != 0 {
		t.Errorf("replay wrote %d entries back to the score store", counting.puts)
	}
}

func TestScoreReplay_SkipsUnknownAndEmpty(t *testing.T) {
	backing := store.NewMemScores()
	_ = backing.Put(context.Background(), "ghost", "keep")
	_ = backing.Put(context.Background(), "a", "")

	st := store.New(backing)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))

	if got := st.Get("a").ScoreKey; got != "" {
		t.Errorf("empty persisted score applied as %q", got)
	}
}

func TestScoreStoreFailures_AreSwallowed(t *testing.T) {
	st := store.New(failingScores{})
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))
	st.SelectItemByID("a")

	st.ScoreSelectedItem("remove")

	// The in-memory state wins even when the disk write failed.
	if got := st.Get("a").ScoreKey; got != "remove" {
		t.Errorf("score = %q, want %q", got, "remove")
	}
}

func TestEventScoreChanged_FiresOnlyForSelection(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
	}))
	st.SelectItemByID("a")

	fired := 0
	st.Listen(store.EventScoreChanged, func([]*model.Node) { fired++ })

	st.UpdateItem("b", store.Patch{ScoreKey: ptr("keep")})
	if fired != 0 {
		t.Errorf("score event fired for a non-selected node")
	}

	st.ScoreSelectedItem("lazy")
	if fired != 1 {
		t.Errorf("score event fired %d times for the selection, want 1", fired)
	}

	// Same score again: no change, no event, no write.
	st.ScoreSelectedItem("lazy")
	if fired != 1 {
		t.Errorf("score event fired again on an unchanged score")
	}
}

func TestScoreSelectedItem_NoSelectionIsNoop(t *testing.T) {
	counting := &countingScores{ScoreStore: store.NewMemScores()}
	st := store.New(counting)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "a", Visible: true}}))

	st.ScoreSelectedItem("keep")

	if counting.puts != 0 {
		t.Error("score written without a selection")
	}
}

func TestAddModules_AppendsAndEmitsRoots(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "first", Visible: true},
	}))

	var roots []*model.Node
	st.Listen(store.EventModulesAdded, func(nodes []*model.Node) { roots = nodes })

	st.AddModules([][]*model.Node{
		testutil.BuildNodes([]testutil.NodeSpec{
			{ID: "second", Visible: true},
			{ID: "second/a", ParentID: "second"},
		}),
		testutil.BuildNodes([]testutil.NodeSpec{
			{ID: "third", Visible: true},
		}),
	})

	if st.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", st.Len())
	}
	if len(roots) != 2 || roots[0].ID != "second" || roots[1].ID != "third" {
		t.Errorf("emitted roots = %v, want [second third]", roots)
	}
	// Rows stay contiguous across the append.
	for i, n := range st.Nodes() {
		if n.Row != i {
			t.Errorf("node %q row = %d, want %d", n.ID, n.Row, i)
		}
	}
}

func TestAddModules_ReplaysScoresForNewNodes(t *testing.T) {
	backing := store.NewMemScores()
	_ = backing.Put(context.Background(), "late", "vendor")

	st := store.New(backing)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{{ID: "early", Visible: true}}))

	st.AddModules([][]*model.Node{
		testutil.BuildNodes([]testutil.NodeSpec{{ID: "late", Visible: true}}),
	})

	if got := st.Get("late").ScoreKey; got != "vendor" {
		t.Errorf("late-added node score = %q, want %q", got, "vendor")
	}
}

func TestListen_ReplacesPreviousListener(t *testing.T) {
	st := store.New(nil)
	st.Init(testutil.BuildNodes([]testutil.NodeSpec{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
	}))

	first, second := 0, 0
	st.Listen(store.EventSelectionChanged, func([]*model.Node) { first++ })
	st.Listen(store.EventSelectionChanged, func([]*model.Node) { second++ })

	st.SelectItemByID("a")

	if first != 0 || second != 1 {
		t.Errorf("listener calls = (%d, %d), want (0, 1)", first, second)
	}

	st.Listen(store.EventSelectionChanged, nil) // rejected, keeps second
	st.SelectItemByID("b")
	if second != 2 {
		t.Errorf("nil Listen displaced the registered listener")
	}
}
