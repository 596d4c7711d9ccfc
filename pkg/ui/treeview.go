// Package ui renders the bundlescope tree view. It is a thin subscriber:
// all tree state lives in the store, and the view repaints from it.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/bundlescope/pkg/config"
	"github.com/vanderheijden86/bundlescope/pkg/debug"
	"github.com/vanderheijden86/bundlescope/pkg/loader"
	"github.com/vanderheijden86/bundlescope/pkg/model"
	"github.com/vanderheijden86/bundlescope/pkg/store"
	"github.com/vanderheijden86/bundlescope/pkg/watcher"
)

// chrome is the number of non-row lines in the view (header + status bar).
const chrome = 2

// manifestChangedMsg signals that the watched stats file was rewritten.
type manifestChangedMsg struct{}

// reloadedMsg carries freshly loaded batches from the manifest.
type reloadedMsg struct {
	batches [][]*model.Node
	err     error
}

// Model is the bubbletea model for the tree view.
type Model struct {
	st    *store.Store
	theme Theme
	cfg   config.Config

	manifestPath string
	watch        *watcher.Watcher
	keys         keyMap

	width  int
	height int
	offset int // first row of the render window, in visible-node order

	// scoreCounts is refreshed by the store's score-changed notification,
	// not recomputed per frame.
	scoreCounts map[string]int

	// dirty collects per-node render notifications between frames.
	dirty map[string]bool

	statusMsg string
}

// NewModel creates the tree view over an initialized store and registers
// its store subscriptions.
func NewModel(st *store.Store, cfg config.Config, manifestPath string) Model {
	m := Model{
		st:           st,
		theme:        DefaultTheme(lipgloss.DefaultRenderer()),
		cfg:          cfg,
		manifestPath: manifestPath,
		keys:         defaultKeyMap(),
		scoreCounts:  make(map[string]int),
		dirty:        make(map[string]bool),
	}

	dirty := m.dirty
	for _, n := range st.Nodes() {
		st.ListenNode(n.ID, func(n *model.Node) {
			dirty[n.ID] = true
		})
	}

	counts := m.scoreCounts
	st.Listen(store.EventScoreChanged, func([]*model.Node) {
		recountScores(st, counts)
	})
	recountScores(st, counts)

	return m
}

// WithWatcher attaches a manifest watcher for live reload.
func (m Model) WithWatcher(w *watcher.Watcher) Model {
	m.watch = w
	return m
}

// Stop releases resources held by the model.
func (m Model) Stop() {
	if m.watch != nil {
		m.watch.Stop()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.cfg.UI.FollowRoot {
		m.st.SelectNextVisibleRow() // bootstrap: selects row 0
	}
	if m.watch == nil {
		return nil
	}
	if err := m.watch.Start(); err != nil {
		debug.Log("manifest watch: %v", err)
		return nil
	}
	return m.waitForChange()
}

// waitForChange blocks on the watcher's change channel.
func (m Model) waitForChange() tea.Cmd {
	ch := m.watch.Changed()
	return func() tea.Msg {
		<-ch
		return manifestChangedMsg{}
	}
}

// reloadManifest re-reads the stats file off the UI goroutine.
func (m Model) reloadManifest() tea.Cmd {
	path := m.manifestPath
	return func() tea.Msg {
		manifest, err := loader.Load(path)
		if err != nil {
			return reloadedMsg{err: err}
		}
		return reloadedMsg{batches: loader.Batches(manifest)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureSelectedVisible()
		return m, nil

	case manifestChangedMsg:
		cmds := []tea.Cmd{m.reloadManifest()}
		if m.watch != nil {
			cmds = append(cmds, m.waitForChange())
		}
		return m, tea.Batch(cmds...)

	case reloadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("reload failed: %v", msg.err)
			return m, nil
		}
		m.applyReload(msg.batches)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// applyReload appends subtrees the store hasn't seen yet. Existing
// subtrees are left alone: nodes are never removed or reparented.
func (m *Model) applyReload(batches [][]*model.Node) {
	var fresh [][]*model.Node
	for _, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		if m.st.Get(batch[0].ID) == nil {
			fresh = append(fresh, batch)
		}
	}
	if len(fresh) == 0 {
		m.statusMsg = "manifest changed, no new modules"
		return
	}

	m.st.AddModules(fresh)

	dirty := m.dirty
	added := 0
	for _, batch := range fresh {
		added += len(batch)
		for _, n := range batch {
			m.st.ListenNode(n.ID, func(n *model.Node) {
				dirty[n.ID] = true
			})
		}
	}
	m.statusMsg = fmt.Sprintf("added %d modules", added)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		m.st.SelectNextVisibleRow()
		m.ensureSelectedVisible()

	case key.Matches(msg, m.keys.Up):
		m.st.SelectPrevVisibleRow()
		m.ensureSelectedVisible()

	case key.Matches(msg, m.keys.Expand):
		m.st.ExpandSelectedItem()

	case key.Matches(msg, m.keys.Collapse):
		m.st.CollapseSelectedItem()

	case key.Matches(msg, m.keys.Score):
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(config.ScoreKeys) {
			m.st.ScoreSelectedItem(config.ScoreKeys[idx])
		}

	case key.Matches(msg, m.keys.ClearScore):
		m.st.ScoreSelectedItem("")

	case key.Matches(msg, m.keys.Yank):
		if sel := m.st.Selected(); sel != nil {
			if err := clipboard.WriteAll(sel.ID); err != nil {
				debug.Log("clipboard: %v", err)
			} else {
				m.statusMsg = "copied " + sel.ID
			}
		}

	case key.Matches(msg, m.keys.Reload):
		return m, m.reloadManifest()
	}

	return m, nil
}

// ensureSelectedVisible scrolls the render window to the selection.
func (m *Model) ensureSelectedVisible() {
	sel := m.st.Selected()
	if sel == nil {
		return
	}
	pos := -1
	for i, n := range m.st.VisibleNodes() {
		if n == sel {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	rows := m.rowCount()
	if pos < m.offset {
		m.offset = pos
	} else if pos >= m.offset+rows {
		m.offset = pos - rows + 1
	}
}

// rowCount returns how many tree rows fit in the current window.
func (m Model) rowCount() int {
	rows := m.height - chrome
	if rows < 1 {
		rows = 1
	}
	return rows
}

// View implements tea.Model. Only the windowed slice of visible nodes is
// rendered, so a frame costs O(window), not O(tree).
func (m Model) View() string {
	visible := m.st.VisibleNodes()

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	rows := m.rowCount()
	start := m.offset
	if start > len(visible) {
		start = len(visible)
	}
	end := start + rows
	if end > len(visible) {
		end = len(visible)
	}

	sel := m.st.Selected()
	for i := start; i < end; i++ {
		n := visible[i]
		line := m.renderNode(n, n == sel)
		// The per-node notifications have been consumed by this repaint.
		delete(m.dirty, n.ID)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderStatusBar(len(visible)))
	return sb.String()
}

func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	title := fmt.Sprintf("bundlescope — %d modules", m.st.Len())
	return m.theme.Header.Width(width).Render(title)
}

// renderNode renders one tree row: indent, expand indicator, name, score
// badge, and size right-aligned.
func (m Model) renderNode(n *model.Node, selected bool) string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	var left strings.Builder

	depth := m.depthOf(n)
	left.WriteString(strings.Repeat("  ", depth))
	left.WriteString(m.theme.BranchText.Render(expandIndicator(n)))
	left.WriteString(" ")

	var right string
	if m.cfg.UI.ShowSizes {
		if s := formatSize(n.Size); s != "" {
			right = m.theme.SizeText.Render(fmt.Sprintf("%10s", s))
		}
	}

	badge := ""
	if n.ScoreKey != "" {
		badge = " " + m.theme.Renderer.NewStyle().
			Foreground(m.theme.ScoreColor(n.ScoreKey)).
			Bold(true).
			Render("["+n.ScoreKey+"]")
	}

	used := lipgloss.Width(left.String()) + lipgloss.Width(badge) + lipgloss.Width(right) + 2
	nameWidth := width - used
	if nameWidth < 5 {
		nameWidth = 5
	}
	name := truncateWidth(n.Name, nameWidth, "…")

	nameStyle := m.theme.Base
	if selected {
		nameStyle = m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Bold(true)
	}
	left.WriteString(nameStyle.Render(name))
	left.WriteString(badge)

	padding := width - lipgloss.Width(left.String()) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	row := left.String() + strings.Repeat(" ", padding) + right

	if selected {
		row = m.theme.Selected.Render(row)
	}
	return row
}

func (m Model) renderStatusBar(visibleCount int) string {
	parts := []string{fmt.Sprintf("%d visible", visibleCount)}

	for _, key := range config.ScoreKeys {
		if c := m.scoreCounts[key]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", key, c))
		}
	}
	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	}
	parts = append(parts, "j/k move · l/h fold · 1-5 score · y yank · q quit")

	return m.theme.StatusBar.Render(" " + strings.Join(parts, "  "))
}

// depthOf walks ParentID links up to a root. Bounded by tree depth, which
// is small for bundler output.
func (m Model) depthOf(n *model.Node) int {
	depth := 0
	for n != nil && n.ParentID != "" {
		n = m.st.Get(n.ParentID)
		depth++
	}
	return depth
}

func expandIndicator(n *model.Node) string {
	switch {
	case n.Leaf:
		return "•"
	case n.Expanded:
		return "▾"
	default:
		return "▸"
	}
}

// recountScores rebuilds the score summary from the node list.
func recountScores(st *store.Store, counts map[string]int) {
	for k := range counts {
		delete(counts, k)
	}
	for _, n := range st.Nodes() {
		if n.ScoreKey != "" {
			counts[n.ScoreKey]++
		}
	}
}
