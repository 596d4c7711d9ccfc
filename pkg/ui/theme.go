package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the color palette and pre-computed styles for the tree view.
// Styles are created once at startup instead of per-frame.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor

	// Score colors, keyed by score key.
	Keep   lipgloss.AdaptiveColor
	Split  lipgloss.AdaptiveColor
	Lazy   lipgloss.AdaptiveColor
	Vendor lipgloss.AdaptiveColor
	Remove lipgloss.AdaptiveColor

	// Styles
	Base       lipgloss.Style
	Selected   lipgloss.Style
	Header     lipgloss.Style
	StatusBar  lipgloss.Style
	MutedText  lipgloss.Style
	SizeText   lipgloss.Style
	BranchText lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Dimmed text
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},

		Keep:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green
		Split:  lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		Lazy:   lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		Vendor: lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"}, // Blue
		Remove: lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}, // Red
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = r.NewStyle().Foreground(t.Secondary)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SizeText = r.NewStyle().Foreground(t.Secondary)
	t.BranchText = r.NewStyle().Foreground(t.Muted)

	return t
}

// ScoreColor returns the badge color for a score key.
func (t Theme) ScoreColor(scoreKey string) lipgloss.AdaptiveColor {
	switch scoreKey {
	case "keep":
		return t.Keep
	case "split":
		return t.Split
	case "lazy":
		return t.Lazy
	case "vendor":
		return t.Vendor
	case "remove":
		return t.Remove
	default:
		return t.Muted
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
