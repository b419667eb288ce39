package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/yargnad/The-Crystalizer/internal/merge"
)

var (
	// Colors
	colorPrimary   = lipgloss.Color("12")  // bright blue
	colorSecondary = lipgloss.Color("10")  // bright green
	colorDim       = lipgloss.Color("240") // gray
	colorHighlight = lipgloss.Color("11")  // bright yellow
	colorBorder    = lipgloss.Color("238") // dark gray
	colorWarn      = lipgloss.Color("9")   // bright red

	// List items
	styleListSelected = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Bold(true)

	styleListNormal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleListDropped = lipgloss.NewStyle().
				Foreground(colorDim).
				Strikethrough(true)

	styleKept = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Panels
	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	// Header and status bar
	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleNotice = lipgloss.NewStyle().
			Foreground(colorHighlight)

	styleError = lipgloss.NewStyle().
			Foreground(colorWarn)
)

// personaStyle colors a persona name with its queue color.
func personaStyle(colorIndex int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(merge.Color(colorIndex))).Bold(true)
}
