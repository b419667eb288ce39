package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/yargnad/The-Crystalizer/internal/merge"
)

// linesPerItem is the number of terminal lines each exchange occupies.
const linesPerItem = 2

// renderList renders the left panel: the working set with scrolling.
func (m model) renderList(width, height int) string {
	set := m.ctrl.WorkingSet()
	if len(set) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("Nothing to prune. Merge the queue first.")
	}

	var lines []string
	for i, x := range set {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatExchangeLine(x, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatExchangeLine formats one exchange as two lines:
//
//	line 1: [>] [x] persona  MM-DD HH:MM
//	line 2:    user text (dimmed, or struck through when dropped)
func formatExchangeLine(x merge.Exchange, width int, current bool) []string {
	mark := styleListDropped.Render("[ ]")
	if x.Selected {
		mark = styleKept.Render("[x]")
	}

	when := "--"
	if x.Timestamp > 0 {
		when = time.UnixMilli(x.Timestamp).Format("01-02 15:04")
	}

	name := x.SourcePersonaName
	nameMax := width - 2 - 4 - len(when) - 2
	if nameMax < 0 {
		nameMax = 0
	}
	if runewidth.StringWidth(name) > nameMax {
		name = runewidth.Truncate(name, nameMax, "")
	}

	line1 := fmt.Sprintf("%s %s %s", mark, personaStyle(x.ColorIndex).Render(name), when)
	if current {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	text := x.UserText
	if text == "" {
		text = x.AssistantText
	}
	text = strings.Join(strings.Fields(text), " ")
	textMax := width - 4
	if textMax < 0 {
		textMax = 0
	}
	if runewidth.StringWidth(text) > textMax {
		text = runewidth.Truncate(text, textMax, "")
	}
	style := styleListNormal
	if !x.Selected {
		style = styleListDropped
	}
	line2 := "    " + style.Render(text)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
