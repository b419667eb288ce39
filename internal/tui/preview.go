package tui

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/yargnad/The-Crystalizer/internal/render"
)

// refreshPreview re-renders the working set into the preview pane and
// scrolls to the exchange under the cursor. Collapsed exchanges show one
// line per side.
func (m *model) refreshPreview() {
	w := m.geometry().preview
	content, focusLine := render.Exchanges(m.ctrl.WorkingSet(), render.Options{
		Focus:   m.cursor,
		Width:   w,
		Preview: w - 4,
		Marks:   true,
	})
	m.preview.SetContent(content)
	if focusLine > 0 {
		m.preview.SetYOffset(focusLine)
	} else {
		m.preview.GotoTop()
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
