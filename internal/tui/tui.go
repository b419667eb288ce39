package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yargnad/The-Crystalizer/internal/controller"
)

// model is the prune screen. Every key press is applied to the controller
// synchronously inside Update, so mutations are persisted in press order.
type model struct {
	ctx        context.Context
	ctrl       *controller.Controller
	copy       func(string) error
	cursor     int
	listOffset int
	preview    viewport.Model
	status     string
	statusErr  bool
	width      int
	height     int
	ready      bool
	quitting   bool
}

func newModel(ctx context.Context, ctrl *controller.Controller) model {
	return model{
		ctx:     ctx,
		ctrl:    ctrl,
		copy:    clipboard.WriteAll,
		preview: viewport.New(0, 0),
	}
}

// Run starts the prune TUI and blocks until it exits.
func Run(ctx context.Context, ctrl *controller.Controller) error {
	m := newModel(ctx, ctrl)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		g := m.geometry()
		m.preview = newViewport(g.preview, g.rows)
		m.refreshPreview()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.geometry().rows
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.Toggle):
		m.apply(m.ctrl.ToggleSelection(m.ctx, m.cursor), "")
	case key.Matches(msg, keys.Expand):
		m.apply(m.ctrl.ToggleExpanded(m.ctx, m.cursor), "")
	case key.Matches(msg, keys.SelectAll):
		m.apply(m.ctrl.SelectAll(m.ctx), "All exchanges selected.")
	case key.Matches(msg, keys.DeselectAll):
		m.apply(m.ctrl.DeselectAll(m.ctx), "All exchanges deselected.")
	case key.Matches(msg, keys.Copy):
		m.copyPrompt()
	case key.Matches(msg, keys.PreviewUp):
		m.preview.LineUp(rows / 2)
	case key.Matches(msg, keys.PreviewDn):
		m.preview.LineDown(rows / 2)
	case key.Matches(msg, keys.PageUp):
		m.preview.LineUp(rows)
	case key.Matches(msg, keys.PageDown):
		m.preview.LineDown(rows)
	}
	return m, nil
}

// handleMouse scrolls the list by cursor, selects on click, and forwards
// wheel events over the preview to the viewport.
func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.ready || len(m.ctrl.WorkingSet()) == 0 {
		return m, nil
	}
	region, item := m.hitTest(msg.X, msg.Y)
	wheel := msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown

	switch region {
	case regionList:
		switch {
		case msg.Button == tea.MouseButtonWheelUp:
			m.moveCursor(-1)
		case msg.Button == tea.MouseButtonWheelDown:
			m.moveCursor(1)
		case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			m.moveCursor(item - m.cursor)
		}
	case regionPreview:
		if wheel {
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// moveCursor shifts the cursor by delta, clamped to the working set.
func (m *model) moveCursor(delta int) {
	n := len(m.ctrl.WorkingSet())
	next := min(max(m.cursor+delta, 0), n-1)
	if next < 0 || next == m.cursor {
		return
	}
	m.cursor = next
	m.adjustListScroll(m.geometry().rows)
	m.refreshPreview()
}

// apply records the outcome of a controller mutation and redraws.
func (m *model) apply(err error, ok string) {
	if err != nil {
		m.status, m.statusErr = err.Error(), true
	} else {
		m.status, m.statusErr = ok, false
	}
	m.refreshPreview()
}

func (m *model) copyPrompt() {
	out, err := m.ctrl.Export()
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return
	}
	if err := m.copy(out.Clipboard); err != nil {
		m.status, m.statusErr = "clipboard unavailable: "+err.Error(), true
		return
	}
	m.status, m.statusErr = fmt.Sprintf("Copied prompt for %d exchanges. Run `crys export` to write the transcript.", out.Count), false
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}
	g := m.geometry()

	header := styleTitle.Render(fmt.Sprintf("Prune  %d of %d kept",
		m.ctrl.SelectedCount(), len(m.ctrl.WorkingSet())))

	listPanel := stylePanelBorder.
		Width(g.list).
		Height(g.rows).
		Render(m.renderList(g.list, g.rows))

	m.preview.Width = g.preview
	m.preview.Height = g.rows
	previewPanel := styleActiveBorder.
		Width(g.preview).
		Height(g.rows).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.statusBar())
}

// chromeRows is the header, the status bar and the panel borders.
const chromeRows = 6

// geometry is the panel layout for the current terminal size: a 40/60
// split between list and preview, each at least minPanel cells wide.
type geometry struct {
	list    int
	preview int
	rows    int
}

const minPanel = 20

func (m model) geometry() geometry {
	g := geometry{list: 40, preview: 60, rows: 20}
	if m.width > 0 {
		g.list = max(m.width*2/5-4, minPanel)
		g.preview = max(m.width*3/5-4, minPanel)
	}
	if m.height > 0 {
		g.rows = max(m.height-chromeRows, 5)
	}
	return g
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps a terminal cell to a panel and, inside the list, to the
// working-set index drawn there.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	const top = 2 // header row + top border
	g := m.geometry()
	if y < top || y >= top+g.rows {
		return regionNone, -1
	}
	switch {
	case x >= 1 && x <= g.list:
		return regionList, m.listOffset + (y-top)/linesPerItem
	case x > g.list+2:
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m model) statusBar() string {
	if m.status != "" {
		if m.statusErr {
			return styleError.Render(m.status)
		}
		return styleNotice.Render(m.status)
	}
	var parts []string
	for _, b := range keys.hints() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}
