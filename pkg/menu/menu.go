// Package menu draws a searchable pick list of history entries on top of a
// tcell screen.
package menu

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Action is the outcome of a key press handled by the menu
type Action int

const (
	// None means the menu is still open
	None Action = iota
	// Chosen means an entry was picked
	Chosen
	// Cancelled means the menu was closed without a choice
	Cancelled
)

// Menu lists entries, newest first, narrowed by a case-insensitive substring
// query typed while it is open.
type Menu struct {
	screen  tcell.Screen
	overlay *OverlayManager
	title   string

	entries []string
	matches []int
	query   []rune

	selected int
	offset   int
	visible  bool

	x, y          int
	width, height int
}

// NewMenu creates a hidden menu drawing on screen
func NewMenu(title string, screen tcell.Screen) *Menu {
	return &Menu{
		title:   title,
		screen:  screen,
		overlay: NewOverlayManager(screen),
	}
}

// SetEntries replaces the listed entries and clears the query
func (m *Menu) SetEntries(entries []string) {
	m.entries = entries
	m.query = m.query[:0]
	m.filter()
}

// Show saves the screen and displays the menu
func (m *Menu) Show() {
	m.overlay.SaveScreen()
	m.visible = true
	m.Draw()
}

// Hide closes the menu and restores the screen underneath
func (m *Menu) Hide() {
	if !m.visible {
		return
	}
	m.visible = false
	m.overlay.RestoreScreen()
	m.overlay.Clear()
}

// IsVisible returns whether the menu is visible
func (m *Menu) IsVisible() bool {
	return m.visible
}

// Query returns the current search text
func (m *Menu) Query() string {
	return string(m.query)
}

// Matches returns the entries matching the query, newest first
func (m *Menu) Matches() []string {
	result := make([]string, len(m.matches))
	for i, idx := range m.matches {
		result[i] = m.entries[idx]
	}
	return result
}

// Selected returns the highlighted entry
func (m *Menu) Selected() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.matches) {
		return "", false
	}
	return m.entries[m.matches[m.selected]], true
}

// HandleKey processes one key press. The returned string is the picked entry
// when the action is Chosen.
func (m *Menu) HandleKey(ev *tcell.EventKey) (Action, string) {
	if !m.visible {
		return None, ""
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlG, tcell.KeyCtrlC:
		m.Hide()
		return Cancelled, ""
	case tcell.KeyEnter:
		choice, ok := m.Selected()
		m.Hide()
		if !ok {
			return Cancelled, ""
		}
		return Chosen, choice
	case tcell.KeyUp, tcell.KeyCtrlP:
		m.moveSelection(-1)
	case tcell.KeyDown, tcell.KeyCtrlN, tcell.KeyCtrlR:
		m.moveSelection(1)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
			m.filter()
		}
	case tcell.KeyCtrlU:
		m.query = m.query[:0]
		m.filter()
	case tcell.KeyRune:
		m.query = append(m.query, ev.Rune())
		m.filter()
	}

	m.Draw()
	return None, ""
}

func (m *Menu) filter() {
	needle := strings.ToLower(string(m.query))
	m.matches = m.matches[:0]
	for i, entry := range m.entries {
		if strings.Contains(strings.ToLower(entry), needle) {
			m.matches = append(m.matches, i)
		}
	}
	m.selected = 0
	m.offset = 0
}

// moveSelection moves the highlight without wrapping
func (m *Menu) moveSelection(direction int) {
	next := m.selected + direction
	if next < 0 || next >= len(m.matches) {
		return
	}
	m.selected = next
}

// Draw renders the menu on screen
func (m *Menu) Draw() {
	if !m.visible {
		return
	}
	m.layout()
	if m.width < 4 || m.height < 4 {
		return
	}

	style := tcell.StyleDefault.Background(tcell.ColorDarkBlue).Foreground(tcell.ColorWhite)
	selectedStyle := tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)

	m.drawBorder(style)
	m.drawText(m.x+2, m.y, " "+m.title+" ", style.Bold(true))
	m.drawText(m.x+1, m.y+1, "search: "+string(m.query), style)

	rows := m.height - 3
	if m.selected < m.offset {
		m.offset = m.selected
	} else if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}

	for row := 0; row < rows; row++ {
		i := m.offset + row
		if i >= len(m.matches) {
			break
		}
		itemStyle := style
		if i == m.selected {
			itemStyle = selectedStyle
			for x := m.x + 1; x < m.x+m.width-1; x++ {
				m.screen.SetContent(x, m.y+2+row, ' ', nil, itemStyle)
			}
		}
		label := strings.ReplaceAll(m.entries[m.matches[i]], "\n", "↵")
		m.drawText(m.x+1, m.y+2+row, label, itemStyle)
	}

	m.screen.Show()
}

// layout sizes the menu to its matches, centered on the screen
func (m *Menu) layout() {
	screenWidth, screenHeight := m.screen.Size()
	m.width = min(screenWidth, 60)
	m.height = min(screenHeight, max(len(m.matches), 1)+3)
	m.x = (screenWidth - m.width) / 2
	m.y = (screenHeight - m.height) / 2
}

func (m *Menu) drawBorder(style tcell.Style) {
	right, bottom := m.x+m.width-1, m.y+m.height-1

	m.screen.SetContent(m.x, m.y, '┌', nil, style)
	m.screen.SetContent(right, m.y, '┐', nil, style)
	m.screen.SetContent(m.x, bottom, '└', nil, style)
	m.screen.SetContent(right, bottom, '┘', nil, style)
	for x := m.x + 1; x < right; x++ {
		m.screen.SetContent(x, m.y, '─', nil, style)
		m.screen.SetContent(x, bottom, '─', nil, style)
	}

	for y := m.y + 1; y < bottom; y++ {
		m.screen.SetContent(m.x, y, '│', nil, style)
		m.screen.SetContent(right, y, '│', nil, style)
		for x := m.x + 1; x < right; x++ {
			m.screen.SetContent(x, y, ' ', nil, style)
		}
	}
}

// drawText draws text from x, clipped at the right border
func (m *Menu) drawText(x, y int, text string, style tcell.Style) {
	limit := m.x + m.width - 1
	for _, ch := range text {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		if x+w > limit {
			return
		}
		m.screen.SetContent(x, y, ch, nil, style)
		x += w
	}
}
