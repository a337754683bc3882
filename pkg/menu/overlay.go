package menu

import (
	"github.com/gdamore/tcell/v2"
)

// OverlayManager keeps a copy of the cells covered by the menu
type OverlayManager struct {
	screen tcell.Screen
	saved  [][]savedCell
}

type savedCell struct {
	mainc rune
	combc []rune
	style tcell.Style
}

// NewOverlayManager creates an overlay manager for screen
func NewOverlayManager(screen tcell.Screen) *OverlayManager {
	return &OverlayManager{screen: screen}
}

// SaveScreen copies the current screen content
func (om *OverlayManager) SaveScreen() {
	width, height := om.screen.Size()
	om.saved = make([][]savedCell, height)
	for y := range om.saved {
		om.saved[y] = make([]savedCell, width)
		for x := range om.saved[y] {
			mainc, combc, style, _ := om.screen.GetContent(x, y)
			om.saved[y][x] = savedCell{mainc: mainc, combc: combc, style: style}
		}
	}
}

// RestoreScreen puts back the saved content. Cells outside the current
// screen size are dropped.
func (om *OverlayManager) RestoreScreen() {
	if om.saved == nil {
		return
	}

	width, height := om.screen.Size()
	for y := 0; y < len(om.saved) && y < height; y++ {
		for x := 0; x < len(om.saved[y]) && x < width; x++ {
			cell := om.saved[y][x]
			om.screen.SetContent(x, y, cell.mainc, cell.combc, cell.style)
		}
	}
	om.screen.Show()
}

// Clear drops the saved content
func (om *OverlayManager) Clear() {
	om.saved = nil
}
