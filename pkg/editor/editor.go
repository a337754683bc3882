// Package editor provides a single line editor on a tcell screen with
// up/down recall backed by a history.History.
package editor

import (
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"linehist/pkg/history"
	"linehist/pkg/menu"
)

// ErrInterrupted is returned by ReadLine when the user presses Ctrl-C
var ErrInterrupted = errors.New("interrupted")

// newlineGlyph stands in for embedded newlines of recalled multi-line entries
const newlineGlyph = '↵'

// LineEditor reads lines from a tcell screen. The prompt sits on the bottom
// row and printed output scrolls above it. It only reads the history; the
// caller decides what gets added.
type LineEditor struct {
	screen  tcell.Screen
	history *history.History
	prompt  string
	style   tcell.Style

	buffer []rune
	cursor int

	// recall is 0 while editing the draft, n while showing the n-th newest entry
	recall int
	draft  []rune

	output []string

	// search is the Ctrl-R pick list
	search *menu.Menu
}

// New creates a line editor drawing on screen. h may be nil to disable recall.
func New(screen tcell.Screen, h *history.History, prompt string) *LineEditor {
	return &LineEditor{
		screen:  screen,
		history: h,
		prompt:  prompt,
		style:   tcell.StyleDefault,
		search:  menu.NewMenu("history", screen),
	}
}

// SetPrompt changes the prompt shown before the input
func (e *LineEditor) SetPrompt(prompt string) {
	e.prompt = prompt
}

// Println prints a line of output above the prompt
func (e *LineEditor) Println(line string) {
	e.output = append(e.output, strings.Split(line, "\n")...)
	_, height := e.screen.Size()
	if keep := max(height-1, 0); len(e.output) > keep {
		e.output = append(e.output[:0], e.output[len(e.output)-keep:]...)
	}
	e.draw()
}

// ReadLine blocks until a line is accepted with Enter. Ctrl-D on an empty
// line, a finalized screen and an interrupt event posted to the screen return
// io.EOF; Ctrl-C returns ErrInterrupted.
func (e *LineEditor) ReadLine() (string, error) {
	e.buffer = e.buffer[:0]
	e.cursor = 0
	e.recall = 0
	e.draft = nil
	e.search.Hide()
	e.draw()

	for {
		ev := e.screen.PollEvent()
		if ev == nil {
			return "", io.EOF
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			line, done, err := e.handleKey(ev)
			if err != nil || done {
				return line, err
			}
		case *tcell.EventResize:
			e.screen.Sync()
		case *tcell.EventInterrupt:
			return "", io.EOF
		}
		e.draw()
	}
}

// handleKey applies one key press. done is set once a line is accepted.
func (e *LineEditor) handleKey(ev *tcell.EventKey) (string, bool, error) {
	if e.search.IsVisible() {
		if action, choice := e.search.HandleKey(ev); action == menu.Chosen {
			e.recall = 0
			e.setBuffer([]rune(choice))
		}
		return "", false, nil
	}

	switch ev.Key() {
	case tcell.KeyEnter:
		line := string(e.buffer)
		e.buffer = e.buffer[:0]
		e.cursor = 0
		e.Println(e.prompt + line)
		return line, true, nil
	case tcell.KeyCtrlC:
		return "", false, ErrInterrupted
	case tcell.KeyCtrlD:
		if len(e.buffer) == 0 {
			return "", false, io.EOF
		}
		e.deleteForward()
	case tcell.KeyUp, tcell.KeyCtrlP:
		e.recallOlder()
	case tcell.KeyDown, tcell.KeyCtrlN:
		e.recallNewer()
	case tcell.KeyCtrlR:
		e.openSearch()
	case tcell.KeyLeft, tcell.KeyCtrlB:
		if e.cursor > 0 {
			e.cursor--
		}
	case tcell.KeyRight, tcell.KeyCtrlF:
		if e.cursor < len(e.buffer) {
			e.cursor++
		}
	case tcell.KeyHome, tcell.KeyCtrlA:
		e.cursor = 0
	case tcell.KeyEnd, tcell.KeyCtrlE:
		e.cursor = len(e.buffer)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if e.cursor > 0 {
			e.buffer = append(e.buffer[:e.cursor-1], e.buffer[e.cursor:]...)
			e.cursor--
		}
	case tcell.KeyDelete:
		e.deleteForward()
	case tcell.KeyCtrlU:
		e.buffer = append(e.buffer[:0], e.buffer[e.cursor:]...)
		e.cursor = 0
	case tcell.KeyCtrlK:
		e.buffer = e.buffer[:e.cursor]
	case tcell.KeyCtrlW:
		e.deleteWordBackward()
	case tcell.KeyRune:
		e.insert(ev.Rune())
	}
	return "", false, nil
}

func (e *LineEditor) insert(r rune) {
	e.buffer = append(e.buffer, 0)
	copy(e.buffer[e.cursor+1:], e.buffer[e.cursor:])
	e.buffer[e.cursor] = r
	e.cursor++
}

func (e *LineEditor) deleteForward() {
	if e.cursor < len(e.buffer) {
		e.buffer = append(e.buffer[:e.cursor], e.buffer[e.cursor+1:]...)
	}
}

func (e *LineEditor) deleteWordBackward() {
	start := e.cursor
	for start > 0 && unicode.IsSpace(e.buffer[start-1]) {
		start--
	}
	for start > 0 && !unicode.IsSpace(e.buffer[start-1]) {
		start--
	}
	e.buffer = append(e.buffer[:start], e.buffer[e.cursor:]...)
	e.cursor = start
}

func (e *LineEditor) recallOlder() {
	if e.history == nil || e.recall >= e.history.Len() {
		return
	}
	if e.recall == 0 {
		e.draft = append([]rune(nil), e.buffer...)
	}
	e.recall++
	e.showRecalled()
}

func (e *LineEditor) recallNewer() {
	if e.recall == 0 {
		return
	}
	e.recall--
	if e.recall == 0 {
		e.setBuffer(e.draft)
		return
	}
	e.showRecalled()
}

func (e *LineEditor) showRecalled() {
	entries := e.history.Contents()
	e.setBuffer([]rune(entries[len(entries)-e.recall]))
}

// openSearch lists the history newest first for picking
func (e *LineEditor) openSearch() {
	if e.history == nil || e.history.Len() == 0 {
		return
	}
	e.search.SetEntries(e.history.Newest(e.history.Len()))
	e.search.Show()
}

func (e *LineEditor) setBuffer(text []rune) {
	e.buffer = append(e.buffer[:0], text...)
	e.cursor = len(e.buffer)
}

// draw repaints the output area and the prompt line
func (e *LineEditor) draw() {
	e.screen.Clear()
	width, height := e.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}

	first := max(len(e.output)-(height-1), 0)
	for row, line := range e.output[first:] {
		e.drawText(0, row, []rune(line), 0, width)
	}

	line := append([]rune(e.prompt), e.buffer...)
	cursorCol := runewidth.StringWidth(e.prompt) + runesWidth(e.buffer[:e.cursor])
	shift := 0
	if cursorCol >= width {
		shift = cursorCol - width + 1
	}
	e.drawText(0, height-1, line, shift, width)
	e.screen.ShowCursor(cursorCol-shift, height-1)
	e.screen.Show()

	e.search.Draw()
}

// drawText draws text on row y skipping the first shift columns
func (e *LineEditor) drawText(x, y int, text []rune, shift, width int) {
	col := x - shift
	for _, r := range text {
		if r == '\n' {
			r = newlineGlyph
		}
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col >= width {
			return
		}
		if col >= 0 {
			e.screen.SetContent(col, y, r, nil, e.style)
		}
		col += w
	}
}

func runesWidth(runes []rune) int {
	width := 0
	for _, r := range runes {
		if r == '\n' {
			r = newlineGlyph
		}
		width += runewidth.RuneWidth(r)
	}
	return width
}
