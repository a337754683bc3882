package menu

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func newTestScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init() error = %v", err)
	}
	screen.SetSize(width, height)
	t.Cleanup(screen.Fini)
	return screen
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func typeQuery(m *Menu, text string) {
	for _, r := range text {
		m.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
}

func screenText(screen tcell.SimulationScreen) string {
	cells, width, _ := screen.GetContents()
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 && i%width == 0 {
			b.WriteByte('\n')
		}
		if len(cell.Runes) == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(cell.Runes[0])
	}
	return b.String()
}

func TestMenu_Filter(t *testing.T) {
	screen := newTestScreen(t, 40, 10)
	m := NewMenu("history", screen)
	m.SetEntries([]string{"git push", "make test", "git status", "ls"})
	m.Show()

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"git push", "make test", "git status", "ls"}},
		{"git", []string{"git push", "git status"}},
		{"GIT S", []string{"git status"}},
		{"nothing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m.HandleKey(key(tcell.KeyCtrlU))
			typeQuery(m, tt.query)
			if m.Query() != tt.query {
				t.Errorf("Query() = %q, want %q", m.Query(), tt.query)
			}
			if got := m.Matches(); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Matches() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMenu_Choose(t *testing.T) {
	screen := newTestScreen(t, 40, 10)
	m := NewMenu("history", screen)
	m.SetEntries([]string{"third", "second", "first"})
	m.Show()

	m.HandleKey(key(tcell.KeyDown))
	m.HandleKey(key(tcell.KeyCtrlR))
	// no wrap past the oldest entry
	m.HandleKey(key(tcell.KeyDown))
	m.HandleKey(key(tcell.KeyUp))

	action, choice := m.HandleKey(key(tcell.KeyEnter))
	if action != Chosen || choice != "second" {
		t.Errorf("HandleKey(Enter) = %v, %q, want Chosen, second", action, choice)
	}
	if m.IsVisible() {
		t.Error("menu should be hidden after a choice")
	}
}

func TestMenu_Cancel(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Menu)
		key   tcell.Key
	}{
		{"escape", func(m *Menu) {}, tcell.KeyEscape},
		{"ctrl-g", func(m *Menu) {}, tcell.KeyCtrlG},
		{"enter without matches", func(m *Menu) { typeQuery(m, "zzz") }, tcell.KeyEnter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := newTestScreen(t, 40, 10)
			m := NewMenu("history", screen)
			m.SetEntries([]string{"a", "b"})
			m.Show()
			tt.setup(m)

			if action, _ := m.HandleKey(key(tt.key)); action != Cancelled {
				t.Errorf("HandleKey() = %v, want Cancelled", action)
			}
			if m.IsVisible() {
				t.Error("menu should be hidden")
			}
		})
	}
}

func TestMenu_HiddenIgnoresKeys(t *testing.T) {
	screen := newTestScreen(t, 40, 10)
	m := NewMenu("history", screen)
	m.SetEntries([]string{"a"})

	if action, _ := m.HandleKey(key(tcell.KeyEnter)); action != None {
		t.Errorf("hidden HandleKey() = %v, want None", action)
	}
}

func TestMenu_Draw(t *testing.T) {
	screen := newTestScreen(t, 30, 8)
	m := NewMenu("history", screen)
	m.SetEntries([]string{"for x\ndo y", "echo hi"})
	m.Show()
	typeQuery(m, "o")

	text := screenText(screen)
	for _, want := range []string{"history", "search: o", "for x↵do y", "echo hi", "┌", "┘"} {
		if !strings.Contains(text, want) {
			t.Errorf("screen does not contain %q:\n%s", want, text)
		}
	}
}

func TestMenu_ScrollsToSelection(t *testing.T) {
	screen := newTestScreen(t, 30, 6)
	m := NewMenu("history", screen)
	m.SetEntries([]string{"e1", "e2", "e3", "e4", "e5", "e6"})
	m.Show()

	// three rows fit between the search line and the bottom border
	for i := 0; i < 4; i++ {
		m.HandleKey(key(tcell.KeyDown))
	}
	if choice, _ := m.Selected(); choice != "e5" {
		t.Fatalf("Selected() = %q, want e5", choice)
	}

	text := screenText(screen)
	if !strings.Contains(text, "e5") || strings.Contains(text, "e1") {
		t.Errorf("selection not scrolled into view:\n%s", text)
	}
}

func TestOverlay_RestoresScreen(t *testing.T) {
	screen := newTestScreen(t, 20, 6)
	for x, r := range "underneath" {
		screen.SetContent(x, 2, r, nil, tcell.StyleDefault)
	}
	screen.Show()

	m := NewMenu("history", screen)
	m.SetEntries([]string{"covering entry"})
	m.Show()
	if strings.Contains(screenText(screen), "underneath") {
		t.Fatal("menu should cover the screen")
	}

	m.Hide()
	if !strings.Contains(screenText(screen), "underneath") {
		t.Errorf("screen not restored:\n%s", screenText(screen))
	}
}
