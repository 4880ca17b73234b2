package picker

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thiagokokada/gde-go/internal/logline"
)

func testEntries() []logline.Entry {
	return logline.ParseAll([]string{
		"* aaaaaaa - (HEAD -> main) Third (2024-01-03 10:00:00 +0000) <Ana>",
		"|\\",
		"| * bbbbbbb - Second (2024-01-02 10:00:00 +0000) <Bo>",
		"|/",
		"* ccccccc - First (2024-01-01 10:00:00 +0000) <Ana>",
	})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestPickerSelectsFromAndTo(t *testing.T) {
	t.Parallel()

	m := NewModel(testEntries(), lightPalette)
	m, cmd := press(t, m, "f", "down", "down", "t", "enter")
	if !isQuit(cmd) {
		t.Fatal("enter with two different commits should quit")
	}
	from, to, ok := m.Result()
	if !ok || from != "aaaaaaa" || to != "ccccccc" {
		t.Fatalf("Result() = (%q, %q, %v)", from, to, ok)
	}
}

func TestPickerSkipsDecorations(t *testing.T) {
	t.Parallel()

	m := NewModel(testEntries(), lightPalette)
	wantCursor := []int{2, 4, 0}
	for i, want := range wantCursor {
		m, _ = press(t, m, "j")
		if got := m.nav.Cursor(); got != want {
			t.Fatalf("step %d: cursor = %d, want %d", i, got, want)
		}
	}
	m, _ = press(t, m, "k")
	if got := m.nav.Cursor(); got != 4 {
		t.Fatalf("cursor after up = %d, want 4", got)
	}
}

func TestPickerEnterNotices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []string
		want string
	}{
		{name: "none", keys: []string{"enter"}, want: noticeNone},
		{name: "only_from", keys: []string{"f", "enter"}, want: noticeNoTo},
		{name: "only_to", keys: []string{"t", "enter"}, want: noticeNoFrom},
		{name: "same", keys: []string{"f", "t", "enter"}, want: noticeSame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, cmd := press(t, NewModel(testEntries(), lightPalette), tt.keys...)
			if isQuit(cmd) {
				t.Fatal("picker should not quit")
			}
			if m.notice != tt.want {
				t.Fatalf("notice = %q, want %q", m.notice, tt.want)
			}
			if _, _, ok := m.Result(); ok {
				t.Fatal("Result() should not be ok")
			}
		})
	}
}

func TestPickerEscAborts(t *testing.T) {
	t.Parallel()

	m, cmd := press(t, NewModel(testEntries(), lightPalette), "f", "j", "t", "esc")
	if !isQuit(cmd) {
		t.Fatal("esc should quit")
	}
	if _, _, ok := m.Result(); ok {
		t.Fatal("aborted picker must not return a result")
	}
}

func TestPickerMarks(t *testing.T) {
	t.Parallel()

	m, _ := press(t, NewModel(testEntries(), lightPalette), "f", "t")
	entries := m.nav.Entries()
	if got := m.mark(entries[0]); !strings.Contains(got, "[*]") {
		t.Fatalf("same commit as from and to should be [*], got %q", got)
	}
	if got := m.mark(entries[1]); got != "    " {
		t.Fatalf("decoration mark = %q", got)
	}
	if got := m.mark(entries[2]); got != "[ ] " {
		t.Fatalf("unmarked commit = %q", got)
	}

	m, _ = press(t, m, "j", "t")
	if got := m.mark(entries[0]); !strings.Contains(got, "[F]") {
		t.Fatalf("from mark = %q", got)
	}
	if got := m.mark(entries[2]); !strings.Contains(got, "[T]") {
		t.Fatalf("to mark = %q", got)
	}
	view := m.View()
	for _, want := range []string{"aaaaaaa - Third", "bbbbbbb - Second", `Selected bbbbbbb as "To Commit"`} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestPickerReloadKeepsCursor(t *testing.T) {
	t.Parallel()

	m, _ := press(t, NewModel(testEntries(), lightPalette), "j")
	reloaded := append(logline.ParseAll([]string{
		"* ddddddd - Fourth (2024-01-04 10:00:00 +0000) <Ana>",
	}), testEntries()...)
	next, _ := m.Update(reloadMsg{entries: reloaded})
	m = next.(Model)
	entry, ok := m.nav.Current()
	if !ok {
		t.Fatal("cursor lost after reload")
	}
	if c := entry.(logline.Commit); c.Hash != "bbbbbbb" {
		t.Fatalf("cursor on %q after reload, want bbbbbbb", c.Hash)
	}

	next, _ = m.Update(reloadErrMsg{err: errors.New("boom")})
	if got := next.(Model).notice; !strings.Contains(got, "boom") {
		t.Fatalf("notice = %q", got)
	}
}

func TestPaletteForPreference(t *testing.T) {
	orig := detectDarkMode
	t.Cleanup(func() { detectDarkMode = orig })

	detectDarkMode = func() (bool, error) { return true, nil }
	if got := paletteForPreference(ThemeAuto); got.Name != darkPalette.Name {
		t.Fatalf("auto with dark system = %q", got.Name)
	}
	detectDarkMode = func() (bool, error) { return false, errors.New("unsupported") }
	if got := paletteForPreference(ThemeAuto); got.Name != lightPalette.Name {
		t.Fatalf("auto with failed detection = %q", got.Name)
	}
	if got := paletteForPreference(ThemeDark); got.Name != darkPalette.Name {
		t.Fatalf("dark = %q", got.Name)
	}
	if got := ThemePreferenceFromString(" Light "); got != ThemeLight {
		t.Fatalf("ThemePreferenceFromString = %v", got)
	}
	if got := ThemePreferenceFromString("weird"); got != ThemeAuto {
		t.Fatalf("ThemePreferenceFromString = %v", got)
	}
}

func TestWatchPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if got := watchPath(root); got != root {
		t.Fatalf("watchPath without .git = %q", got)
	}
	gitDir := filepath.Join(root, ".git")
	if err := os.Mkdir(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := watchPath(root); got != gitDir {
		t.Fatalf("watchPath = %q, want %q", got, gitDir)
	}
	for name, want := range map[string]bool{"index.lock": true, "HEAD": false, "x.IPC": true, "refs/heads/main": false} {
		if got := shouldIgnoreWatchPath(name); got != want {
			t.Fatalf("shouldIgnoreWatchPath(%q) = %v", name, got)
		}
	}
}

func TestAutoReloadFiresOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.Mkdir(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	fired := make(chan struct{}, 1)
	a, err := startAutoReload(root, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("startAutoReload: %v", err)
	}
	defer a.Close()

	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not triggered")
	}
}
