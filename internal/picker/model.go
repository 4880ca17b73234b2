package picker

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thiagokokada/gde-go/internal/logline"
	"github.com/thiagokokada/gde-go/internal/navigator"
)

const (
	noticeSame        = `Select different commits for "From Commit" and "To Commit"`
	noticeNoTo        = `"To Commit" is not selected`
	noticeNoFrom      = `"From Commit" is not selected`
	noticeNone        = `"From Commit" and "To Commit" are not selected`
	noticeClearedFrom = `Cleared the "From Commit"`
	noticeClearedTo   = `Cleared the "To Commit"`

	helpText = `up/down move  f "From Commit"  t "To Commit"  enter extract  esc quit`

	// Rows used by everything but the log: selection panel (border + 2),
	// notice and help.
	chromeRows = 5
)

type pick struct {
	hash    string
	message string
}

func (p *pick) String() string {
	if p == nil {
		return ""
	}
	return p.hash + " - " + p.message
}

type reloadMsg struct {
	entries []logline.Entry
}

type reloadErrMsg struct {
	err error
}

// Model is the bubbletea model of the revision picker.
type Model struct {
	nav    *navigator.Navigator
	from   *pick
	to     *pick
	notice string
	styles styles

	width     int
	height    int
	offset    int
	confirmed bool
}

func NewModel(entries []logline.Entry, palette colorPalette) Model {
	nav := navigator.New(entries)
	nav.SelectNext()
	return Model{
		nav:    nav,
		styles: newStyles(palette),
		width:  80,
		height: 24,
	}
}

// Result returns the chosen hashes; ok is false unless the user confirmed two
// different commits.
func (m Model) Result() (from, to string, ok bool) {
	if !m.confirmed || m.from == nil || m.to == nil {
		return "", "", false
	}
	return m.from.hash, m.to.hash, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
	case reloadMsg:
		m.nav.Reset(msg.entries)
		if m.nav.Cursor() < 0 {
			m.nav.SelectNext()
		}
		m.clampOffset()
	case reloadErrMsg:
		m.notice = fmt.Sprintf("Reload failed: %v", msg.err)
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c", "q":
		return m, tea.Quit
	case "enter":
		switch {
		case m.from != nil && m.to != nil:
			if m.from.hash == m.to.hash {
				m.notice = noticeSame
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		case m.from != nil:
			m.notice = noticeNoTo
		case m.to != nil:
			m.notice = noticeNoFrom
		default:
			m.notice = noticeNone
		}
	case "down", "j":
		m.nav.SelectNext()
		m.clampOffset()
	case "up", "k":
		m.nav.SelectPrevious()
		m.clampOffset()
	case "f":
		m.from, m.notice = m.markCurrent("From Commit", noticeClearedFrom)
	case "t":
		m.to, m.notice = m.markCurrent("To Commit", noticeClearedTo)
	}
	return m, nil
}

// markCurrent picks the commit under the cursor, or clears the mark when the
// cursor is not on a commit.
func (m Model) markCurrent(label, cleared string) (*pick, string) {
	entry, ok := m.nav.Current()
	commit, isCommit := entry.(logline.Commit)
	if !ok || !isCommit {
		return nil, cleared
	}
	return &pick{hash: commit.Hash, message: commit.Message}, fmt.Sprintf("Selected %s as %q", commit.Hash, label)
}

func (m Model) visibleRows() int {
	return max(1, m.height-chromeRows)
}

func (m *Model) clampOffset() {
	cursor := max(m.nav.Cursor(), 0)
	visible := m.visibleRows()
	if cursor < m.offset {
		m.offset = cursor
	}
	if cursor >= m.offset+visible {
		m.offset = cursor - visible + 1
	}
	m.offset = max(0, min(m.offset, m.nav.Len()-1))
}

// mark returns the row prefix for entry: "[F]", "[T]", "[*]" when the same
// commit is both, "[ ]" for other commits and blanks for graph lines.
func (m Model) mark(entry logline.Entry) string {
	commit, ok := entry.(logline.Commit)
	if !ok {
		return "    "
	}
	if m.from != nil && commit.Hash == m.from.hash {
		if m.to != nil && m.to.hash == m.from.hash {
			return m.styles.both.Render("[*]") + " "
		}
		return m.styles.from.Render("[F]") + " "
	}
	if m.to != nil && commit.Hash == m.to.hash {
		return m.styles.to.Render("[T]") + " "
	}
	return "[ ] "
}

func (m Model) View() string {
	var b strings.Builder
	entries := m.nav.Entries()
	end := min(len(entries), m.offset+m.visibleRows())
	for i := m.offset; i < end; i++ {
		entry := entries[i]
		line := entry.String()
		if _, ok := entry.(logline.Decoration); ok {
			line = m.styles.graph.Render(line)
		}
		row := m.mark(entry) + line
		if i == m.nav.Cursor() {
			row = m.styles.cursor.Render("> " + row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteByte('\n')
	}

	panel := fmt.Sprintf("From: %s\nTo  : %s", m.from, m.to)
	b.WriteString(m.styles.panel.Width(m.width).Render(panel))
	b.WriteByte('\n')
	b.WriteString(m.styles.notice.Render(m.notice))
	b.WriteByte('\n')
	b.WriteString(m.styles.help.Render(helpText))
	return b.String()
}
