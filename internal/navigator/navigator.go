// Package navigator keeps a cursor over parsed graph log lines that only ever
// rests on commits.
package navigator

import "github.com/thiagokokada/gde-go/internal/logline"

type Navigator struct {
	entries  []logline.Entry
	cursor   int
	selected bool
}

func New(entries []logline.Entry) *Navigator {
	return &Navigator{entries: entries}
}

func (n *Navigator) Len() int {
	return len(n.entries)
}

func (n *Navigator) Entries() []logline.Entry {
	return n.entries
}

// Cursor returns the selected index, or -1 when nothing is selected.
func (n *Navigator) Cursor() int {
	if !n.selected {
		return -1
	}
	return n.cursor
}

// Current returns the selected entry.
func (n *Navigator) Current() (logline.Entry, bool) {
	if !n.selected {
		return nil, false
	}
	return n.entries[n.cursor], true
}

// SelectNext moves to the next commit after the cursor (or the first commit
// when nothing is selected), wrapping past the end. It returns false and leaves
// the cursor untouched when there is no commit at all.
func (n *Navigator) SelectNext() (int, bool) {
	start := 0
	if n.selected {
		start = n.cursor + 1
	}
	return n.selectFrom(start, 1)
}

// SelectPrevious is SelectNext searching backwards, wrapping to the last entry.
func (n *Navigator) SelectPrevious() (int, bool) {
	start := 0
	if n.selected {
		start = n.cursor - 1
	}
	return n.selectFrom(start, -1)
}

// Reset replaces the entries. The cursor follows the selected commit hash when
// it is still present; otherwise the selection is cleared.
func (n *Navigator) Reset(entries []logline.Entry) {
	hash := ""
	if cur, ok := n.Current(); ok {
		if c, ok := cur.(logline.Commit); ok {
			hash = c.Hash
		}
	}
	n.entries = entries
	n.selected = false
	n.cursor = 0
	if hash == "" {
		return
	}
	for i, entry := range entries {
		if c, ok := entry.(logline.Commit); ok && c.Hash == hash {
			n.cursor = i
			n.selected = true
			return
		}
	}
}

func (n *Navigator) selectFrom(start, step int) (int, bool) {
	count := len(n.entries)
	for k := range count {
		i := ((start+k*step)%count + count) % count
		if _, ok := n.entries[i].(logline.Commit); ok {
			n.cursor = i
			n.selected = true
			return i, true
		}
	}
	return n.Cursor(), false
}
