package navigator

import (
	"testing"

	"github.com/thiagokokada/gde-go/internal/logline"
)

func commit(hash string) logline.Commit {
	return logline.Commit{Hash: hash, Message: "m", Date: "d", Author: "a"}
}

func currentHash(t *testing.T, n *Navigator) string {
	t.Helper()
	cur, ok := n.Current()
	if !ok {
		t.Fatal("expected a selection")
	}
	c, ok := cur.(logline.Commit)
	if !ok {
		t.Fatalf("selection is not a commit: %#v", cur)
	}
	return c.Hash
}

func TestSelectNextWraps(t *testing.T) {
	t.Parallel()

	n := New([]logline.Entry{
		logline.Decoration("|\\"),
		commit("A"),
		logline.Decoration("|/"),
		commit("B"),
	})
	if _, ok := n.Current(); ok {
		t.Fatal("expected no selection before moving")
	}
	for i, want := range []string{"A", "B", "A"} {
		if _, ok := n.SelectNext(); !ok {
			t.Fatalf("step %d: SelectNext returned false", i)
		}
		if got := currentHash(t, n); got != want {
			t.Fatalf("step %d: got %q, want %q", i, got, want)
		}
	}
}

func TestSelectPreviousWraps(t *testing.T) {
	t.Parallel()

	n := New([]logline.Entry{
		logline.Decoration("|\\"),
		commit("A"),
		logline.Decoration("|/"),
		commit("B"),
		logline.Decoration("|"),
	})
	// Backwards from the top wraps to the last commit.
	for i, want := range []string{"B", "A", "B"} {
		if _, ok := n.SelectPrevious(); !ok {
			t.Fatalf("step %d: SelectPrevious returned false", i)
		}
		if got := currentHash(t, n); got != want {
			t.Fatalf("step %d: got %q, want %q", i, got, want)
		}
	}
}

func TestSelectPreviousFirstEntryCommit(t *testing.T) {
	t.Parallel()

	n := New([]logline.Entry{commit("A"), commit("B")})
	idx, ok := n.SelectPrevious()
	if !ok || idx != 0 {
		t.Fatalf("SelectPrevious() = %d, %v; want 0, true", idx, ok)
	}
}

func TestNoCommits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []logline.Entry
	}{
		{name: "empty"},
		{name: "decorations_only", entries: []logline.Entry{logline.Decoration("|"), logline.Decoration("|/")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := New(tt.entries)
			if idx, ok := n.SelectNext(); ok || idx != -1 {
				t.Fatalf("SelectNext() = %d, %v; want -1, false", idx, ok)
			}
			if idx, ok := n.SelectPrevious(); ok || idx != -1 {
				t.Fatalf("SelectPrevious() = %d, %v; want -1, false", idx, ok)
			}
			if _, ok := n.Current(); ok {
				t.Fatal("expected no selection")
			}
		})
	}
}

func TestResetKeepsSelectedHash(t *testing.T) {
	t.Parallel()

	n := New([]logline.Entry{commit("A"), commit("B")})
	n.SelectNext()
	n.SelectNext()
	if got := currentHash(t, n); got != "B" {
		t.Fatalf("got %q, want B", got)
	}

	n.Reset([]logline.Entry{commit("C"), logline.Decoration("|"), commit("B")})
	if got := n.Cursor(); got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}

	n.Reset([]logline.Entry{commit("D")})
	if got := n.Cursor(); got != -1 {
		t.Fatalf("cursor = %d, want -1 after selected hash disappeared", got)
	}
	if n.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", n.Len())
	}
}
