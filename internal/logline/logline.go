// Package logline parses the lines printed by
//
//	git log --graph --pretty=format:'%h -%d %s (%ci) <%an>'
//
// into commit records and pure graph decorations.
//
// Parsing is positional rather than grammatical: the delimiters '*', '-', '(',
// ')', '<' and '>' are located by position and the fields are cut between them.
// A message that itself contains parentheses or angle brackets can therefore be
// split at the wrong place. Such lines still parse (the result is never an
// error), but the round trip through String is only guaranteed for lines that
// String produced.
package logline

import (
	"strings"
)

// Entry is one line of the graph log: either a Commit or a Decoration.
type Entry interface {
	String() string
	isEntry()
}

// Decoration is a line that only draws graph connectors (e.g. "|\", "|/").
type Decoration string

func (d Decoration) String() string { return string(d) }

func (Decoration) isEntry() {}

// Commit is a single revision summary from the graph log.
type Commit struct {
	// TreeHead holds the graph glyphs in front of the '*' marker, verbatim.
	TreeHead string
	// HashPadding keeps the extra spaces between '*' and the hash so merge
	// commits stay aligned when rendered again.
	HashPadding string
	Hash        string
	// Aliases is the ref decoration (branches, tags). Only meaningful when
	// HasAliases is set.
	Aliases    string
	HasAliases bool
	Message    string
	Date       string
	Author     string
}

func (Commit) isEntry() {}

// String renders the commit in the same template Parse reads.
func (c Commit) String() string {
	var b strings.Builder
	b.WriteString(c.TreeHead)
	b.WriteString("* ")
	b.WriteString(c.HashPadding)
	b.WriteString(c.Hash)
	b.WriteString(" -")
	if c.HasAliases {
		b.WriteString(" (")
		b.WriteString(c.Aliases)
		b.WriteString(")")
	}
	b.WriteString(" ")
	b.WriteString(c.Message)
	b.WriteString(" (")
	b.WriteString(c.Date)
	b.WriteString(") <")
	b.WriteString(c.Author)
	b.WriteString(">")
	return b.String()
}

// Parse turns a raw log line into a Commit, or into a Decoration when the line
// does not have the commit shape. It never fails.
func Parse(line string) Entry {
	if c, ok := parseCommit(line); ok {
		return c
	}
	return Decoration(line)
}

// ParseAll parses every line in order.
func ParseAll(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, Parse(line))
	}
	return entries
}

func parseCommit(line string) (Commit, bool) {
	r := runeLine(line)

	star := r.index('*', 0)
	if star < 0 {
		return Commit{}, false
	}
	dash := r.index('-', star+1)
	if dash < 0 {
		return Commit{}, false
	}
	hashField := r.slice(star+1, dash)
	hash := strings.TrimSpace(hashField)
	if hash == "" {
		return Commit{}, false
	}
	padding := ""
	if lead := len(hashField) - len(strings.TrimLeft(hashField, " ")); lead > 1 {
		padding = strings.Repeat(" ", lead-1)
	}

	aliasOpen, aliasClose, ok := r.firstPair('(', ')', dash+1)
	if !ok {
		return Commit{}, false
	}
	dateOpen, dateClose, ok := r.lastPair('(', ')')
	if !ok {
		return Commit{}, false
	}
	authorOpen, authorClose, ok := r.lastPair('<', '>')
	if !ok {
		return Commit{}, false
	}

	aliases := r.slice(aliasOpen+1, aliasClose)
	date := r.slice(dateOpen+1, dateClose)

	c := Commit{
		TreeHead:    r.slice(0, star),
		HashPadding: padding,
		Hash:        hash,
		Date:        date,
		Author:      r.slice(authorOpen+1, authorClose),
	}
	// A single parenthesized group is found by both searches; it is the date.
	msgStart := dash + 1
	if aliases != date {
		c.Aliases = aliases
		c.HasAliases = true
		msgStart = aliasClose + 1
	}
	if msgStart > dateOpen {
		return Commit{}, false
	}
	c.Message = strings.TrimSpace(r.slice(msgStart, dateOpen))
	return c, true
}

// runeLine indexes a line by character rather than byte so that multi-byte
// messages and author names are cut at the right places.
type runeLine []rune

func (r runeLine) slice(from, to int) string {
	return string(r[from:to])
}

func (r runeLine) index(c rune, from int) int {
	for i := from; i < len(r); i++ {
		if r[i] == c {
			return i
		}
	}
	return -1
}

func (r runeLine) lastIndex(c rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == c {
			return i
		}
	}
	return -1
}

// firstPair finds the first open delimiter at or after from and the first
// close delimiter following it.
func (r runeLine) firstPair(open, close rune, from int) (int, int, bool) {
	o := r.index(open, from)
	if o < 0 {
		return 0, 0, false
	}
	c := r.index(close, o+1)
	if c < 0 {
		return 0, 0, false
	}
	return o, c, true
}

// lastPair finds the last open and the last close delimiter of the line; the
// close must come after the open.
func (r runeLine) lastPair(open, close rune) (int, int, bool) {
	o := r.lastIndex(open)
	c := r.lastIndex(close)
	if o < 0 || c < 0 || c < o {
		return 0, 0, false
	}
	return o, c, true
}
