package backend

import (
	"context"
	"fmt"
	"io"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/thiagokokada/gde-go/internal/logline"
)

const (
	shortHashLen = 7
	isoDate      = "2006-01-02 15:04:05 -0700"
)

// LogLines renders the history in the same one-line template the CLI backend
// asks git for. The graph is a simplified column layout: one '|' per open
// branch to the left of the commit, with right-hand columns kept as padding.
func (n *native) LogLines(ctx context.Context, all bool) ([]string, error) {
	opts := &gitlib.LogOptions{All: all, Order: gitlib.LogOrderCommitterTime}
	if !all {
		head, err := n.repo.Head()
		if err != nil {
			if err == plumbing.ErrReferenceNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("resolve HEAD: %w", err)
		}
		opts.From = head.Hash()
	}
	labels, err := n.refLabels()
	if err != nil {
		return nil, err
	}
	iter, err := n.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("read commits: %w", err)
	}
	defer iter.Close()

	builder := newGraphBuilder()
	var lines []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		commit, err := iter.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		lines = append(lines, renderCommit(commit, builder, labels))
	}
	return lines, nil
}

func renderCommit(c *object.Commit, builder *graphBuilder, labels map[plumbing.Hash][]string) string {
	col, total := builder.Line(c.Hash, c.ParentHashes)
	entry := logline.Commit{
		TreeHead:    strings.Repeat("| ", col),
		HashPadding: strings.Repeat("  ", total-col-1),
		Hash:        c.Hash.String()[:shortHashLen],
		Message:     subject(c.Message),
		Date:        c.Committer.When.Format(isoDate),
		Author:      c.Author.Name,
	}
	if names := labels[c.Hash]; len(names) > 0 {
		entry.Aliases = strings.Join(names, ", ")
		entry.HasAliases = true
	}
	return entry.String()
}

func subject(message string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(first)
}

// refLabels mirrors the "%d" decoration: "HEAD -> main", branches, remote
// branches and "tag: v1", keyed by the commit they point at.
func (n *native) refLabels() (map[plumbing.Hash][]string, error) {
	labels := map[plumbing.Hash][]string{}
	refs, err := n.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer refs.Close()
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		switch {
		case name.IsBranch(), name.IsRemote():
			labels[ref.Hash()] = append(labels[ref.Hash()], name.Short())
		case name.IsTag():
			hash := ref.Hash()
			if tag, err := n.repo.TagObject(hash); err == nil {
				if commit, err := tag.Commit(); err == nil {
					hash = commit.Hash
				}
			}
			labels[hash] = append(labels[hash], "tag: "+name.Short())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	head, err := n.repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return labels, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	label := "HEAD"
	if head.Name().IsBranch() {
		short := head.Name().Short()
		label = "HEAD -> " + short
		labels[head.Hash()] = removeLabel(labels[head.Hash()], short)
	}
	labels[head.Hash()] = append([]string{label}, labels[head.Hash()]...)
	return labels, nil
}

func removeLabel(labels []string, name string) []string {
	out := labels[:0]
	for _, l := range labels {
		if l != name {
			out = append(out, l)
		}
	}
	return out
}

// graphBuilder tracks which commit each open column is waiting for.
type graphBuilder struct {
	columns []plumbing.Hash
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{}
}

// Line places the commit in a column and returns that column together with the
// number of columns open while drawing it.
func (g *graphBuilder) Line(hash plumbing.Hash, parents []plumbing.Hash) (col, total int) {
	col = g.columnIndex(hash)
	if col == -1 {
		g.columns = append(g.columns, hash)
		col = len(g.columns) - 1
	}
	total = len(g.columns)
	g.advance(col, parents)
	return col, total
}

func (g *graphBuilder) columnIndex(hash plumbing.Hash) int {
	for i, h := range g.columns {
		if h == hash {
			return i
		}
	}
	return -1
}

func (g *graphBuilder) advance(idx int, parents []plumbing.Hash) {
	if len(parents) == 0 {
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		return
	}
	primary := parents[0]
	if existing := g.columnIndex(primary); existing != -1 && existing != idx {
		// The first parent is already awaited by another column: branches merge.
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
	} else {
		g.columns[idx] = primary
	}
	for _, parent := range parents[1:] {
		if g.columnIndex(parent) == -1 {
			g.columns = append(g.columns, parent)
		}
	}
}
