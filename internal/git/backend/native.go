package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/go-git/go-billy/v5"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// native implements Backend on top of go-git. The working tree is whatever
// billy filesystem the repository was opened with, so it works for on-disk
// checkouts and for in-memory repositories alike.
type native struct {
	repo *gitlib.Repository
	wt   *gitlib.Worktree
}

func OpenNative(repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return NewNative(repo)
}

// NewNative wraps an already opened repository. Bare repositories are
// rejected since there is no working tree to materialize files into.
func NewNative(repo *gitlib.Repository) (Backend, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &native{repo: repo, wt: wt}, nil
}

func (n *native) RootDir() string {
	return n.wt.Filesystem.Root()
}

func (n *native) Worktree() billy.Filesystem {
	return n.wt.Filesystem
}

func (n *native) HeadHash(context.Context) (string, error) {
	ref, err := n.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (n *native) ChangedPaths(ctx context.Context, from, to string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to == "" {
		return n.worktreeChanges(from, false)
	}
	fromTree, err := n.tree(from)
	if err != nil {
		return nil, err
	}
	toTree, err := n.tree(to)
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s %s: %w", from, to, err)
	}
	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		paths = append(paths, name)
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func (n *native) StagedPaths(ctx context.Context, from string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return n.worktreeChanges(from, true)
}

// worktreeChanges reports modified tracked files; go-git only computes status
// against HEAD, so from has to resolve to it.
func (n *native) worktreeChanges(from string, staged bool) ([]string, error) {
	want, err := n.resolve(from)
	if err != nil {
		return nil, err
	}
	head, err := n.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	if head.Hash() != want {
		return nil, fmt.Errorf("working tree status is only available against HEAD, not %s", from)
	}
	status, err := n.wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	var paths []string
	for p, st := range status {
		code := st.Worktree
		if staged {
			code = st.Staging
		}
		if code != gitlib.Unmodified && code != gitlib.Untracked {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func (n *native) ListPaths(ctx context.Context, rev string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := n.tree(rev)
	if err != nil {
		return nil, err
	}
	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", rev, err)
	}
	return paths, nil
}

func (n *native) Materialize(ctx context.Context, rev, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tree, err := n.tree(rev)
	if err != nil {
		return "", err
	}
	f, err := tree.File(name)
	if err != nil {
		return "", fmt.Errorf("%s:%s: %w", rev, name, err)
	}
	if err := n.writeFile(f); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	// Stage it as "git checkout <rev> -- <path>" would.
	if _, err := n.wt.Add(name); err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	slog.Debug("materialized", slog.String("rev", rev), slog.String("path", name))
	return n.wt.Filesystem.Join(n.wt.Filesystem.Root(), filepath.FromSlash(name)), nil
}

func (n *native) writeFile(f *object.File) error {
	fs := n.wt.Filesystem
	target := filepath.FromSlash(f.Name)
	if dir := path.Dir(f.Name); dir != "." {
		if err := fs.MkdirAll(filepath.FromSlash(dir), 0o755); err != nil {
			return err
		}
	}
	if f.Mode == filemode.Symlink {
		link, err := f.Contents()
		if err != nil {
			return err
		}
		if err := fs.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return fs.Symlink(link, target)
	}
	perm, err := f.Mode.ToOSFileMode()
	if err != nil {
		perm = 0o644
	}
	src, err := f.Reader()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return errors.Join(err, dst.Close())
	}
	return dst.Close()
}

func (n *native) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.wt.Remove(name); err == nil {
		return nil
	}
	// Not in the index: only the file itself can be stale.
	if err := n.wt.Filesystem.Remove(filepath.FromSlash(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (n *native) HardReset(ctx context.Context, rev string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hash, err := n.resolve(rev)
	if err != nil {
		return err
	}
	tracked, err := n.indexPaths()
	if err != nil {
		return err
	}
	// go-git's HardReset also deletes untracked files, "git reset --hard" does
	// not. Reset the index only and then fix up the tracked paths.
	if err := n.wt.Reset(&gitlib.ResetOptions{Commit: hash, Mode: gitlib.MixedReset}); err != nil {
		return fmt.Errorf("reset --mixed %s: %w", rev, err)
	}
	tree, err := n.tree(rev)
	if err != nil {
		return err
	}
	status, err := n.wt.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}
	for p, st := range status {
		switch {
		case st.Worktree == gitlib.Untracked:
			if _, ok := tracked[p]; !ok {
				continue
			}
			// Tracked before the reset but not part of rev.
			if err := n.wt.Filesystem.Remove(filepath.FromSlash(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("reset --hard %s: remove %s: %w", rev, p, err)
			}
		case st.Worktree != gitlib.Unmodified:
			f, err := tree.File(p)
			if err != nil {
				return fmt.Errorf("reset --hard %s: %s: %w", rev, p, err)
			}
			if err := n.writeFile(f); err != nil {
				return fmt.Errorf("reset --hard %s: write %s: %w", rev, p, err)
			}
			if _, err := n.wt.Add(p); err != nil {
				return fmt.Errorf("reset --hard %s: stage %s: %w", rev, p, err)
			}
		}
	}
	return nil
}

func (n *native) indexPaths() (map[string]struct{}, error) {
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	paths := make(map[string]struct{}, len(idx.Entries))
	for _, e := range idx.Entries {
		paths[e.Name] = struct{}{}
	}
	return paths, nil
}

func (n *native) resolve(rev string) (plumbing.Hash, error) {
	hash, err := n.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", rev, err)
	}
	return *hash, nil
}

func (n *native) tree(rev string) (*object.Tree, error) {
	hash, err := n.resolve(rev)
	if err != nil {
		return nil, err
	}
	commit, err := n.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", rev, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", rev, err)
	}
	return tree, nil
}
