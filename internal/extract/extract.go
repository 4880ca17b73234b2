// Package extract copies the files that differ between two revisions into an
// output directory, one snapshot per revision, by checking each path out in
// the working tree and putting it back afterwards.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/zeebo/xxh3"

	"github.com/thiagokokada/gde-go/internal/git/backend"
)

const (
	FromDir = "from"
	ToDir   = "to"
)

// Session describes one extraction. Original defaults to the current HEAD.
// TargetDir, when set, must be the backend's working tree root.
type Session struct {
	From      string
	To        string
	Original  string
	TargetDir string
	OutputDir string
}

type Option func(*Extractor)

// WithOutputFS writes the snapshots into fs instead of Session.OutputDir on
// disk. The "from" and "to" directories are created at the root of fs.
func WithOutputFS(fs billy.Filesystem) Option {
	return func(e *Extractor) {
		e.outputFS = fs
	}
}

// WithProgress streams human readable progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(e *Extractor) {
		if w != nil {
			e.progress = w
		}
	}
}

// Extractor mutates the working tree of its backend, so calls to Extract are
// serialized.
type Extractor struct {
	mu       sync.Mutex
	backend  backend.Backend
	outputFS billy.Filesystem
	progress io.Writer
}

func New(b backend.Backend, opts ...Option) *Extractor {
	e := &Extractor{backend: b, progress: io.Discard}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, s Session) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.From == "" || s.To == "" {
		return nil, ErrMissingRevision
	}
	if s.From == s.To {
		return nil, ErrSameRevision
	}
	root := e.backend.RootDir()
	if s.TargetDir != "" && !sameDir(s.TargetDir, root) {
		return nil, fmt.Errorf("%w: %s is not %s", ErrTargetMismatch, s.TargetDir, root)
	}
	if err := e.ensureClean(ctx); err != nil {
		return nil, err
	}
	original := s.Original
	if original == "" {
		head, err := e.backend.HeadHash(ctx)
		if err != nil {
			return nil, err
		}
		original = head
	}

	paths, err := e.backend.ChangedPaths(ctx, s.From, s.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiffComputationFailed, err)
	}
	report := &Report{
		From:    EndpointReport{Name: FromDir, Revision: s.From},
		To:      EndpointReport{Name: ToDir, Revision: s.To},
		Changed: len(paths),
	}
	if len(paths) == 0 {
		fmt.Fprintf(e.progress, "There are no files with differences between %s and %s\n", s.From, s.To)
		return report, nil
	}
	fmt.Fprintf(e.progress, "Updated files between %s and %s:\n", s.From, s.To)
	for _, p := range paths {
		fmt.Fprintf(e.progress, "\t%s\n", p)
	}

	atOriginal, err := e.backend.ListPaths(ctx, original)
	if err != nil {
		slog.Error("list original revision", slog.String("rev", original), slog.Any("error", err))
		return nil, fmt.Errorf("%w: original revision %s: %w", ErrListingFailed, original, err)
	}
	out, err := e.openOutput(s.OutputDir)
	if err != nil {
		return nil, err
	}
	if e.outputFS == nil && isWithin(s.OutputDir, root) {
		slog.Warn("output directory is inside the working tree, it will show up as untracked files",
			slog.String("output", s.OutputDir), slog.String("root", root))
	}
	report.OutputDir = out.Root()

	run := inner{
		backend:    e.backend,
		progress:   e.progress,
		out:        out,
		paths:      paths,
		original:   original,
		atOriginal: toSet(atOriginal),
	}
	for _, ep := range []*EndpointReport{&report.From, &report.To} {
		fmt.Fprintf(e.progress, "Copying files from %q...\n", ep.Revision)
		if err := run.extract(ctx, ep); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (e *Extractor) ensureClean(ctx context.Context) error {
	unstaged, err := e.backend.ChangedPaths(ctx, "HEAD", "")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiffComputationFailed, err)
	}
	staged, err := e.backend.StagedPaths(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiffComputationFailed, err)
	}
	if len(unstaged) > 0 || len(staged) > 0 {
		slog.Debug("dirty working tree", slog.Int("unstaged", len(unstaged)), slog.Int("staged", len(staged)))
		return ErrDirtyWorkingTree
	}
	return nil
}

func (e *Extractor) openOutput(dir string) (billy.Filesystem, error) {
	if e.outputFS != nil {
		return e.outputFS, nil
	}
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return osfs.New(dir), nil
}

// inner runs the per-revision pass over the changed paths.
type inner struct {
	backend    backend.Backend
	progress   io.Writer
	out        billy.Filesystem
	paths      []string
	original   string
	atOriginal map[string]struct{}
}

func (r *inner) extract(ctx context.Context, ep *EndpointReport) (err error) {
	defer r.resetWorktree(ctx, &err)

	listed, err := r.backend.ListPaths(ctx, ep.Revision)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrListingFailed, ep.Revision, err)
	}
	present := toSet(listed)
	wt := r.backend.Worktree()

	for _, p := range r.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest := path.Join(ep.Name, p)
		if err := r.out.MkdirAll(path.Dir(dest), 0o755); err != nil {
			return &CopyError{Path: p, Dest: dest, Err: err}
		}
		if _, ok := present[p]; !ok {
			slog.Debug("path absent at revision", slog.String("rev", ep.Revision), slog.String("path", p))
			continue
		}

		source, err := r.backend.Materialize(ctx, ep.Revision, p)
		if err != nil {
			return &MaterializeError{Revision: ep.Revision, Path: p, Err: err}
		}
		sum, err := copyFile(wt, p, r.out, dest)
		if err != nil {
			return &CopyError{Path: p, Dest: dest, Err: err}
		}
		destPath := r.out.Join(r.out.Root(), dest)
		ep.Entries = append(ep.Entries, CopyEntry{Source: source, Dest: destPath, Checksum: sum})
		fmt.Fprintf(r.progress, "Copied: %s -> %s\n", source, destPath)

		if err := r.restore(ctx, p); err != nil {
			return &RestoreError{Path: p, Cause: err}
		}
	}
	return nil
}

func (r *inner) restore(ctx context.Context, p string) error {
	if _, ok := r.atOriginal[p]; ok {
		_, err := r.backend.Materialize(ctx, r.original, p)
		return err
	}
	return r.backend.Remove(ctx, p)
}

// resetWorktree is deferred around every endpoint pass. It runs the hard reset
// even when the pass panics or ctx is done, and joins a failure into *errp.
func (r *inner) resetWorktree(ctx context.Context, errp *error) {
	p := recover()
	if err := r.backend.HardReset(context.WithoutCancel(ctx), r.original); err != nil {
		resetErr := &HardResetError{Revision: r.original, Cause: err}
		slog.Error("working tree was not restored", slog.String("rev", r.original), slog.Any("err", err))
		*errp = errors.Join(*errp, resetErr)
	}
	if p != nil {
		panic(p)
	}
}

func copyFile(src billy.Filesystem, name string, dst billy.Filesystem, dest string) (string, error) {
	in, err := src.Open(name)
	if err != nil {
		return "", err
	}
	defer in.Close()
	mode := os.FileMode(0o644)
	if fi, err := src.Stat(name); err == nil {
		mode = fi.Mode().Perm()
	}
	out, err := dst.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return "", err
	}
	h := xxh3.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		return "", errors.Join(err, out.Close())
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum128().Bytes()), nil
}

// sameDir compares two directories after cleaning and, when both exist, after
// resolving symlinks.
func sameDir(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}

func isWithin(dir, root string) bool {
	if dir == "" || root == "" {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, absDir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
