package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// fakeBackend keeps one file map per revision and mirrors checkouts into an
// in-memory working tree, so tests can assert on the tree after Extract.
type fakeBackend struct {
	revs map[string]map[string]string
	head string
	wt   billy.Filesystem

	dirty  []string
	staged []string

	materializeFunc func(call int, rev, path string) error
	hardResetFunc   func(rev string) error
	removeFunc      func(path string) error

	listCalls        int
	materializeCalls int
	resets           []string
	removed          []string
}

func newFakeBackend(t *testing.T, head string, revs map[string]map[string]string) *fakeBackend {
	t.Helper()
	f := &fakeBackend{revs: revs, head: head, wt: memfs.New()}
	if err := f.checkout(head); err != nil {
		t.Fatalf("checkout %s: %v", head, err)
	}
	return f
}

func (f *fakeBackend) RootDir() string            { return "/repo" }
func (f *fakeBackend) Worktree() billy.Filesystem { return f.wt }

func (f *fakeBackend) HeadHash(context.Context) (string, error) {
	return f.head, nil
}

func (f *fakeBackend) ChangedPaths(_ context.Context, from, to string) ([]string, error) {
	if to == "" {
		return f.dirty, nil
	}
	a, ok := f.revs[from]
	if !ok {
		return nil, fmt.Errorf("unknown revision %s", from)
	}
	b, ok := f.revs[to]
	if !ok {
		return nil, fmt.Errorf("unknown revision %s", to)
	}
	var paths []string
	for p, content := range a {
		if other, ok := b[p]; !ok || other != content {
			paths = append(paths, p)
		}
	}
	for p := range b {
		if _, ok := a[p]; !ok {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func (f *fakeBackend) StagedPaths(context.Context, string) ([]string, error) {
	return f.staged, nil
}

func (f *fakeBackend) ListPaths(_ context.Context, rev string) ([]string, error) {
	f.listCalls++
	files, ok := f.revs[rev]
	if !ok {
		return nil, fmt.Errorf("unknown revision %s", rev)
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeBackend) Materialize(_ context.Context, rev, path string) (string, error) {
	f.materializeCalls++
	if f.materializeFunc != nil {
		if err := f.materializeFunc(f.materializeCalls, rev, path); err != nil {
			return "", err
		}
	}
	content, ok := f.revs[rev][path]
	if !ok {
		return "", fmt.Errorf("%s does not exist at %s", path, rev)
	}
	if err := util.WriteFile(f.wt, path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return "/repo/" + path, nil
}

func (f *fakeBackend) Remove(_ context.Context, path string) error {
	f.removed = append(f.removed, path)
	if f.removeFunc != nil {
		if err := f.removeFunc(path); err != nil {
			return err
		}
	}
	if err := f.wt.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *fakeBackend) HardReset(_ context.Context, rev string) error {
	f.resets = append(f.resets, rev)
	if f.hardResetFunc != nil {
		if err := f.hardResetFunc(rev); err != nil {
			return err
		}
	}
	return f.checkout(rev)
}

func (f *fakeBackend) LogLines(context.Context, bool) ([]string, error) {
	return nil, errors.New("unexpected LogLines call")
}

func (f *fakeBackend) checkout(rev string) error {
	files, ok := f.revs[rev]
	if !ok {
		return fmt.Errorf("unknown revision %s", rev)
	}
	for _, snapshot := range f.revs {
		for p := range snapshot {
			if err := f.wt.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}
	for p, content := range files {
		if err := util.WriteFile(f.wt, p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// assertWorktreeAt fails unless the working tree holds exactly rev's files.
func (f *fakeBackend) assertWorktreeAt(t *testing.T, rev string) {
	t.Helper()
	files := f.revs[rev]
	for _, snapshot := range f.revs {
		for p := range snapshot {
			want, tracked := files[p]
			data, err := util.ReadFile(f.wt, p)
			switch {
			case !tracked && err == nil:
				t.Fatalf("%s should not exist at %s", p, rev)
			case tracked && err != nil:
				t.Fatalf("%s missing at %s: %v", p, rev, err)
			case tracked && string(data) != want:
				t.Fatalf("%s = %q, want %q", p, data, want)
			}
		}
	}
}
