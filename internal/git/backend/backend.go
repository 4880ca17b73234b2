package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	gitlib "github.com/go-git/go-git/v5"
)

// Backend is the revision-control collaborator used by the extractor and the
// picker. Every call blocks until git is done; none of them may run
// concurrently against the same working tree.
//
// OpenCLI shells out to the git executable and OpenNative uses go-git; which
// one cmd picks by default depends on the gitcli build tag.
type Backend interface {
	// RootDir is the top-level directory of the working tree.
	RootDir() string
	// Worktree exposes the working tree files, rooted at RootDir.
	Worktree() billy.Filesystem

	HeadHash(ctx context.Context) (string, error)

	// ChangedPaths lists the paths that differ between from and to. An empty
	// to compares the working tree against from.
	ChangedPaths(ctx context.Context, from, to string) ([]string, error)
	// StagedPaths lists the paths staged in the index relative to from.
	StagedPaths(ctx context.Context, from string) ([]string, error)
	// ListPaths lists every file path in rev.
	ListPaths(ctx context.Context, rev string) ([]string, error)

	// Materialize writes path as of rev into the working tree and returns its
	// absolute location.
	Materialize(ctx context.Context, rev, path string) (string, error)
	// Remove deletes path from the working tree and the index.
	Remove(ctx context.Context, path string) error
	// HardReset discards every working tree change and moves it to rev.
	HardReset(ctx context.Context, rev string) error

	// LogLines returns the graph log, one display line per element.
	LogLines(ctx context.Context, all bool) ([]string, error)
}

type Kind uint8

const (
	KindNative Kind = iota
	KindCLI
)

func (k Kind) String() string {
	switch k {
	case KindCLI:
		return "cli"
	default:
		return "native"
	}
}

func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case KindCLI.String(), "gitcli", "git":
		return KindCLI, nil
	case KindNative.String(), "go-git":
		return KindNative, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (want %s or %s)", raw, KindNative, KindCLI)
	}
}

// Open opens the repository containing repoPath with the requested backend.
func Open(kind Kind, repoPath string) (Backend, error) {
	switch kind {
	case KindCLI:
		return OpenCLI(repoPath)
	default:
		return OpenNative(repoPath)
	}
}

// RootDir returns the top-level directory of the working tree containing path.
func RootDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%s is not inside a git working tree: %w", abs, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}
