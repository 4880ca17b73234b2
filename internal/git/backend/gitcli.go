package backend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// logFormat is the one-line template understood by package logline.
const logFormat = "%h -%d %s (%ci) <%an>"

type gitCLI struct {
	path string
	fs   billy.Filesystem
}

func OpenCLI(repoPath string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &gitCLI{path: abs}
	root, err := tmp.runGitCommand(context.Background(), "git rev-parse", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty root")
	}
	return &gitCLI{path: root, fs: osfs.New(root)}, nil
}

func (g *gitCLI) RootDir() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) Worktree() billy.Filesystem {
	return g.fs
}

func (g *gitCLI) HeadHash(ctx context.Context) (string, error) {
	out, err := g.runGitCommand(ctx, "git rev-parse", "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", fmt.Errorf("git rev-parse: empty HEAD")
	}
	return hash, nil
}

func (g *gitCLI) ChangedPaths(ctx context.Context, from, to string) ([]string, error) {
	args := []string{"diff", "--name-only", "--no-renames", "-z", from}
	if to != "" {
		args = append(args, to)
	}
	out, err := g.runGitCommand(ctx, "git diff", args...)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

func (g *gitCLI) StagedPaths(ctx context.Context, from string) ([]string, error) {
	out, err := g.runGitCommand(ctx, "git diff --cached", "diff", "--cached", "--name-only", "--no-renames", "-z", from)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

func (g *gitCLI) ListPaths(ctx context.Context, rev string) ([]string, error) {
	out, err := g.runGitCommand(ctx, "git ls-tree", "ls-tree", "-r", "--name-only", "-z", rev)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

func (g *gitCLI) Materialize(ctx context.Context, rev, path string) (string, error) {
	if _, err := g.runGitCommand(ctx, "git checkout", "checkout", rev, "--", path); err != nil {
		return "", err
	}
	return filepath.Join(g.path, filepath.FromSlash(path)), nil
}

func (g *gitCLI) Remove(ctx context.Context, path string) error {
	_, err := g.runGitCommand(ctx, "git rm", "rm", "-q", "-f", "--ignore-unmatch", "--", path)
	return err
}

func (g *gitCLI) HardReset(ctx context.Context, rev string) error {
	_, err := g.runGitCommand(ctx, "git reset", "reset", "-q", "--hard", rev)
	return err
}

func (g *gitCLI) LogLines(ctx context.Context, all bool) ([]string, error) {
	args := []string{"--no-pager", "log", "--graph", "--color=never"}
	if all {
		args = append(args, "--all")
	}
	args = append(args, "--pretty=format:"+logFormat, "--abbrev-commit", "--date=relative")
	out, err := g.runGitCommand(ctx, "git log", args...)
	if err != nil {
		return nil, err
	}
	var lines []string
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (g *gitCLI) runGitCommand(ctx context.Context, desc string, args ...string) (string, error) {
	if g == nil || g.path == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"-C", g.path}, args...)
	slog.Debug("running git", slog.String("args", strings.Join(cmdArgs, " ")))
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s: %v: %s", desc, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%s: %w", desc, err)
	}
	return stdout.String(), nil
}

// splitNUL splits -z output; paths are returned verbatim, without quoting.
func splitNUL(out string) []string {
	var paths []string
	for p := range strings.SplitSeq(out, "\x00") {
		if p == "" {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}
